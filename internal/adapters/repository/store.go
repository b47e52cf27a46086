// Package repository defines the divari storage port, its errors and the
// in-memory implementation.
package repository

import (
	"context"
	"time"

	"github.com/okian/divari/internal/domain/divari"
	"github.com/okian/divari/internal/domain/model"
	"github.com/okian/divari/internal/domain/ranking"
)

// Counts reports row totals per entity.
type Counts struct {
	Seasons       int `json:"seasons"`
	Competitions  int `json:"competitions"`
	Results       int `json:"results"`
	Teams         int `json:"teams"`
	TeamResults   int `json:"team_results"`
	SeasonResults int `json:"season_results"`
}

// Store provides read/write access to divari and register data.
type Store interface {
	divari.Store
	ranking.Source

	// Register inputs.
	CreateOrganization(ctx context.Context, org model.Organization) (model.Organization, error)
	Organization(ctx context.Context, id int64) (model.Organization, error)
	// CreateAthlete stores a, referencing a.Organization.ID.
	CreateAthlete(ctx context.Context, a model.Athlete) (model.Athlete, error)
	CreateRankedCompetition(ctx context.Context, c model.RankedCompetition) (model.RankedCompetition, error)
	CreateRegisterResult(ctx context.Context, r model.RegisterResult) (model.RegisterResult, error)

	// Seasons and teams.
	CreateSeason(ctx context.Context, s model.Season) (model.Season, error)
	// Season returns ErrNotFound for an unknown id.
	Season(ctx context.Context, id int64) (model.Season, error)
	// Seasons returns every season ordered by start date.
	Seasons(ctx context.Context) ([]model.Season, error)
	// SeasonsAt returns the seasons whose window contains d.
	SeasonsAt(ctx context.Context, d time.Time) ([]model.Season, error)
	// PreviousSeason returns the season with the latest end date before d,
	// or ErrNotFound.
	PreviousSeason(ctx context.Context, d time.Time) (model.Season, error)
	// EnsureTeams creates the teams that do not exist yet and returns how
	// many were created.
	EnsureTeams(ctx context.Context, teams []model.Team) (int, error)
	Teams(ctx context.Context, seasonID int64) ([]model.Team, error)
	// TeamResultCounts maps each team of the season to its team result count.
	TeamResultCounts(ctx context.Context, seasonID int64) (map[int64]int, error)
	// SeasonStandings returns the season results of a season ordered by bow
	// type, division and score descending. An empty bow selects all.
	SeasonStandings(ctx context.Context, seasonID int64, bow model.BowType) ([]model.Standing, error)

	// Divari competitions and results.
	CreateCompetition(ctx context.Context, c model.Competition) (model.Competition, error)
	// Competition returns ErrNotFound for an unknown id.
	Competition(ctx context.Context, id int64) (model.Competition, error)
	// OrganizationCompetitions returns an organization's competitions dated within [from, to].
	OrganizationCompetitions(ctx context.Context, orgID int64, from, to time.Time) ([]model.Competition, error)
	CreateResult(ctx context.Context, r model.Result) (model.Result, error)
	CompetitionResults(ctx context.Context, competitionID int64) ([]model.Result, error)

	Counts(ctx context.Context) (Counts, error)
	Close() error
}
