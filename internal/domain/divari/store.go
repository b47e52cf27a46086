package divari

import (
	"context"
	"time"

	"github.com/okian/divari/internal/domain/model"
)

// Tx is the read/write view a recalculation runs against. Everything done
// through one Tx commits or rolls back together.
type Tx interface {
	// CompetitionsBetween returns competitions dated within [start, end], both inclusive.
	CompetitionsBetween(ctx context.Context, start, end time.Time) ([]model.Competition, error)
	// ResultBowTypes returns the distinct bow types among a competition's results.
	ResultBowTypes(ctx context.Context, competitionID int64) ([]model.BowType, error)
	// Results returns a competition's results of one bow type, best score first.
	Results(ctx context.Context, competitionID int64, bow model.BowType) ([]model.Result, error)
	DeleteTeamResults(ctx context.Context, competitionID int64) error
	CreateTeamResult(ctx context.Context, tr model.TeamResult) (model.TeamResult, error)

	// FindTeam returns the team with the given identity, if any.
	FindTeam(ctx context.Context, key model.TeamKey) (model.Team, bool, error)
	CreateTeam(ctx context.Context, team model.Team) (model.Team, error)
	SeasonTeams(ctx context.Context, seasonID int64) ([]model.Team, error)
	// TeamResultScores returns every team result score of a team, highest first.
	TeamResultScores(ctx context.Context, teamID int64) ([]int, error)

	DeleteSeasonResults(ctx context.Context, seasonID int64) error
	CreateSeasonResult(ctx context.Context, sr model.SeasonResult) (model.SeasonResult, error)
}

// Store runs recalculations transactionally.
type Store interface {
	// InSeasonTx runs fn in a transaction scoped to one season. Implementations
	// must serialize concurrent calls for the same season and must not expose
	// partial writes to readers before fn returns nil.
	InSeasonTx(ctx context.Context, seasonID int64, fn func(ctx context.Context, tx Tx) error) error
}
