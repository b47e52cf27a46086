// Package divari computes team results per competition and capped season
// standings for the divari league.
package divari

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/divari/internal/domain/model"
	"github.com/okian/divari/pkg/logger"
	"github.com/okian/divari/pkg/metrics"
)

const tracerName = "github.com/okian/divari/internal/domain/divari"

// Recalculation kinds reported to metrics.
const (
	KindCompetition = "competition"
	KindSeason      = "season"
)

var spanNames = map[string]string{
	KindCompetition: "Calculator.CalculateTeamResults",
	KindSeason:      "Calculator.CalculateSeasonResults",
}

// Stats summarizes the writes of one recalculation.
type Stats struct {
	Competitions  int
	TeamsCreated  int
	TeamResults   int
	SeasonResults int
}

func (s *Stats) add(o Stats) {
	s.Competitions += o.Competitions
	s.TeamsCreated += o.TeamsCreated
	s.TeamResults += o.TeamResults
	s.SeasonResults += o.SeasonResults
}

// Calculator recomputes derived divari results. Calls for the same season are
// serialized; different seasons run independently.
type Calculator struct {
	store  Store
	logger logger.Logger
	tracer trace.Tracer
	locks  *seasonLocks
}

// NewCalculator creates a calculator writing through store.
func NewCalculator(store Store, opts ...Option) *Calculator {
	c := &Calculator{
		store:  store,
		logger: logger.Get().Named("divari"),
		tracer: otel.Tracer(tracerName),
		locks:  newSeasonLocks(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CalculateTeamResults replaces every team result of comp with freshly formed
// teams, creating missing teams in season at the season's start level.
func (c *Calculator) CalculateTeamResults(ctx context.Context, comp model.Competition, season model.Season) (Stats, error) {
	if season.ID == 0 {
		return Stats{}, ErrInvalidSeason
	}
	return c.run(ctx, KindCompetition, season, func(ctx context.Context, tx Tx) (Stats, error) {
		return teamResults(ctx, tx, comp, season)
	}, attribute.Int64("divari.competition_id", comp.ID))
}

// CalculateSeasonResults recalculates every competition inside the season
// window, then rebuilds the season results of all teams of the season.
func (c *Calculator) CalculateSeasonResults(ctx context.Context, season model.Season) (Stats, error) {
	if season.ID == 0 {
		return Stats{}, ErrInvalidSeason
	}
	return c.run(ctx, KindSeason, season, func(ctx context.Context, tx Tx) (Stats, error) {
		return seasonResults(ctx, tx, season)
	})
}

func (c *Calculator) run(
	ctx context.Context,
	kind string,
	season model.Season,
	fn func(ctx context.Context, tx Tx) (Stats, error),
	attrs ...attribute.KeyValue,
) (Stats, error) {
	unlock := c.locks.lock(season.ID)
	defer unlock()

	attrs = append(attrs, attribute.Int64("divari.season_id", season.ID), attribute.String("divari.kind", kind))
	ctx, span := c.tracer.Start(ctx, spanNames[kind], trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	var stats Stats
	err := c.store.InSeasonTx(ctx, season.ID, func(ctx context.Context, tx Tx) error {
		s, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		stats = s
		return nil
	})
	elapsed := time.Since(start)
	metrics.RecordRecalculation(kind, float64(elapsed.Milliseconds()), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordErrorByComponent("divari", kind)
		c.logger.Error(ctx, "recalculation failed",
			logger.String("kind", kind),
			logger.Int64("season", season.ID),
			logger.Error(err),
		)
		return Stats{}, fmt.Errorf("%s recalculation for season %d: %w", kind, season.ID, err)
	}

	metrics.AddTeamsCreated(stats.TeamsCreated)
	metrics.AddTeamResultsWritten(stats.TeamResults)
	metrics.AddSeasonResultsWritten(stats.SeasonResults)
	span.SetAttributes(
		attribute.Int("divari.competitions", stats.Competitions),
		attribute.Int("divari.team_results", stats.TeamResults),
		attribute.Int("divari.season_results", stats.SeasonResults),
	)
	c.logger.Debug(ctx, "recalculated",
		logger.String("kind", kind),
		logger.Int64("season", season.ID),
		logger.Int("competitions", stats.Competitions),
		logger.Int("teams_created", stats.TeamsCreated),
		logger.Int("team_results", stats.TeamResults),
		logger.Int("season_results", stats.SeasonResults),
		logger.Duration("took", elapsed),
	)
	return stats, nil
}

// teamResults drops all team results of the competition, whatever season
// their teams belong to, and writes one per formed team.
func teamResults(ctx context.Context, tx Tx, comp model.Competition, season model.Season) (Stats, error) {
	stats := Stats{Competitions: 1}
	if err := tx.DeleteTeamResults(ctx, comp.ID); err != nil {
		return stats, fmt.Errorf("delete team results of competition %d: %w", comp.ID, err)
	}

	bows, err := tx.ResultBowTypes(ctx, comp.ID)
	if err != nil {
		return stats, fmt.Errorf("bow types of competition %d: %w", comp.ID, err)
	}

	for _, bow := range bows {
		results, err := tx.Results(ctx, comp.ID, bow)
		if err != nil {
			return stats, fmt.Errorf("results of competition %d (%s): %w", comp.ID, bow, err)
		}
		for _, g := range FormTeams(results) {
			key := model.TeamKey{
				OrganizationID: comp.OrganizationID,
				BowType:        bow,
				Number:         g.Number,
				SeasonID:       season.ID,
			}
			team, created, err := teamFor(ctx, tx, key, season)
			if err != nil {
				return stats, err
			}
			if created {
				stats.TeamsCreated++
			}
			if _, err := tx.CreateTeamResult(ctx, model.TeamResult{
				CompetitionID: comp.ID,
				TeamID:        team.ID,
				Score:         g.Score,
			}); err != nil {
				return stats, fmt.Errorf("create team result for team %d: %w", team.ID, err)
			}
			stats.TeamResults++
		}
	}
	metrics.RecordCompetitionProcessed()
	return stats, nil
}

// teamFor finds the team with key or creates it at the season start level.
func teamFor(ctx context.Context, tx Tx, key model.TeamKey, season model.Season) (model.Team, bool, error) {
	team, ok, err := tx.FindTeam(ctx, key)
	if err != nil {
		return model.Team{}, false, fmt.Errorf("find team: %w", err)
	}
	if ok {
		return team, false, nil
	}

	level, ok := season.StartLevel(key.BowType)
	if !ok {
		return model.Team{}, false, fmt.Errorf("%w: %s (season %d)", ErrMissingStartLevel, key.BowType, season.ID)
	}
	team, err = tx.CreateTeam(ctx, model.Team{
		OrganizationID: key.OrganizationID,
		BowType:        key.BowType,
		Number:         key.Number,
		Division:       level,
		SeasonID:       key.SeasonID,
	})
	if err != nil {
		return model.Team{}, false, fmt.Errorf("create team: %w", err)
	}
	return team, true, nil
}

func seasonResults(ctx context.Context, tx Tx, season model.Season) (Stats, error) {
	var stats Stats
	comps, err := tx.CompetitionsBetween(ctx, model.Day(season.DateStart), model.Day(season.DateEnd))
	if err != nil {
		return stats, fmt.Errorf("competitions of season %d: %w", season.ID, err)
	}
	for _, comp := range comps {
		s, err := teamResults(ctx, tx, comp, season)
		if err != nil {
			return stats, err
		}
		stats.add(s)
	}

	if err := tx.DeleteSeasonResults(ctx, season.ID); err != nil {
		return stats, fmt.Errorf("delete season results of season %d: %w", season.ID, err)
	}
	teams, err := tx.SeasonTeams(ctx, season.ID)
	if err != nil {
		return stats, fmt.Errorf("teams of season %d: %w", season.ID, err)
	}
	for _, team := range teams {
		scores, err := tx.TeamResultScores(ctx, team.ID)
		if err != nil {
			return stats, fmt.Errorf("team result scores of team %d: %w", team.ID, err)
		}
		if _, err := tx.CreateSeasonResult(ctx, model.SeasonResult{
			TeamID: team.ID,
			Score:  CapScore(scores, season.ResultCount),
		}); err != nil {
			return stats, fmt.Errorf("create season result for team %d: %w", team.ID, err)
		}
		stats.SeasonResults++
	}
	return stats, nil
}
