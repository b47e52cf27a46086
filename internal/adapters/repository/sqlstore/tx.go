package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/okian/divari/internal/domain/divari"
	"github.com/okian/divari/internal/domain/model"
)

// sqlTx implements divari.Tx on one database transaction.
type sqlTx struct {
	tx *sql.Tx
	s  *Store
}

func (t *sqlTx) CompetitionsBetween(ctx context.Context, start, end time.Time) ([]model.Competition, error) {
	return queryCompetitions(ctx, t.tx, t.s.sb.Select(competitionColumns...).
		From("competitions").
		Where(sq.GtOrEq{"date": formatDay(start)}).
		Where(sq.LtOrEq{"date": formatDay(end)}).
		OrderBy("date", "id"))
}

func (t *sqlTx) ResultBowTypes(ctx context.Context, competitionID int64) ([]model.BowType, error) {
	rows, err := qQuery(ctx, t.tx, t.s.sb.Select("DISTINCT bow_type").
		From("results").
		Where(sq.Eq{"competition_id": competitionID}).
		OrderBy("bow_type"))
	if err != nil {
		return nil, fmt.Errorf("query bow types: %w", err)
	}
	defer rows.Close()

	var out []model.BowType
	for rows.Next() {
		var bow string
		if err := rows.Scan(&bow); err != nil {
			return nil, fmt.Errorf("scan bow type: %w", err)
		}
		out = append(out, model.BowType(bow))
	}
	return out, rows.Err()
}

func (t *sqlTx) Results(ctx context.Context, competitionID int64, bow model.BowType) ([]model.Result, error) {
	return queryResults(ctx, t.tx, t.s.sb.Select(resultColumns...).
		From("results").
		Where(sq.Eq{"competition_id": competitionID, "bow_type": string(bow)}).
		OrderBy("score DESC", "id"))
}

func (t *sqlTx) DeleteTeamResults(ctx context.Context, competitionID int64) error {
	if _, err := qExec(ctx, t.tx, t.s.sb.Delete("team_results").Where(sq.Eq{"competition_id": competitionID})); err != nil {
		return fmt.Errorf("delete team results: %w", err)
	}
	return nil
}

func (t *sqlTx) CreateTeamResult(ctx context.Context, tr model.TeamResult) (model.TeamResult, error) {
	id, err := qInsert(ctx, t.tx, t.s.sb.Insert("team_results").
		Columns("competition_id", "team_id", "score").
		Values(tr.CompetitionID, tr.TeamID, tr.Score))
	if err != nil {
		return model.TeamResult{}, t.s.mapErr(err)
	}
	tr.ID = id
	return tr, nil
}

func (t *sqlTx) FindTeam(ctx context.Context, key model.TeamKey) (model.Team, bool, error) {
	query, args, err := t.s.sb.Select(teamColumns...).
		From("teams").
		Where(sq.Eq{
			"organization_id": key.OrganizationID,
			"bow_type":        string(key.BowType),
			"number":          key.Number,
			"season_id":       key.SeasonID,
		}).ToSql()
	if err != nil {
		return model.Team{}, false, err
	}
	team, err := scanTeam(t.tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Team{}, false, nil
	}
	if err != nil {
		return model.Team{}, false, err
	}
	return team, true, nil
}

func (t *sqlTx) CreateTeam(ctx context.Context, team model.Team) (model.Team, error) {
	id, err := qInsert(ctx, t.tx, t.s.sb.Insert("teams").
		Columns("organization_id", "bow_type", "number", "division", "season_id").
		Values(team.OrganizationID, string(team.BowType), team.Number, team.Division, team.SeasonID))
	if err != nil {
		return model.Team{}, t.s.mapErr(err)
	}
	team.ID = id
	return team, nil
}

func (t *sqlTx) SeasonTeams(ctx context.Context, seasonID int64) ([]model.Team, error) {
	return seasonTeams(ctx, t.tx, t.s.sb, seasonID)
}

func (t *sqlTx) TeamResultScores(ctx context.Context, teamID int64) ([]int, error) {
	rows, err := qQuery(ctx, t.tx, t.s.sb.Select("score").
		From("team_results").
		Where(sq.Eq{"team_id": teamID}).
		OrderBy("score DESC"))
	if err != nil {
		return nil, fmt.Errorf("query team result scores: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			return nil, fmt.Errorf("scan team result score: %w", err)
		}
		out = append(out, score)
	}
	return out, rows.Err()
}

func (t *sqlTx) DeleteSeasonResults(ctx context.Context, seasonID int64) error {
	q := t.s.sb.Delete("season_results").
		Where("team_id IN (SELECT id FROM teams WHERE season_id = ?)", seasonID)
	if _, err := qExec(ctx, t.tx, q); err != nil {
		return fmt.Errorf("delete season results: %w", err)
	}
	return nil
}

func (t *sqlTx) CreateSeasonResult(ctx context.Context, sr model.SeasonResult) (model.SeasonResult, error) {
	id, err := qInsert(ctx, t.tx, t.s.sb.Insert("season_results").
		Columns("team_id", "score").
		Values(sr.TeamID, sr.Score))
	if err != nil {
		return model.SeasonResult{}, t.s.mapErr(err)
	}
	sr.ID = id
	return sr, nil
}

var _ divari.Tx = (*sqlTx)(nil)
