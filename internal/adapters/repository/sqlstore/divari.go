package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/okian/divari/internal/adapters/repository"
	"github.com/okian/divari/internal/domain/model"
)

var seasonColumns = []string{
	"id", "name", "date_start", "date_end", "result_count",
	"start_level_recurve", "start_level_compound", "start_level_barebow", "start_level_longbow",
}

// startLevelColumns pairs every bow type with its season column.
var startLevelColumns = []struct {
	bow    model.BowType
	column string
}{
	{model.BowRecurve, "start_level_recurve"},
	{model.BowCompound, "start_level_compound"},
	{model.BowBarebow, "start_level_barebow"},
	{model.BowLongbow, "start_level_longbow"},
}

func scanSeason(row scanner) (model.Season, error) {
	var (
		s          model.Season
		start, end string
		levels     [4]sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.Name, &start, &end, &s.ResultCount,
		&levels[0], &levels[1], &levels[2], &levels[3]); err != nil {
		return model.Season{}, err
	}
	var err error
	if s.DateStart, err = parseDay(start); err != nil {
		return model.Season{}, fmt.Errorf("season %d date_start: %w", s.ID, err)
	}
	if s.DateEnd, err = parseDay(end); err != nil {
		return model.Season{}, fmt.Errorf("season %d date_end: %w", s.ID, err)
	}
	s.StartLevels = make(map[model.BowType]int, len(startLevelColumns))
	for i, c := range startLevelColumns {
		if levels[i].Valid {
			s.StartLevels[c.bow] = int(levels[i].Int64)
		}
	}
	return s, nil
}

func (s *Store) querySeasons(ctx context.Context, q sq.SelectBuilder) ([]model.Season, error) {
	rows, err := qQuery(ctx, s.db, q)
	if err != nil {
		return nil, fmt.Errorf("query seasons: %w", err)
	}
	defer rows.Close()

	var out []model.Season
	for rows.Next() {
		season, err := scanSeason(rows)
		if err != nil {
			return nil, fmt.Errorf("scan season: %w", err)
		}
		out = append(out, season)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seasons: %w", err)
	}
	return out, nil
}

// CreateSeason stores season.
func (s *Store) CreateSeason(ctx context.Context, season model.Season) (model.Season, error) {
	values := []any{season.Name, formatDay(season.DateStart), formatDay(season.DateEnd), season.ResultCount}
	for _, c := range startLevelColumns {
		if lvl, ok := season.StartLevel(c.bow); ok {
			values = append(values, lvl)
		} else {
			values = append(values, nil)
		}
	}
	id, err := qInsert(ctx, s.db, s.sb.Insert("seasons").Columns(seasonColumns[1:]...).Values(values...))
	if err != nil {
		return model.Season{}, fmt.Errorf("create season: %w", s.mapErr(err))
	}
	season.ID = id
	return season, nil
}

// Season returns the season with id.
func (s *Store) Season(ctx context.Context, id int64) (model.Season, error) {
	query, args, err := s.sb.Select(seasonColumns...).From("seasons").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return model.Season{}, err
	}
	season, err := scanSeason(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return model.Season{}, notFound(err, "season", id)
	}
	return season, nil
}

// Seasons returns every season by start date.
func (s *Store) Seasons(ctx context.Context) ([]model.Season, error) {
	return s.querySeasons(ctx, s.sb.Select(seasonColumns...).From("seasons").OrderBy("date_start", "id"))
}

// SeasonsAt returns the seasons whose window contains d.
func (s *Store) SeasonsAt(ctx context.Context, d time.Time) ([]model.Season, error) {
	day := formatDay(d)
	return s.querySeasons(ctx, s.sb.Select(seasonColumns...).
		From("seasons").
		Where(sq.LtOrEq{"date_start": day}).
		Where(sq.GtOrEq{"date_end": day}).
		OrderBy("date_start", "id"))
}

// PreviousSeason returns the season with the latest end date before d.
func (s *Store) PreviousSeason(ctx context.Context, d time.Time) (model.Season, error) {
	seasons, err := s.querySeasons(ctx, s.sb.Select(seasonColumns...).
		From("seasons").
		Where(sq.Lt{"date_end": formatDay(d)}).
		OrderBy("date_end DESC", "id DESC").
		Limit(1))
	if err != nil {
		return model.Season{}, err
	}
	if len(seasons) == 0 {
		return model.Season{}, fmt.Errorf("%w: season before %s", repository.ErrNotFound, formatDay(d))
	}
	return seasons[0], nil
}

// EnsureTeams creates the missing teams.
func (s *Store) EnsureTeams(ctx context.Context, teams []model.Team) (int, error) {
	created := 0
	for _, t := range teams {
		res, err := qExec(ctx, s.db, s.sb.Insert("teams").
			Columns("organization_id", "bow_type", "number", "division", "season_id").
			Values(t.OrganizationID, string(t.BowType), t.Number, t.Division, t.SeasonID).
			Suffix("ON CONFLICT (organization_id, bow_type, number, season_id) DO NOTHING"))
		if err != nil {
			return created, fmt.Errorf("ensure team: %w", s.mapErr(err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return created, fmt.Errorf("ensure team: %w", err)
		}
		created += int(n)
	}
	return created, nil
}

// Teams returns the teams of a season.
func (s *Store) Teams(ctx context.Context, seasonID int64) ([]model.Team, error) {
	return seasonTeams(ctx, s.db, s.sb, seasonID)
}

var teamColumns = []string{"id", "organization_id", "bow_type", "number", "division", "season_id"}

func scanTeam(row scanner) (model.Team, error) {
	var t model.Team
	var bow string
	if err := row.Scan(&t.ID, &t.OrganizationID, &bow, &t.Number, &t.Division, &t.SeasonID); err != nil {
		return model.Team{}, err
	}
	t.BowType = model.BowType(bow)
	return t, nil
}

func seasonTeams(ctx context.Context, db querier, sb sq.StatementBuilderType, seasonID int64) ([]model.Team, error) {
	rows, err := qQuery(ctx, db, sb.Select(teamColumns...).
		From("teams").
		Where(sq.Eq{"season_id": seasonID}).
		OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	var out []model.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teams: %w", err)
	}
	return out, nil
}

// TeamResultCounts counts team results per team of the season.
func (s *Store) TeamResultCounts(ctx context.Context, seasonID int64) (map[int64]int, error) {
	rows, err := qQuery(ctx, s.db, s.sb.Select("t.id", "COUNT(tr.id)").
		From("teams t").
		LeftJoin("team_results tr ON tr.team_id = t.id").
		Where(sq.Eq{"t.season_id": seasonID}).
		GroupBy("t.id"))
	if err != nil {
		return nil, fmt.Errorf("query team result counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan team result count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team result counts: %w", err)
	}
	return counts, nil
}

// SeasonStandings returns the season table.
func (s *Store) SeasonStandings(ctx context.Context, seasonID int64, bow model.BowType) ([]model.Standing, error) {
	q := s.sb.Select(
		"t.id", "t.organization_id", "t.bow_type", "t.number", "t.division", "t.season_id",
		"o.id", "o.name", "o.abbreviation", "o.external", "sr.score",
	).
		From("season_results sr").
		Join("teams t ON t.id = sr.team_id").
		Join("organizations o ON o.id = t.organization_id").
		Where(sq.Eq{"t.season_id": seasonID}).
		OrderBy("t.bow_type", "t.division", "sr.score DESC", "t.id")
	if bow != "" {
		q = q.Where(sq.Eq{"t.bow_type": string(bow)})
	}

	rows, err := qQuery(ctx, s.db, q)
	if err != nil {
		return nil, fmt.Errorf("query standings: %w", err)
	}
	defer rows.Close()

	var out []model.Standing
	for rows.Next() {
		var st model.Standing
		var bowType string
		o := &st.Organization
		if err := rows.Scan(&st.Team.ID, &st.Team.OrganizationID, &bowType, &st.Team.Number, &st.Team.Division,
			&st.Team.SeasonID, &o.ID, &o.Name, &o.Abbreviation, &o.External, &st.Score); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		st.Team.BowType = model.BowType(bowType)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate standings: %w", err)
	}
	return out, nil
}

// CreateCompetition stores c.
func (s *Store) CreateCompetition(ctx context.Context, c model.Competition) (model.Competition, error) {
	c.Date = model.Day(c.Date)
	id, err := qInsert(ctx, s.db, s.sb.Insert("competitions").
		Columns("organization_id", "date").
		Values(c.OrganizationID, formatDay(c.Date)))
	if err != nil {
		return model.Competition{}, fmt.Errorf("create competition: %w", s.mapErr(err))
	}
	c.ID = id
	return c, nil
}

var competitionColumns = []string{"id", "organization_id", "date"}

func scanCompetition(row scanner) (model.Competition, error) {
	var c model.Competition
	var date string
	if err := row.Scan(&c.ID, &c.OrganizationID, &date); err != nil {
		return model.Competition{}, err
	}
	d, err := parseDay(date)
	if err != nil {
		return model.Competition{}, fmt.Errorf("competition %d date: %w", c.ID, err)
	}
	c.Date = d
	return c, nil
}

func queryCompetitions(ctx context.Context, db querier, q sq.SelectBuilder) ([]model.Competition, error) {
	rows, err := qQuery(ctx, db, q)
	if err != nil {
		return nil, fmt.Errorf("query competitions: %w", err)
	}
	defer rows.Close()

	var out []model.Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan competition: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate competitions: %w", err)
	}
	return out, nil
}

// Competition returns the competition with id.
func (s *Store) Competition(ctx context.Context, id int64) (model.Competition, error) {
	query, args, err := s.sb.Select(competitionColumns...).From("competitions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return model.Competition{}, err
	}
	c, err := scanCompetition(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return model.Competition{}, notFound(err, "competition", id)
	}
	return c, nil
}

// OrganizationCompetitions returns an organization's competitions within [from, to].
func (s *Store) OrganizationCompetitions(ctx context.Context, orgID int64, from, to time.Time) ([]model.Competition, error) {
	return queryCompetitions(ctx, s.db, s.sb.Select(competitionColumns...).
		From("competitions").
		Where(sq.Eq{"organization_id": orgID}).
		Where(sq.GtOrEq{"date": formatDay(from)}).
		Where(sq.LtOrEq{"date": formatDay(to)}).
		OrderBy("date", "id"))
}

// CreateResult stores r.
func (s *Store) CreateResult(ctx context.Context, r model.Result) (model.Result, error) {
	id, err := qInsert(ctx, s.db, s.sb.Insert("results").
		Columns("competition_id", "bow_type", "target_type", "athlete", "score").
		Values(r.CompetitionID, string(r.BowType), string(r.TargetType), r.Athlete, r.Score))
	if err != nil {
		return model.Result{}, fmt.Errorf("create result: %w", s.mapErr(err))
	}
	r.ID = id
	return r, nil
}

var resultColumns = []string{"id", "competition_id", "bow_type", "target_type", "athlete", "score"}

func queryResults(ctx context.Context, db querier, q sq.SelectBuilder) ([]model.Result, error) {
	rows, err := qQuery(ctx, db, q)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []model.Result
	for rows.Next() {
		var r model.Result
		var bow, target string
		if err := rows.Scan(&r.ID, &r.CompetitionID, &bow, &target, &r.Athlete, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.BowType = model.BowType(bow)
		r.TargetType = model.TargetType(target)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

// CompetitionResults returns the results of a competition in id order.
func (s *Store) CompetitionResults(ctx context.Context, competitionID int64) ([]model.Result, error) {
	return queryResults(ctx, s.db, s.sb.Select(resultColumns...).
		From("results").
		Where(sq.Eq{"competition_id": competitionID}).
		OrderBy("id"))
}

// Counts returns row totals.
func (s *Store) Counts(ctx context.Context) (repository.Counts, error) {
	var c repository.Counts
	err := qRow(ctx, s.db, s.sb.Select(
		"(SELECT COUNT(*) FROM seasons)",
		"(SELECT COUNT(*) FROM competitions)",
		"(SELECT COUNT(*) FROM results)",
		"(SELECT COUNT(*) FROM teams)",
		"(SELECT COUNT(*) FROM team_results)",
		"(SELECT COUNT(*) FROM season_results)",
	), &c.Seasons, &c.Competitions, &c.Results, &c.Teams, &c.TeamResults, &c.SeasonResults)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return repository.Counts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}
