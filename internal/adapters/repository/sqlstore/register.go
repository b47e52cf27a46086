package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"

	"github.com/okian/divari/internal/adapters/repository"
	"github.com/okian/divari/internal/domain/model"
	"github.com/okian/divari/internal/domain/ranking"
)

// CreateOrganization stores org.
func (s *Store) CreateOrganization(ctx context.Context, org model.Organization) (model.Organization, error) {
	id, err := qInsert(ctx, s.db, s.sb.Insert("organizations").
		Columns("name", "abbreviation", "external").
		Values(org.Name, org.Abbreviation, org.External))
	if err != nil {
		return model.Organization{}, fmt.Errorf("create organization: %w", s.mapErr(err))
	}
	org.ID = id
	return org, nil
}

// Organization returns the organization with id.
func (s *Store) Organization(ctx context.Context, id int64) (model.Organization, error) {
	var org model.Organization
	err := qRow(ctx, s.db, s.sb.Select("id", "name", "abbreviation", "external").
		From("organizations").
		Where(sq.Eq{"id": id}),
		&org.ID, &org.Name, &org.Abbreviation, &org.External)
	if err != nil {
		return model.Organization{}, notFound(err, "organization", id)
	}
	return org, nil
}

// CreateAthlete stores a.
func (s *Store) CreateAthlete(ctx context.Context, a model.Athlete) (model.Athlete, error) {
	org, err := s.Organization(ctx, a.Organization.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Athlete{}, fmt.Errorf("%w: organization %d", repository.ErrReference, a.Organization.ID)
	}
	if err != nil {
		return model.Athlete{}, err
	}
	id, err := qInsert(ctx, s.db, s.sb.Insert("athletes").
		Columns("first_name", "last_name", "organization_id").
		Values(a.FirstName, a.LastName, a.Organization.ID))
	if err != nil {
		return model.Athlete{}, fmt.Errorf("create athlete: %w", s.mapErr(err))
	}
	a.ID = id
	a.Organization = org
	return a, nil
}

// CreateRankedCompetition stores c.
func (s *Store) CreateRankedCompetition(ctx context.Context, c model.RankedCompetition) (model.RankedCompetition, error) {
	id, err := qInsert(ctx, s.db, s.sb.Insert("ranked_competitions").
		Columns("name", "date_start", "date_end", "type", "level").
		Values(c.Name, formatDay(c.DateStart), formatDay(c.DateEnd), c.Type, c.Level))
	if err != nil {
		return model.RankedCompetition{}, fmt.Errorf("create ranked competition: %w", s.mapErr(err))
	}
	c.ID = id
	return c, nil
}

// CreateRegisterResult stores r.
func (s *Store) CreateRegisterResult(ctx context.Context, r model.RegisterResult) (model.RegisterResult, error) {
	id, err := qInsert(ctx, s.db, s.sb.Insert("register_results").
		Columns("competition_id", "athlete_id", "organization_id", "category", "score", "position").
		Values(r.CompetitionID, r.AthleteID, nullable(r.OrganizationID), r.Category, r.Score, nullable(r.Position)))
	if err != nil {
		return model.RegisterResult{}, fmt.Errorf("create register result: %w", s.mapErr(err))
	}
	r.ID = id
	return r, nil
}

// RankedResults implements ranking.Source.
func (s *Store) RankedResults(ctx context.Context, f ranking.ResultFilter) ([]model.RankedResult, error) {
	q := s.sb.Select(
		"r.id", "r.competition_id", "r.category", "r.score", "c.type",
		"a.id", "a.first_name", "a.last_name",
		"o.id", "o.name", "o.abbreviation", "o.external",
	).
		From("register_results r").
		Join("ranked_competitions c ON c.id = r.competition_id").
		Join("athletes a ON a.id = r.athlete_id").
		Join("organizations o ON o.id = a.organization_id").
		Where(sq.Eq{
			"c.type":     f.CompetitionTypes,
			"r.category": f.Categories,
			"o.external": false,
		}).
		Where(sq.GtOrEq{"c.date_end": formatDay(f.DateStart)}).
		Where(sq.LtOrEq{"c.date_start": formatDay(f.DateEnd)}).
		OrderBy("a.id", "r.score DESC", "r.id")

	rows, err := qQuery(ctx, s.db, q)
	if err != nil {
		return nil, fmt.Errorf("query ranked results: %w", err)
	}
	defer rows.Close()

	var out []model.RankedResult
	for rows.Next() {
		var r model.RankedResult
		a := &r.Athlete
		if err := rows.Scan(
			&r.ID, &r.CompetitionID, &r.Category, &r.Score, &r.CompetitionType,
			&a.ID, &a.FirstName, &a.LastName,
			&a.Organization.ID, &a.Organization.Name, &a.Organization.Abbreviation, &a.Organization.External,
		); err != nil {
			return nil, fmt.Errorf("scan ranked result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranked results: %w", err)
	}
	return out, nil
}

// PlacedResults implements ranking.Source.
func (s *Store) PlacedResults(ctx context.Context, f ranking.PlacementFilter) ([]model.PlacedResult, error) {
	year := strconv.Itoa(f.Year)
	q := s.sb.Select(
		"r.id", "r.competition_id", "r.position",
		"o.id", "o.name", "o.abbreviation", "o.external",
	).
		From("register_results r").
		Join("ranked_competitions c ON c.id = r.competition_id").
		Join("organizations o ON o.id = r.organization_id").
		Where(sq.Eq{"c.level": f.Levels}).
		Where(sq.GtOrEq{"c.date_start": year + "-01-01"}).
		Where(sq.LtOrEq{"c.date_start": year + "-12-31"}).
		Where(sq.NotEq{"r.position": nil}).
		Where(sq.LtOrEq{"r.position": f.MaxPosition}).
		OrderBy("r.id")

	rows, err := qQuery(ctx, s.db, q)
	if err != nil {
		return nil, fmt.Errorf("query placed results: %w", err)
	}
	defer rows.Close()

	var out []model.PlacedResult
	for rows.Next() {
		var (
			r        model.PlacedResult
			org      model.Organization
			position sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.CompetitionID, &position,
			&org.ID, &org.Name, &org.Abbreviation, &org.External); err != nil {
			return nil, fmt.Errorf("scan placed result: %w", err)
		}
		r.Position = int(position.Int64)
		r.Organization = &org
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate placed results: %w", err)
	}
	return out, nil
}
