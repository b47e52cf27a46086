// Package sqlstore implements repository.Store on database/sql. Drivers plug
// in through a Dialect; queries are built with squirrel.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/okian/divari/internal/adapters/repository"
	"github.com/okian/divari/internal/domain/divari"
)

// Constraint classes a Dialect can recognize in driver errors.
const (
	ConstraintNone = iota
	ConstraintUnique
	ConstraintForeignKey
)

// Dialect carries the driver specific parts of the store.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat
	// LockSeason, when set, runs first inside every season transaction.
	LockSeason func(ctx context.Context, tx *sql.Tx, seasonID int64) error
	// Constraint classifies a driver error.
	Constraint func(err error) int
}

// Store is a repository.Store over a *sql.DB.
type Store struct {
	db *sql.DB
	d  Dialect
	sb sq.StatementBuilderType
}

// New wraps db. The schema must already be migrated.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{
		db: db,
		d:  d,
		sb: sq.StatementBuilder.PlaceholderFormat(d.Placeholder),
	}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InSeasonTx runs fn inside one database transaction.
func (s *Store) InSeasonTx(ctx context.Context, seasonID int64, fn func(ctx context.Context, tx divari.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin season tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.d.LockSeason != nil {
		if err := s.d.LockSeason(ctx, tx, seasonID); err != nil {
			return fmt.Errorf("lock season %d: %w", seasonID, err)
		}
	}
	if err := fn(ctx, &sqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit season tx: %w", s.mapErr(err))
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func qExec(ctx context.Context, db querier, q sq.Sqlizer) (sql.Result, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return db.ExecContext(ctx, query, args...)
}

func qQuery(ctx context.Context, db querier, q sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return db.QueryContext(ctx, query, args...)
}

func qRow(ctx context.Context, db querier, q sq.Sqlizer, dest ...any) error {
	query, args, err := q.ToSql()
	if err != nil {
		return err
	}
	return db.QueryRowContext(ctx, query, args...).Scan(dest...)
}

// qInsert runs an insert and returns the new row id.
func qInsert(ctx context.Context, db querier, q sq.InsertBuilder) (int64, error) {
	var id int64
	err := qRow(ctx, db, q.Suffix("RETURNING id"), &id)
	return id, err
}

// mapErr translates constraint violations to repository sentinels.
func (s *Store) mapErr(err error) error {
	if err == nil || s.d.Constraint == nil {
		return err
	}
	switch s.d.Constraint(err) {
	case ConstraintUnique:
		return fmt.Errorf("%w: %w", repository.ErrAlreadyExists, err)
	case ConstraintForeignKey:
		return fmt.Errorf("%w: %w", repository.ErrReference, err)
	}
	return err
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %d", repository.ErrNotFound, what, id)
	}
	return fmt.Errorf("get %s %d: %w", what, id, err)
}

func formatDay(t time.Time) string {
	return t.Format(time.DateOnly)
}

// parseDay accepts plain dates and the RFC 3339 rendering some drivers
// produce for DATE columns.
func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(time.DateOnly) {
		s = s[:len(time.DateOnly)]
	}
	return time.Parse(time.DateOnly, s)
}

// nullable maps the zero id or position to NULL.
func nullable[T int | int64](v T) any {
	if v == 0 {
		return nil
	}
	return v
}

var _ repository.Store = (*Store)(nil)
