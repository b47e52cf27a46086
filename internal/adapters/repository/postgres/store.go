// Package postgres opens the PostgreSQL-backed divari store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/okian/divari/internal/adapters/repository/postgres/migrations"
	"github.com/okian/divari/internal/adapters/repository/sqlstore"
)

const (
	maxConns       = 10
	connectTimeout = 5 * time.Second

	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Dialect describes PostgreSQL to sqlstore. Season transactions take a
// transaction-scoped advisory lock keyed by the season id.
var Dialect = sqlstore.Dialect{
	Name:        "postgres",
	Placeholder: sq.Dollar,
	LockSeason:  lockSeason,
	Constraint:  constraint,
}

// Store is the sqlstore over a pgx pool.
type Store struct {
	*sqlstore.Store
	pool *pgxpool.Pool
}

// Open connects to url, applies migrations and returns the store.
func Open(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	cfg.MaxConns = maxConns

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(pingCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := sqlstore.Migrate(ctx, db, migrations.FS, Dialect); err != nil {
		_ = db.Close()
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{Store: sqlstore.New(db, Dialect), pool: pool}, nil
}

// Close closes the database handle and the pool.
func (s *Store) Close() error {
	err := s.Store.Close()
	s.pool.Close()
	return err
}

func lockSeason(ctx context.Context, tx *sql.Tx, seasonID int64) error {
	_, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", seasonID)
	return err
}

func constraint(err error) int {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return sqlstore.ConstraintNone
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return sqlstore.ConstraintUnique
	case codeForeignKeyViolation:
		return sqlstore.ConstraintForeignKey
	}
	return sqlstore.ConstraintNone
}
