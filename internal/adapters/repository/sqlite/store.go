// Package sqlite opens the SQLite-backed divari store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/okian/divari/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/divari/internal/adapters/repository/sqlstore"
)

// Dialect describes SQLite to sqlstore. Transactions are opened with
// BEGIN IMMEDIATE, which already serializes writers database-wide.
var Dialect = sqlstore.Dialect{
	Name:        "sqlite",
	Placeholder: sq.Question,
	Constraint:  constraint,
}

// Open opens the database at path, applies migrations and returns the store.
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlstore.Migrate(ctx, db, migrations.FS, Dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlstore.New(db, Dialect), nil
}

func constraint(err error) int {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return sqlstore.ConstraintNone
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return sqlstore.ConstraintUnique
	case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
		return sqlstore.ConstraintForeignKey
	}
	return sqlstore.ConstraintNone
}
