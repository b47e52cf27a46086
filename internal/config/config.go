// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and DIVARI_* env vars.
// - Errors returned to callers wrap this package's sentinel kinds.
package config

import (
	"runtime"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// StorageDriver selects the repository implementation.
	StorageDriver string `koanf:"storage_driver" validate:"oneof=memory sqlite postgres"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path" validate:"required_if=StorageDriver sqlite"`

	// PostgresURL is the connection string used by the postgres driver.
	PostgresURL string `koanf:"postgres_url" validate:"required_if=StorageDriver postgres"`

	// QueueSize bounds the in-memory recalculation job queue.
	QueueSize int `koanf:"queue_size" validate:"min=1"`

	// WorkerCount sets the number of recalculation workers.
	WorkerCount int `koanf:"worker_count" validate:"min=1"`

	// DedupeSize bounds the pending-job coalescing set.
	DedupeSize int `koanf:"dedupe_size" validate:"min=0"`

	// RecalcConcurrency caps how many seasons a bulk recalculation runs at once.
	RecalcConcurrency int `koanf:"recalc_concurrency" validate:"min=1"`

	// RecalcRatePerSec and RecalcBurst throttle the HTTP recalculation triggers.
	RecalcRatePerSec float64 `koanf:"recalc_rate_per_sec" validate:"gt=0"`
	RecalcBurst      int     `koanf:"recalc_burst" validate:"min=1"`

	// MaxRankingLimit caps the limit query parameter of the ranking report; 0 means uncapped.
	MaxRankingLimit int `koanf:"max_ranking_limit" validate:"min=0"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		StorageDriver:     DriverSQLite,
		SQLitePath:        "divari.db",
		QueueSize:         1024,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        4096,
		RecalcConcurrency: 1,
		RecalcRatePerSec:  1,
		RecalcBurst:       5,
		MaxRankingLimit:   0,
	}
}
