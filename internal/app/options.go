package service

import (
	"time"

	"github.com/okian/divari/internal/adapters/repository"
	"github.com/okian/divari/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the store; Start then skips opening one and Stop leaves it open.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
		s.ownsStore = false
	}
}

// WithStorage selects the storage driver Start opens.
func WithStorage(driver, sqlitePath, postgresURL string) Option {
	return func(s *Service) {
		if driver != "" {
			s.driver = driver
		}
		s.sqlitePath = sqlitePath
		s.postgresURL = postgresURL
	}
}

// WithWorkerCount sets the number of recalculation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the pending-job set; 0 means unbounded.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithRecalcConcurrency caps how many seasons RecalculateSeasons runs at once.
func WithRecalcConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recalcConcurrency = n
		}
	}
}

// WithMaxRankingLimit caps the SJAL ranking length; 0 means uncapped.
func WithMaxRankingLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRankingLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now in input validation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
