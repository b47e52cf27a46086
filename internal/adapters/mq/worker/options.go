package worker

import (
	"github.com/okian/divari/pkg/logger"
)

// Option applies a configuration option to an InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithPending releases a job's key when the job is picked up, so requests
// arriving during the run schedule a fresh job.
func WithPending(p Pending) Option {
	return func(w *InMemoryWorker) {
		w.pending = p
	}
}
