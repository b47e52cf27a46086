// Package worker runs queued season recalculations.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/divari/internal/domain/model"
	"github.com/okian/divari/pkg/logger"
	"github.com/okian/divari/pkg/metrics"
)

// Job is what workers read off the queue.
type Job = model.Job

// Recalculator recomputes every derived result of a season.
type Recalculator interface {
	RecalculateSeason(ctx context.Context, seasonID int64) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue() <-chan Job
	Close() error
}

// Pending is the part of a deduper workers release keys through.
type Pending interface {
	Unrecord(ctx context.Context, key string)
}

// InMemoryWorker processes jobs from a queue until it closes.
type InMemoryWorker struct {
	queue   Queue
	recalc  Recalculator
	pending Pending
	name    string
	done    chan struct{}
	logger  logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, recalc Recalculator, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:  queue,
		recalc: recalc,
		name:   "worker",
		done:   make(chan struct{}),
		logger: logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run processes jobs until the queue closes or ctx is canceled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "recalculation job failed", logger.Error(err))
			}
		}
	}
}

// Done is closed once Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, job Job) error {
	if w.pending != nil {
		w.pending.Unrecord(ctx, job.Key())
	}

	start := time.Now()
	err := w.recalc.RecalculateSeason(ctx, job.SeasonID)
	took := time.Since(start)
	metrics.RecordWorkerJob(float64(took.Milliseconds()), err)

	if err != nil {
		metrics.RecordErrorByComponent("worker", "recalculation")
		return fmt.Errorf("job %s (season %d): %w", job.ID, job.SeasonID, err)
	}
	w.logger.Debug(ctx, "recalculated season",
		logger.String("job", job.ID),
		logger.Int64("season", job.SeasonID),
		logger.String("reason", job.Reason),
		logger.Duration("waited", start.Sub(job.Enqueued)),
		logger.Duration("took", took),
	)
	return nil
}

// Pool manages multiple workers on one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers; fewer than one means one per CPU.
// opts are applied to every worker.
func NewPool(workerCount int, queue Queue, recalc Recalculator, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, recalc, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it, or for
// ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", ctx.Err())
		}
	}
	return nil
}
