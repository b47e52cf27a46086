// Package dedupe tracks pending work keys so duplicate requests can be
// coalesced into the job already waiting.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 4096

// Deduper records pending keys.
type Deduper interface {
	// SeenAndRecord atomically checks whether key is pending and records it
	// if not. It returns true when key was already pending.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord marks key as no longer pending. Callers use it when the job
	// is picked up for processing or could not be enqueued.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper keeps pending keys in a map. In bounded mode a full set
// stops recording, so extra requests are processed rather than dropped.
type inMemoryDeduper struct {
	mu      sync.Mutex
	pending map[string]struct{}
	maxSize int // 0 or negative = unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.pending = make(map[string]struct{})
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.pending[key]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.pending) >= d.maxSize {
		return false
	}
	d.pending[key] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(ctx context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.pending[key]; ok {
		delete(d.pending, key)
		d.size.Add(-1)
	}
}

// Size returns the number of pending keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
