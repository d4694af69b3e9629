package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/store"
)

// Fetch loads a fresh value.
type Fetch[T any] func(ctx context.Context) (T, error)

// Latest holds the value of the most recently started load that has
// completed.
type Latest[T any] struct {
	clock *Clock

	mu      sync.Mutex
	applied int64
	value   T
	loaded  bool
}

// Option configures a Latest.
type Option func(*options)

type options struct {
	clock *Clock
}

// WithClock shares a sequence clock between several values.
func WithClock(c *Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// New creates an empty Latest.
func New[T any](opts ...Option) *Latest[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = NewClock()
	}
	return &Latest[T]{clock: o.clock}
}

// Begin starts a load and returns its sequence number.
func (l *Latest[T]) Begin() int64 {
	return l.clock.Next()
}

// Apply stores v if seq is newer than the applied sequence.
// Returns false when the result is stale and was dropped.
func (l *Latest[T]) Apply(seq int64, v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if seq <= l.applied {
		return false
	}
	l.applied = seq
	l.value = v
	l.loaded = true
	return true
}

// Value returns the current value, its sequence number, and whether any
// load has been applied yet.
func (l *Latest[T]) Value() (T, int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.applied, l.loaded
}

// Refresh runs fetch and applies its result unless a newer load finished
// first. A cancelled context discards the result.
func (l *Latest[T]) Refresh(ctx context.Context, fetch Fetch[T]) (bool, error) {
	seq := l.Begin()

	v, err := fetch(ctx)
	if err != nil {
		return false, fmt.Errorf("refresh %d: %w", seq, err)
	}
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("refresh %d: %w", seq, err)
	}

	if !l.Apply(seq, v) {
		slog.Debug("stale refresh dropped", "seq", seq)
		return false, nil
	}
	return true, nil
}

// Collection returns a Fetch that loads a collection from s.
func Collection[T record.Record](s store.CollectionStore, name string) Fetch[[]T] {
	return func(ctx context.Context) ([]T, error) {
		records, _, err := store.GetCollection[T](ctx, s, name)
		return records, err
	}
}
