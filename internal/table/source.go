package table

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrStale is returned by Fetch when a newer fetch started before this one
// resolved. Its result is discarded.
var ErrStale = errors.New("table: stale fetch discarded")

// State is the lifecycle of a record source.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

// String returns a lower case state name.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Query carries list parameters to a fetcher.
type Query struct {
	Page     int
	PageSize int
	Search   string
	Sort     SortSpec
	Filters  map[string]string
}

// Fetcher loads one snapshot of records.
type Fetcher[R any] func(ctx context.Context, q Query) ([]R, error)

// Snapshot is the state of a source at one point in time. Generation changes
// whenever a fetch resolves, so views can drop state tied to old records.
type Snapshot[R any] struct {
	Records    []R
	Generation uint64
	State      State
	Err        error
}

// Source wraps a fetcher and keeps the latest resolved snapshot.
type Source[R any] struct {
	fetch  Fetcher[R]
	latest atomic.Uint64

	mu   sync.RWMutex
	snap Snapshot[R]
}

// NewSource builds a source around fetch.
func NewSource[R any](fetch Fetcher[R]) *Source[R] {
	return &Source[R]{fetch: fetch, snap: Snapshot[R]{Records: []R{}}}
}

// NewStaticSource serves a fixed slice, for mocks and tests.
func NewStaticSource[R any](records []R) *Source[R] {
	return NewSource(func(context.Context, Query) ([]R, error) {
		out := make([]R, len(records))
		copy(out, records)
		return out, nil
	})
}

// Fetch loads a new snapshot. When another fetch starts before this one
// returns, this result is dropped and ErrStale is returned. A failed fetch
// leaves an empty record collection behind.
func (s *Source[R]) Fetch(ctx context.Context, q Query) (Snapshot[R], error) {
	gen := s.latest.Add(1)

	s.mu.Lock()
	s.snap.State = StateLoading
	s.mu.Unlock()

	records, err := s.fetch(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.latest.Load() {
		return s.snap, ErrStale
	}
	if err != nil {
		s.snap = Snapshot[R]{Records: []R{}, Generation: gen, State: StateFailed, Err: err}
		return s.snap, err
	}
	if records == nil {
		records = []R{}
	}
	s.snap = Snapshot[R]{Records: records, Generation: gen, State: StateReady}
	return s.snap, nil
}

// Snapshot returns the latest state.
func (s *Source[R]) Snapshot() Snapshot[R] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
