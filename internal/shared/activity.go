package shared

import (
	"context"
	"sync"
	"sync/atomic"
)

// Activity is the application-wide busy indicator. It counts in-flight
// operations; the application is busy while at least one is running.
type Activity struct {
	inflight atomic.Int64
}

// NewActivity returns an idle tracker.
func NewActivity() *Activity {
	return &Activity{}
}

// Begin marks one operation as started. The returned func settles it and
// is safe to call more than once.
func (a *Activity) Begin() (done func()) {
	if a == nil {
		return func() {}
	}
	a.inflight.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { a.inflight.Add(-1) })
	}
}

// Busy reports whether any operation is in flight.
func (a *Activity) Busy() bool {
	return a != nil && a.inflight.Load() > 0
}

// InFlight returns the number of running operations.
func (a *Activity) InFlight() int64 {
	if a == nil {
		return 0
	}
	return a.inflight.Load()
}

// Track runs fn while the tracker found in ctx is marked busy.
func Track(ctx context.Context, fn func(context.Context) error) error {
	done := ActivityFromContext(ctx).Begin()
	defer done()
	return fn(ctx)
}
