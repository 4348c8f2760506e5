package repo

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/weavesync/models"
)

// Oneshot is a single-consumption result cell: the delegate contract of the
// engine. Exactly one outcome may pass through it; a second Fire is
// rejected with ErrDelegateAlreadyFired so double-delivery is detectable
// instead of silently overwriting a result. Fire and Await may run on
// different goroutines.
type Oneshot[T any] struct {
	mu    sync.Mutex
	fired bool
	ch    chan T
}

// NewOneshot builds an unfired cell.
func NewOneshot[T any]() *Oneshot[T] {
	return &Oneshot[T]{ch: make(chan T, 1)}
}

// Fire delivers the outcome. The second and every later call returns
// ErrDelegateAlreadyFired without touching the stored outcome.
func (o *Oneshot[T]) Fire(v T) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.fired {
		return ErrDelegateAlreadyFired
	}
	o.fired = true
	o.ch <- v
	return nil
}

// Fired reports whether an outcome has been delivered.
func (o *Oneshot[T]) Fired() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fired
}

// Await blocks until the outcome arrives, ctx is done, or timeout elapses
// (timeout <= 0 waits on ctx alone). Expiry returns ErrDelegateTimeout so
// the caller can treat an unresponsive operation as a transport failure.
func (o *Oneshot[T]) Await(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case v := <-o.ch:
		return v, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return zero, ErrDelegateTimeout
		}
		return zero, ctx.Err()
	}
}

// Outcome payloads for each delegate kind. Err carries the typed failure;
// nil Err is the success variant.

// BeginOutcome resolves a Session.Begin call.
type BeginOutcome struct {
	Err error
}

// GuidsOutcome resolves a Session.GuidsSince call.
type GuidsOutcome struct {
	GUIDs []string
	Err   error
}

// StoreOutcome resolves one Session.Store call. A per-record failure sets
// Err but is aggregated by the caller, not escalated.
type StoreOutcome struct {
	GUID string
	Err  error
}

// WipeOutcome resolves a Session.Wipe call.
type WipeOutcome struct {
	Err error
}

// FinishOutcome resolves a Session.Finish call.
type FinishOutcome struct {
	Err error
}

// FetchOutcome is the terminal outcome of a fetch stream. Failures holds
// the per-record failures (crypto or decode) encountered along the way.
type FetchOutcome struct {
	Fetched  int
	Failures []RecordFailure
	Err      error
}

// FetchStream is the fetch delegate: a lazy, finite, non-restartable
// record sequence plus a terminal outcome. Records is closed before Done
// fires.
type FetchStream struct {
	Records chan models.Record
	Done    *Oneshot[FetchOutcome]
}

// NewFetchStream builds a stream with the given channel capacity.
func NewFetchStream(buffer int) *FetchStream {
	return &FetchStream{
		Records: make(chan models.Record, buffer),
		Done:    NewOneshot[FetchOutcome](),
	}
}
