// Package repo implements the repository-session abstraction: a stateful
// handle over one local or remote data collection for the duration of one
// sync attempt, with single-fire delegate contracts bridging worker
// goroutines.
package repo

import (
	"context"
	"sync"

	"github.com/MKhiriev/weavesync/internal/logger"
	"github.com/MKhiriev/weavesync/models"
)

// Session wraps one Store with the Unstarted → Active → Finishing →
// Finished state machine (Aborted reachable from any non-terminal state).
// Every operation takes a delegate and returns immediately; the result is
// always delivered through the delegate because the underlying work may be
// asynchronous. Operations invoked outside their valid state report an
// *InvalidTransitionError through the delegate rather than panicking.
type Session struct {
	collection string
	store      Store
	log        *logger.Logger

	// wipeHook, when set, resets the collection's persisted high-water
	// mark alongside the data wipe.
	wipeHook func() error

	mu    sync.Mutex
	state State
}

// NewSession builds an Unstarted session over store.
func NewSession(collection string, store Store, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{collection: collection, store: store, log: log, state: StateUnstarted}
}

// WithWipeHook registers fn to run as part of Wipe, after the store data is
// cleared. Used to zero the persisted collection timestamp.
func (s *Session) WithWipeHook(fn func() error) *Session {
	s.wipeHook = fn
	return s
}

// Collection returns the collection name this session is bound to.
func (s *Session) Collection() string { return s.collection }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition moves to next if the current state equals from, returning the
// violating state otherwise.
func (s *Session) transition(op string, from, next State) *InvalidTransitionError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != from {
		return &InvalidTransitionError{Op: op, From: s.state}
	}
	s.state = next
	return nil
}

// requireActive verifies the session is Active for op.
func (s *Session) requireActive(op string) *InvalidTransitionError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return &InvalidTransitionError{Op: op, From: s.state}
	}
	return nil
}

// Begin activates the session. Valid only from Unstarted.
func (s *Session) Begin(delegate *Oneshot[BeginOutcome]) {
	go func() {
		if err := s.transition("begin", StateUnstarted, StateActive); err != nil {
			s.fireBegin(delegate, BeginOutcome{Err: err})
			return
		}
		s.fireBegin(delegate, BeginOutcome{})
	}()
}

// FetchSince streams records modified at or after newer through stream.
// Valid only in Active. Per-record failures ride the terminal outcome; a
// store-level failure aborts the stream with Err set.
func (s *Session) FetchSince(ctx context.Context, newer int64, stream *FetchStream) {
	go func() {
		defer close(stream.Records)

		if err := s.requireActive("fetchSince"); err != nil {
			s.fireFetch(stream, FetchOutcome{Err: err})
			return
		}

		records, failures, err := s.store.FetchSince(ctx, newer)
		if err != nil {
			s.fireFetch(stream, FetchOutcome{Failures: failures, Err: err})
			return
		}

		sent := 0
		for _, rec := range records {
			select {
			case stream.Records <- rec:
				sent++
			case <-ctx.Done():
				s.fireFetch(stream, FetchOutcome{Fetched: sent, Failures: failures, Err: ctx.Err()})
				return
			}
		}
		s.fireFetch(stream, FetchOutcome{Fetched: sent, Failures: failures})
	}()
}

// GuidsSince delivers the GUIDs modified at or after newer. Valid only in
// Active.
func (s *Session) GuidsSince(ctx context.Context, newer int64, delegate *Oneshot[GuidsOutcome]) {
	go func() {
		if err := s.requireActive("guidsSince"); err != nil {
			s.fireGuids(delegate, GuidsOutcome{Err: err})
			return
		}

		guids, err := s.store.GuidsSince(ctx, newer)
		s.fireGuids(delegate, GuidsOutcome{GUIDs: guids, Err: err})
	}()
}

// Store upserts rec by GUID. Valid only in Active. A failure is reported
// per record through the delegate; it never tears down the session.
func (s *Session) Store(ctx context.Context, rec models.Record, delegate *Oneshot[StoreOutcome]) {
	go func() {
		if err := s.requireActive("store"); err != nil {
			s.fireStore(delegate, StoreOutcome{GUID: rec.GUID, Err: err})
			return
		}

		err := s.store.Upsert(ctx, rec)
		s.fireStore(delegate, StoreOutcome{GUID: rec.GUID, Err: err})
	}()
}

// Wipe deletes every record in the collection and resets the persisted
// high-water mark via the wipe hook. Valid only in Active.
func (s *Session) Wipe(ctx context.Context, delegate *Oneshot[WipeOutcome]) {
	go func() {
		if err := s.requireActive("wipe"); err != nil {
			s.fireWipe(delegate, WipeOutcome{Err: err})
			return
		}

		if err := s.store.WipeAll(ctx); err != nil {
			s.fireWipe(delegate, WipeOutcome{Err: err})
			return
		}
		if s.wipeHook != nil {
			if err := s.wipeHook(); err != nil {
				s.fireWipe(delegate, WipeOutcome{Err: err})
				return
			}
		}
		s.fireWipe(delegate, WipeOutcome{})
	}()
}

// Finish moves Active → Finishing → Finished and releases the store. Valid
// only in Active.
func (s *Session) Finish(delegate *Oneshot[FinishOutcome]) {
	go func() {
		if err := s.transition("finish", StateActive, StateFinishing); err != nil {
			s.fireFinish(delegate, FinishOutcome{Err: err})
			return
		}

		err := s.store.Close()

		s.mu.Lock()
		s.state = StateFinished
		s.mu.Unlock()

		s.fireFinish(delegate, FinishOutcome{Err: err})
	}()
}

// Abort terminates the session from any non-terminal state and releases
// the store. Safe to call more than once.
func (s *Session) Abort() {
	s.mu.Lock()
	terminal := s.state == StateFinished || s.state == StateAborted
	s.state = StateAborted
	s.mu.Unlock()

	if !terminal {
		if err := s.store.Close(); err != nil {
			s.log.Error().Err(err).
				Str("collection", s.collection).
				Msg("closing store during session abort")
		}
	}
}

// fire* helpers deliver outcomes and surface delegate-contract violations
// loudly instead of dropping them.

func (s *Session) fireBegin(d *Oneshot[BeginOutcome], v BeginOutcome) {
	if err := d.Fire(v); err != nil {
		s.logContractViolation("begin", err)
	}
}

func (s *Session) fireFetch(stream *FetchStream, v FetchOutcome) {
	if err := stream.Done.Fire(v); err != nil {
		s.logContractViolation("fetch", err)
	}
}

func (s *Session) fireGuids(d *Oneshot[GuidsOutcome], v GuidsOutcome) {
	if err := d.Fire(v); err != nil {
		s.logContractViolation("guidsSince", err)
	}
}

func (s *Session) fireStore(d *Oneshot[StoreOutcome], v StoreOutcome) {
	if err := d.Fire(v); err != nil {
		s.logContractViolation("store", err)
	}
}

func (s *Session) fireWipe(d *Oneshot[WipeOutcome], v WipeOutcome) {
	if err := d.Fire(v); err != nil {
		s.logContractViolation("wipe", err)
	}
}

func (s *Session) fireFinish(d *Oneshot[FinishOutcome], v FinishOutcome) {
	if err := d.Fire(v); err != nil {
		s.logContractViolation("finish", err)
	}
}

func (s *Session) logContractViolation(op string, err error) {
	s.log.Error().Err(err).
		Str("collection", s.collection).
		Str("op", op).
		Msg("delegate contract violation")
}
