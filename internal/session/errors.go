package session

import "errors"

var (
	// ErrAuthenticationFailed aborts the whole session; it is never
	// retried automatically.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrRetriesExhausted is the abort cause when a transient transport
	// failure outlived the bounded retry budget.
	ErrRetriesExhausted = errors.New("transport retries exhausted")
	// ErrSessionTerminated rejects calls on a session that has already
	// aborted or completed; the session is single-use.
	ErrSessionTerminated = errors.New("session already terminated")
	// ErrNoSuchStage signals an incomplete pipeline table at execution
	// time: a programmer error, fatal to the session.
	ErrNoSuchStage = errors.New("no such stage")
	// ErrInvalidStageTable signals a declarative stage table that fails
	// completeness validation at construction.
	ErrInvalidStageTable = errors.New("invalid stage table")
	// ErrRecordFailureLimit aborts an engine stage whose per-record
	// failure count crossed the configured threshold.
	ErrRecordFailureLimit = errors.New("per-record failure limit exceeded")
	// ErrMissingKeyBundle fails the precondition stage when no sync key
	// material is available.
	ErrMissingKeyBundle = errors.New("sync key bundle not configured")
)
