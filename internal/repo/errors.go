package repo

import (
	"errors"
	"fmt"
)

var (
	// ErrDelegateAlreadyFired is the delegate-contract violation: a second
	// outcome was delivered to a single-fire cell. It signals a caller bug
	// (an observer leak or a lost result), never a domain failure.
	ErrDelegateAlreadyFired = errors.New("delegate already fired")
	// ErrDelegateTimeout is returned by Await when no outcome arrived
	// within the bounded wait. Callers route it through the transport
	// failure policy rather than waiting forever.
	ErrDelegateTimeout = errors.New("timed out waiting for delegate outcome")
)

// State is the lifecycle position of a repository session.
type State int32

const (
	StateUnstarted State = iota
	StateActive
	StateFinishing
	StateFinished
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateActive:
		return "active"
	case StateFinishing:
		return "finishing"
	case StateFinished:
		return "finished"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// InvalidTransitionError reports an operation invoked on a session outside
// its valid state. It is delivered through the operation's delegate, never
// raised synchronously, so a caller bug cannot crash the pipeline.
type InvalidTransitionError struct {
	Op   string
	From State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid session transition: %s called in state %s", e.Op, e.From)
}

// RecordFailure is a per-record failure inside a fetch or store stream.
// These aggregate; one bad record does not block the others.
type RecordFailure struct {
	GUID string
	Err  error
}

func (f RecordFailure) Error() string {
	return fmt.Sprintf("record %s: %v", f.GUID, f.Err)
}
