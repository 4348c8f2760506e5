package adapter

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthorized indicates the server rejected our credentials.
	// Sessions abort on this; it is never retried automatically.
	ErrUnauthorized = errors.New("storage server rejected credentials")
	// ErrNoClusterURL indicates a storage call was attempted before the
	// cluster URL was resolved.
	ErrNoClusterURL = errors.New("cluster url not set")
)

// HTTPError is a non-2xx storage server response. RetryAfter carries the
// server's Retry-After / X-Weave-Backoff hint when one was present.
type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("storage server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("storage server returned %d: %s", e.StatusCode, e.Body)
}

// Classification buckets a transport outcome for the orchestrator's
// error-handling policy.
type Classification int

const (
	// ClassOK: not an error.
	ClassOK Classification = iota
	// ClassUnauthorized: 401-family, abort the session, never retry.
	ClassUnauthorized
	// ClassRetriable: transient server trouble (5xx, backoff hints,
	// timeouts); eligible for a bounded retry.
	ClassRetriable
	// ClassMalformed: the response body could not be parsed; abort with a
	// parse-failure cause.
	ClassMalformed
	// ClassFatal: everything else; abort.
	ClassFatal
)

func (c Classification) String() string {
	switch c {
	case ClassOK:
		return "ok"
	case ClassUnauthorized:
		return "unauthorized"
	case ClassRetriable:
		return "retriable"
	case ClassMalformed:
		return "malformed"
	default:
		return "fatal"
	}
}
