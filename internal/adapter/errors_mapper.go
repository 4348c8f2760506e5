package adapter

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/weavesync/models"
)

// mapHTTPError converts a non-2xx resty response into a typed error,
// capturing any server backoff hint.
func mapHTTPError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return ErrUnauthorized
	}

	return &HTTPError{
		StatusCode: code,
		Body:       strings.TrimSpace(string(resp.Body())),
		RetryAfter: parseBackoffHint(resp),
	}
}

// parseBackoffHint reads Retry-After (seconds form) or X-Weave-Backoff and
// returns the larger of the two.
func parseBackoffHint(resp *resty.Response) time.Duration {
	var hint time.Duration
	for _, header := range []string{"Retry-After", "X-Weave-Backoff"} {
		v := strings.TrimSpace(resp.Header().Get(header))
		if v == "" {
			continue
		}
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		if d := time.Duration(secs * float64(time.Second)); d > hint {
			hint = d
		}
	}
	return hint
}

// Classify buckets err for the orchestrator's abort/retry policy and
// returns the server's backoff hint when one applies.
func Classify(err error) (Classification, time.Duration) {
	if err == nil {
		return ClassOK, 0
	}

	if errors.Is(err, ErrUnauthorized) {
		return ClassUnauthorized, 0
	}

	var malformed *models.MalformedResponseError
	if errors.As(err, &malformed) {
		return ClassMalformed, 0
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= http.StatusInternalServerError || httpErr.RetryAfter > 0 ||
			httpErr.StatusCode == http.StatusTooManyRequests {
			return ClassRetriable, httpErr.RetryAfter
		}
		return ClassFatal, 0
	}

	// Network-level trouble: unreachable hosts and timeouts are transient.
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return ClassRetriable, 0
	}

	return ClassFatal, 0
}
