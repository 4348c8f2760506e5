package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Envelope is the weave basic object (WBO) exchanged with the storage
// server: one per synchronized item. Payload carries the encrypted inner
// record as a JSON string of [EnvelopePayload].
type Envelope struct {
	ID        string  `json:"id"`
	Modified  float64 `json:"modified"` // seconds since epoch, server clock
	Payload   string  `json:"payload"`
	SortIndex int64   `json:"sortindex,omitempty"`
	TTL       int64   `json:"ttl,omitempty"`
}

// EnvelopePayload is the encrypted body of an Envelope: base64 ciphertext,
// base64 initialization vector, and the hex HMAC computed over the base64
// ciphertext string.
type EnvelopePayload struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"IV"`
	HMAC       string `json:"hmac"`
}

// ModifiedMillis converts the server-side modified timestamp to
// milliseconds, the unit used for local per-collection high-water marks.
func (e Envelope) ModifiedMillis() int64 {
	return int64(e.Modified * 1000)
}

// InfoCollections is the decoded info/collections response: a mapping from
// collection name to its server-side last-modified timestamp in seconds.
type InfoCollections map[string]float64

// ModifiedMillis returns the last-modified timestamp of collection in
// milliseconds and whether the server reported that collection at all.
func (ic InfoCollections) ModifiedMillis(collection string) (int64, bool) {
	ts, ok := ic[collection]
	if !ok {
		return 0, false
	}
	return int64(ts * 1000), true
}

// ParseInfoCollections decodes an info/collections response body. The body
// must be a JSON object mapping collection names to numeric timestamps;
// anything else is a malformed response.
func ParseInfoCollections(body []byte) (InfoCollections, error) {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, &MalformedResponseError{Body: snippet(trimmed)}
	}

	var ic InfoCollections
	if err := json.Unmarshal(body, &ic); err != nil {
		return nil, &MalformedResponseError{Body: snippet(trimmed), Err: err}
	}
	return ic, nil
}

// MalformedResponseError reports a response body that could not be decoded
// into the expected structure.
type MalformedResponseError struct {
	Body string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	msg := "malformed response body"
	if e.Body != "" {
		msg += ": " + strconv.Quote(e.Body)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func snippet(s string) string {
	const max = 64
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
