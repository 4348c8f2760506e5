package crypto

import "errors"

var (
	// ErrHMACMismatch indicates the envelope HMAC did not verify against
	// the ciphertext. The record must not be decrypted.
	ErrHMACMismatch = errors.New("envelope hmac verification failed")
	// ErrMalformedEnvelope indicates the envelope payload is structurally
	// invalid: missing fields or undecodable base64/hex content.
	ErrMalformedEnvelope = errors.New("malformed envelope payload")
	// ErrInvalidKeyMaterial indicates key bytes of the wrong length were
	// supplied to a key bundle constructor.
	ErrInvalidKeyMaterial = errors.New("invalid key material")
)
