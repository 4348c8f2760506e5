// Package crypto implements the symmetric key material and the encrypted
// record envelope exchanged with the storage server.
//
// A KeyBundle pairs an AES-256 encryption key with an HMAC-SHA256 key.
// Envelopes are encrypt-then-MAC: the HMAC covers the base64 ciphertext and
// is always verified before any decryption is attempted.
package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const keyLen = 32 // 256 bits for both the encryption and the HMAC key

// KeyBundle holds the encryption key and HMAC key for one account's
// collections. It is immutable after construction and safe to share by
// reference across all envelopes of a collection without synchronization.
type KeyBundle struct {
	encKey  []byte
	hmacKey []byte
}

// NewKeyBundle constructs a bundle from raw 32-byte keys. The slices are
// copied so later mutation by the caller cannot affect the bundle.
func NewKeyBundle(encKey, hmacKey []byte) (*KeyBundle, error) {
	if len(encKey) != keyLen || len(hmacKey) != keyLen {
		return nil, fmt.Errorf("%w: want %d-byte keys, got %d/%d",
			ErrInvalidKeyMaterial, keyLen, len(encKey), len(hmacKey))
	}
	b := &KeyBundle{
		encKey:  make([]byte, keyLen),
		hmacKey: make([]byte, keyLen),
	}
	copy(b.encKey, encKey)
	copy(b.hmacKey, hmacKey)
	return b, nil
}

// KeyBundleFromSyncKey expands the account sync key into an encryption key
// and an HMAC key via HKDF-SHA256. The username domain-separates bundles of
// different accounts derived from colliding sync keys.
func KeyBundleFromSyncKey(syncKey []byte, username string) (*KeyBundle, error) {
	if len(syncKey) == 0 {
		return nil, fmt.Errorf("%w: empty sync key", ErrInvalidKeyMaterial)
	}

	info := []byte("weavesync-AES_256_CBC-HMAC256" + username)
	r := hkdf.New(sha256.New, syncKey, nil, info)

	okm := make([]byte, 2*keyLen)
	if _, err := io.ReadFull(r, okm); err != nil {
		return nil, fmt.Errorf("expand sync key: %w", err)
	}
	return NewKeyBundle(okm[:keyLen], okm[keyLen:])
}

// KeyBundleFromPassphrase derives the sync key from an account secret and
// salt using Argon2id (OWASP 2024 parameters: 1 iteration, 64 MiB, 4
// threads), then expands it with [KeyBundleFromSyncKey].
func KeyBundleFromPassphrase(passphrase, username string, salt []byte) (*KeyBundle, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty passphrase", ErrInvalidKeyMaterial)
	}
	syncKey := argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, keyLen)
	return KeyBundleFromSyncKey(syncKey, username)
}

// EncryptionKey returns the AES-256 key. The returned slice is the bundle's
// own storage; callers get pure read access and must not modify it.
func (b *KeyBundle) EncryptionKey() []byte { return b.encKey }

// HMACKey returns the HMAC-SHA256 key under the same read-only contract as
// [KeyBundle.EncryptionKey].
func (b *KeyBundle) HMACKey() []byte { return b.hmacKey }
