package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/MKhiriev/weavesync/models"
)

// Encode encrypts plaintext into an envelope payload using AES-256-CBC with
// PKCS#7 padding, then computes HMAC-SHA256 over the base64 ciphertext
// string. Encoding is deterministic for a given iv; pass iv == nil to draw
// a random 16-byte IV from the OS CSPRNG.
func Encode(plaintext []byte, bundle *KeyBundle, iv []byte) (models.EnvelopePayload, error) {
	if iv == nil {
		iv = make([]byte, aes.BlockSize)
		if _, err := io.ReadFull(rand.Reader, iv); err != nil {
			return models.EnvelopePayload{}, fmt.Errorf("generate iv: %w", err)
		}
	}
	if len(iv) != aes.BlockSize {
		return models.EnvelopePayload{}, fmt.Errorf("%w: iv must be %d bytes", ErrInvalidKeyMaterial, aes.BlockSize)
	}

	block, err := aes.NewCipher(bundle.EncryptionKey())
	if err != nil {
		return models.EnvelopePayload{}, fmt.Errorf("create cipher: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	ciphertextB64 := base64.StdEncoding.EncodeToString(ciphertext)

	mac := hmac.New(sha256.New, bundle.HMACKey())
	mac.Write([]byte(ciphertextB64))

	return models.EnvelopePayload{
		Ciphertext: ciphertextB64,
		IV:         base64.StdEncoding.EncodeToString(iv),
		HMAC:       hex.EncodeToString(mac.Sum(nil)),
	}, nil
}

// Decode verifies and decrypts an envelope payload.
//
// Structural checks run first: a missing field or undecodable base64/hex
// content fails with [ErrMalformedEnvelope]. The HMAC is then recomputed
// over the base64 ciphertext and compared in constant time; a mismatch
// fails with [ErrHMACMismatch] and no decryption is attempted. Both
// failures are per-record and non-retryable.
func Decode(payload models.EnvelopePayload, bundle *KeyBundle) ([]byte, error) {
	if payload.Ciphertext == "" || payload.IV == "" || payload.HMAC == "" {
		return nil, fmt.Errorf("%w: missing ciphertext, IV or hmac", ErrMalformedEnvelope)
	}

	wantMAC, err := hex.DecodeString(payload.HMAC)
	if err != nil {
		return nil, fmt.Errorf("%w: hmac is not hex: %v", ErrMalformedEnvelope, err)
	}
	iv, err := base64.StdEncoding.DecodeString(payload.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: iv is not base64: %v", ErrMalformedEnvelope, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not base64: %v", ErrMalformedEnvelope, err)
	}
	if len(iv) != aes.BlockSize || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad iv or ciphertext length", ErrMalformedEnvelope)
	}

	// Verify before decrypt. hmac.Equal is constant time.
	mac := hmac.New(sha256.New, bundle.HMACKey())
	mac.Write([]byte(payload.Ciphertext))
	if !hmac.Equal(mac.Sum(nil), wantMAC) {
		return nil, ErrHMACMismatch
	}

	block, err := aes.NewCipher(bundle.EncryptionKey())
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return unpadded, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding byte %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
