// Package prefs implements the persisted key-value preference store the
// sync engine uses for configuration state: cluster URL, per-collection
// timestamps, and the client registry row count.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// ErrNotFound is returned by typed getters when the key is absent.
var ErrNotFound = errors.New("preference not found")

// Store is a file-backed key-value preference store. The zero path keeps
// everything in memory, which tests rely on. All methods are safe for
// concurrent use.
type Store struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

// New loads (or initializes) a store persisted at path. An empty path
// yields a memory-only store.
func New(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read preference file: %w", err)
	}

	if err = json.Unmarshal(data, &s.values); err != nil {
		return fmt.Errorf("decode preference file: %w", err)
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	return nil
}

// persist writes the whole map back to disk. Caller must hold s.mu.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preference dir: %w", err)
		}
	}

	payload, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err = os.WriteFile(s.path, payload, 0o600); err != nil {
		return fmt.Errorf("write preference file: %w", err)
	}
	return nil
}

// GetString returns the value for key, or ErrNotFound.
func (s *Store) GetString(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v, nil
}

// SetString stores key=value and persists immediately.
func (s *Store) SetString(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return s.persist()
}

// GetInt64 returns the value for key parsed as int64, or ErrNotFound.
func (s *Store) GetInt64(key string) (int64, error) {
	v, err := s.GetString(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("preference %s is not an integer: %w", key, err)
	}
	return n, nil
}

// SetInt64 stores key=value and persists immediately.
func (s *Store) SetInt64(key string, value int64) error {
	return s.SetString(key, strconv.FormatInt(value, 10))
}

// Delete removes key if present and persists.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return s.persist()
}

// Keys returns a snapshot of all stored keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}
