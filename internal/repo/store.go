package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/MKhiriev/weavesync/models"
)

// Store is the generic store/fetch contract over one data collection. A
// Session drives a Store; the Store itself carries no session state.
type Store interface {
	// FetchSince returns records modified at or after newer (milliseconds;
	// 0 means everything), in the store's natural order, plus any
	// per-record failures that did not prevent the rest of the fetch.
	FetchSince(ctx context.Context, newer int64) ([]models.Record, []RecordFailure, error)

	// GuidsSince returns the GUIDs of records modified at or after newer.
	GuidsSince(ctx context.Context, newer int64) ([]string, error)

	// Upsert stores rec by GUID. Write-after-write on the same GUID is
	// last-write-wins by record timestamp, not by arrival order.
	Upsert(ctx context.Context, rec models.Record) error

	// WipeAll deletes every record in the collection.
	WipeAll(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}

// MemoryStore is an in-memory Store used for the local side of engine
// collections and throughout the tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.Record)}
}

func (m *MemoryStore) FetchSince(_ context.Context, newer int64) ([]models.Record, []RecordFailure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Record
	for _, rec := range m.records {
		if rec.LastModified >= newer {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GUID < out[j].GUID })
	return out, nil, nil
}

func (m *MemoryStore) GuidsSince(_ context.Context, newer int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for guid, rec := range m.records {
		if rec.LastModified >= newer {
			out = append(out, guid)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) Upsert(_ context.Context, rec models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.records[rec.GUID]; ok && existing.LastModified > rec.LastModified {
		// Last-write-wins by timestamp: an older write after a newer one
		// must not clobber it.
		return nil
	}
	m.records[rec.GUID] = rec
	return nil
}

func (m *MemoryStore) WipeAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]models.Record)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Count reports the number of stored records.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
