package clients

import (
	"context"
	"errors"

	"github.com/MKhiriev/weavesync/internal/repo"
	"github.com/MKhiriev/weavesync/models"
)

// registryStore adapts the Registry to the generic repo.Store contract so
// repository sessions can drive the clients collection. Upsert applies the
// clients merge policy: a record with an equal-or-newer timestamp replaces
// the stored one by GUID, except that its command queue is appended to the
// existing queue, never replaced.
type registryStore struct {
	registry *Registry
}

// NewRegistryStore wraps registry in the repo.Store contract.
func NewRegistryStore(registry *Registry) repo.Store {
	return &registryStore{registry: registry}
}

func (s *registryStore) FetchSince(ctx context.Context, newer int64) ([]models.Record, []repo.RecordFailure, error) {
	clientRecs, err := s.registry.FetchSince(ctx, newer)
	if err != nil {
		return nil, nil, err
	}

	records := make([]models.Record, 0, len(clientRecs))
	var failures []repo.RecordFailure
	for _, c := range clientRecs {
		rec, err := c.ToRecord()
		if err != nil {
			failures = append(failures, repo.RecordFailure{GUID: c.GUID, Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, failures, nil
}

func (s *registryStore) GuidsSince(ctx context.Context, newer int64) ([]string, error) {
	return s.registry.GuidsSince(ctx, newer)
}

func (s *registryStore) Upsert(ctx context.Context, rec models.Record) error {
	incoming, err := models.ClientRecordFromRecord(rec)
	if err != nil {
		return err
	}

	existing, err := s.registry.Get(ctx, incoming.GUID)
	switch {
	case errors.Is(err, ErrClientNotFound):
		return s.registry.Store(ctx, incoming)
	case err != nil:
		return err
	}

	if existing.LastModified > incoming.LastModified {
		// Older write after a newer one: last-write-wins by timestamp.
		return nil
	}

	incoming.Commands = mergeCommands(existing.Commands, incoming.Commands)
	return s.registry.Store(ctx, incoming)
}

func (s *registryStore) WipeAll(ctx context.Context) error {
	return s.registry.WipeDB(ctx)
}

// Close is a no-op: the registry outlives individual sessions and is
// closed by the composition root.
func (s *registryStore) Close() error { return nil }

// mergeCommands appends incoming commands not already queued, preserving
// insertion order of both queues.
func mergeCommands(existing, incoming []models.Command) []models.Command {
	merged := make([]models.Command, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	for _, cmd := range incoming {
		if !containsCommand(merged, cmd) {
			merged = append(merged, cmd)
		}
	}
	return merged
}

func containsCommand(queue []models.Command, cmd models.Command) bool {
	for _, q := range queue {
		if q.Name != cmd.Name || len(q.Args) != len(cmd.Args) {
			continue
		}
		same := true
		for i := range q.Args {
			if q.Args[i] != cmd.Args[i] {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}
