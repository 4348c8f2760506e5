package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/MKhiriev/weavesync/internal/adapter"
	"github.com/MKhiriev/weavesync/internal/crypto"
	"github.com/MKhiriev/weavesync/models"
)

// ServerStore is the remote side of a collection: it fetches encrypted
// envelopes from the storage client, verifies and decrypts them into plain
// records, and encrypts outgoing records on upsert. Envelope and crypto
// failures are per-record; only transport errors fail the whole call.
type ServerStore struct {
	client     adapter.StorageClient
	bundle     *crypto.KeyBundle
	collection string

	mu           sync.Mutex
	lastUploadTS int64
}

func NewServerStore(client adapter.StorageClient, bundle *crypto.KeyBundle, collection string) *ServerStore {
	return &ServerStore{client: client, bundle: bundle, collection: collection}
}

func (s *ServerStore) FetchSince(ctx context.Context, newer int64) ([]models.Record, []RecordFailure, error) {
	envelopes, err := s.client.FetchCollection(ctx, s.collection, newer)
	if err != nil {
		return nil, nil, err
	}

	records := make([]models.Record, 0, len(envelopes))
	var failures []RecordFailure
	for _, env := range envelopes {
		rec, err := s.decodeEnvelope(env)
		if err != nil {
			failures = append(failures, RecordFailure{GUID: env.ID, Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, failures, nil
}

func (s *ServerStore) GuidsSince(ctx context.Context, newer int64) ([]string, error) {
	envelopes, err := s.client.FetchCollection(ctx, s.collection, newer)
	if err != nil {
		return nil, err
	}

	guids := make([]string, 0, len(envelopes))
	for _, env := range envelopes {
		guids = append(guids, env.ID)
	}
	return guids, nil
}

func (s *ServerStore) Upsert(ctx context.Context, rec models.Record) error {
	env, err := s.encodeRecord(rec)
	if err != nil {
		return err
	}
	ts, err := s.client.UploadEnvelopes(ctx, s.collection, []models.Envelope{env})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if ts > s.lastUploadTS {
		s.lastUploadTS = ts
	}
	s.mu.Unlock()
	return nil
}

// LastUploadModified returns the newest server-assigned timestamp observed
// across this store's uploads, in milliseconds. Zero means nothing was
// uploaded. The engine stage advances the collection high-water mark past it
// so the next attempt does not re-download the records it just wrote.
func (s *ServerStore) LastUploadModified() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUploadTS
}

func (s *ServerStore) WipeAll(ctx context.Context) error {
	return s.client.DeleteCollection(ctx, s.collection)
}

func (s *ServerStore) Close() error { return nil }

func (s *ServerStore) decodeEnvelope(env models.Envelope) (models.Record, error) {
	var payload models.EnvelopePayload
	if err := json.Unmarshal([]byte(env.Payload), &payload); err != nil {
		return models.Record{}, fmt.Errorf("%w: payload is not json: %v", crypto.ErrMalformedEnvelope, err)
	}

	plaintext, err := crypto.Decode(payload, s.bundle)
	if err != nil {
		return models.Record{}, err
	}

	return models.Record{
		GUID:         env.ID,
		Collection:   s.collection,
		LastModified: env.ModifiedMillis(),
		SortIndex:    env.SortIndex,
		Payload:      plaintext,
	}, nil
}

func (s *ServerStore) encodeRecord(rec models.Record) (models.Envelope, error) {
	payload, err := crypto.Encode(rec.Payload, s.bundle, nil)
	if err != nil {
		return models.Envelope{}, fmt.Errorf("encrypt record %s: %w", rec.GUID, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return models.Envelope{}, fmt.Errorf("encode envelope payload %s: %w", rec.GUID, err)
	}

	return models.Envelope{
		ID:        rec.GUID,
		Modified:  float64(rec.LastModified) / 1000.0,
		Payload:   string(body),
		SortIndex: rec.SortIndex,
	}, nil
}
