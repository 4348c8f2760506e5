package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/weavesync/internal/crypto"
	"github.com/MKhiriev/weavesync/internal/mock"
	"github.com/MKhiriev/weavesync/models"
)

func serverStoreBundle(t *testing.T) *crypto.KeyBundle {
	t.Helper()
	b, err := crypto.NewKeyBundle(bytes.Repeat([]byte{0x11}, 32), bytes.Repeat([]byte{0x22}, 32))
	if err != nil {
		t.Fatalf("NewKeyBundle error: %v", err)
	}
	return b
}

func encryptedEnvelope(t *testing.T, bundle *crypto.KeyBundle, id string, modified float64, plaintext []byte) models.Envelope {
	t.Helper()

	payload, err := crypto.Encode(plaintext, bundle, nil)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return models.Envelope{ID: id, Modified: modified, Payload: string(body)}
}

func TestServerStore_FetchSinceDecodesEnvelopes(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockStorageClient(ctrl)
	bundle := serverStoreBundle(t)

	good := encryptedEnvelope(t, bundle, "good", 1700000000.5, []byte(`{"title":"a bookmark"}`))
	corrupt := models.Envelope{ID: "corrupt", Modified: 1700000001, Payload: "not even json"}

	client.EXPECT().FetchCollection(gomock.Any(), models.CollectionBookmarks, int64(0)).
		Return([]models.Envelope{good, corrupt}, nil)

	store := NewServerStore(client, bundle, models.CollectionBookmarks)
	records, failures, err := store.FetchSince(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchSince error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.GUID != "good" || rec.Collection != models.CollectionBookmarks {
		t.Fatalf("unexpected record identity: %+v", rec)
	}
	if rec.LastModified != 1700000000500 {
		t.Fatalf("LastModified = %d, want 1700000000500", rec.LastModified)
	}
	if string(rec.Payload) != `{"title":"a bookmark"}` {
		t.Fatalf("payload mismatch: %q", rec.Payload)
	}

	if len(failures) != 1 || failures[0].GUID != "corrupt" {
		t.Fatalf("expected one per-record failure for %q, got %+v", "corrupt", failures)
	}
	if !errors.Is(failures[0].Err, crypto.ErrMalformedEnvelope) {
		t.Fatalf("failure error = %v, want ErrMalformedEnvelope", failures[0].Err)
	}
}

func TestServerStore_FetchSinceTamperedEnvelopeIsPerRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockStorageClient(ctrl)
	bundle := serverStoreBundle(t)

	env := encryptedEnvelope(t, bundle, "tampered", 1700000000, []byte("payload"))
	var payload models.EnvelopePayload
	if err := json.Unmarshal([]byte(env.Payload), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	repl := byte('0')
	if payload.HMAC[0] == '0' {
		repl = '1'
	}
	payload.HMAC = string(repl) + payload.HMAC[1:]
	body, _ := json.Marshal(payload)
	env.Payload = string(body)

	client.EXPECT().FetchCollection(gomock.Any(), models.CollectionHistory, int64(0)).
		Return([]models.Envelope{env}, nil)

	store := NewServerStore(client, bundle, models.CollectionHistory)
	records, failures, err := store.FetchSince(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchSince error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("tampered record must not decode, got %+v", records)
	}
	if len(failures) != 1 || !errors.Is(failures[0].Err, crypto.ErrHMACMismatch) {
		t.Fatalf("failures = %+v, want one ErrHMACMismatch", failures)
	}
}

func TestServerStore_UpsertEncryptsRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockStorageClient(ctrl)
	bundle := serverStoreBundle(t)

	rec := models.Record{
		GUID:         "tab1",
		Collection:   models.CollectionTabs,
		LastModified: 1700000002500,
		Payload:      []byte(`{"urlHistory":["https://example.org"]}`),
	}

	client.EXPECT().UploadEnvelopes(gomock.Any(), models.CollectionTabs, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, envelopes []models.Envelope) (int64, error) {
			if len(envelopes) != 1 {
				t.Fatalf("got %d envelopes, want 1", len(envelopes))
			}
			env := envelopes[0]
			if env.ID != rec.GUID {
				t.Fatalf("envelope id = %q, want %q", env.ID, rec.GUID)
			}
			if env.Modified != 1700000002.5 {
				t.Fatalf("envelope modified = %v, want 1700000002.5", env.Modified)
			}

			var payload models.EnvelopePayload
			if err := json.Unmarshal([]byte(env.Payload), &payload); err != nil {
				t.Fatalf("envelope payload is not json: %v", err)
			}
			plaintext, err := crypto.Decode(payload, bundle)
			if err != nil {
				t.Fatalf("uploaded envelope does not decode: %v", err)
			}
			if !bytes.Equal(plaintext, rec.Payload) {
				t.Fatalf("decrypted payload mismatch: %q", plaintext)
			}
			return 1700000003000, nil
		})

	store := NewServerStore(client, bundle, models.CollectionTabs)
	if ts := store.LastUploadModified(); ts != 0 {
		t.Fatalf("LastUploadModified before upload = %d, want 0", ts)
	}
	if err := store.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	// The server-assigned batch timestamp is retained so the engine stage
	// can move its high-water mark past the upload.
	if ts := store.LastUploadModified(); ts != 1700000003000 {
		t.Fatalf("LastUploadModified = %d, want 1700000003000", ts)
	}
}

func TestServerStore_WipeAllDeletesCollection(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockStorageClient(ctrl)

	client.EXPECT().DeleteCollection(gomock.Any(), models.CollectionClients).Return(nil)

	store := NewServerStore(client, serverStoreBundle(t), models.CollectionClients)
	if err := store.WipeAll(context.Background()); err != nil {
		t.Fatalf("WipeAll error: %v", err)
	}
}
