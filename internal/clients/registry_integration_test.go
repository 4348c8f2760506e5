package clients

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MKhiriev/weavesync/internal/adapter"
	"github.com/MKhiriev/weavesync/internal/crypto"
	"github.com/MKhiriev/weavesync/internal/prefs"
	"github.com/MKhiriev/weavesync/internal/session"
	"github.com/MKhiriev/weavesync/models"
)

// openTempRegistry opens a real sqlite registry under t.TempDir, running the
// embedded migrations against it.
func openTempRegistry(t *testing.T) *Registry {
	t.Helper()

	reg, err := OpenRegistry(context.Background(), filepath.Join(t.TempDir(), "clients.db"), nil)
	if err != nil {
		t.Fatalf("OpenRegistry error: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestRegistry_StoreFetchWipeLifecycle(t *testing.T) {
	ctx := context.Background()
	reg := openTempRegistry(t)

	rec := models.ClientRecord{
		GUID:         "clientabcdef",
		Name:         "alice's phone",
		Type:         models.DeviceTypeMobile,
		OS:           "Android",
		Commands:     []models.Command{{Name: "displayURI", Args: []string{"https://example.org"}}},
		LastModified: 1700000000000,
	}
	if err := reg.Store(ctx, rec); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	count, err := reg.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("Count = %d (err=%v), want 1", count, err)
	}

	all, err := reg.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll error: %v", err)
	}
	got, ok := all["clientabcdef"]
	if !ok {
		t.Fatalf("stored client missing from FetchAll: %v", all)
	}
	if got.Name != rec.Name || got.Type != rec.Type || got.OS != rec.OS || got.LastModified != rec.LastModified {
		t.Fatalf("fetched record = %+v, want %+v", got, rec)
	}
	if len(got.Commands) != 1 || got.Commands[0].Name != "displayURI" {
		t.Fatalf("commands not round-tripped: %+v", got.Commands)
	}

	// Same GUID again is an update, not a second row.
	rec.Name = "alice's new phone"
	rec.LastModified = 1700000001000
	if err := reg.Store(ctx, rec); err != nil {
		t.Fatalf("Store (update) error: %v", err)
	}
	if count, _ = reg.Count(ctx); count != 1 {
		t.Fatalf("Count after upsert = %d, want 1", count)
	}
	updated, err := reg.Get(ctx, "clientabcdef")
	if err != nil || updated.Name != "alice's new phone" {
		t.Fatalf("Get after upsert = %+v (err=%v)", updated, err)
	}

	if err := reg.WipeDB(ctx); err != nil {
		t.Fatalf("WipeDB error: %v", err)
	}
	if count, _ = reg.Count(ctx); count != 0 {
		t.Fatalf("Count after wipe = %d, want 0", count)
	}
}

func TestEngineStage_WipeLocalAgainstRealRegistry(t *testing.T) {
	ctx := context.Background()
	reg := openTempRegistry(t)

	if err := reg.Store(ctx, models.ClientRecord{
		GUID:         "clientabcdef",
		Name:         "alice's phone",
		Type:         models.DeviceTypeMobile,
		LastModified: 1700000000000,
	}); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	store, err := prefs.New(filepath.Join(t.TempDir(), "prefs.json"))
	if err != nil {
		t.Fatalf("prefs.New error: %v", err)
	}
	bundle, err := crypto.KeyBundleFromPassphrase("test passphrase", "alice", []byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("KeyBundleFromPassphrase error: %v", err)
	}
	cfg, err := session.LoadConfiguration(store, "alice",
		adapter.BasicAuthHeaderProvider{Username: "alice", Password: "pw"}, bundle)
	if err != nil {
		t.Fatalf("LoadConfiguration error: %v", err)
	}
	cfg.SetTimestamp(models.CollectionClients, 1700000000000)
	cfg.SetClientRecordCount(1)

	delegate, err := NewDataDelegate(store)
	if err != nil {
		t.Fatalf("NewDataDelegate error: %v", err)
	}
	delegate.SetClientCount(1)

	gs, err := session.NewGlobalSession(cfg, nil, noopCallback{}, delegate, fullStageTable(reg), session.Options{}, nil)
	if err != nil {
		t.Fatalf("NewGlobalSession error: %v", err)
	}

	if err := NewEngine(reg).WipeLocal(ctx, gs); err != nil {
		t.Fatalf("WipeLocal error: %v", err)
	}

	if count, err := reg.Count(ctx); err != nil || count != 0 {
		t.Fatalf("Count after WipeLocal = %d (err=%v), want 0", count, err)
	}
	if got := cfg.Timestamp(models.CollectionClients); got != 0 {
		t.Fatalf("clients timestamp = %d after wipe, want 0", got)
	}
	if got := delegate.ClientCount(); got != 0 {
		t.Fatalf("delegate client count = %d after wipe, want 0", got)
	}
}
