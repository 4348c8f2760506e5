package clients

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/MKhiriev/weavesync/internal/adapter"
	"github.com/MKhiriev/weavesync/internal/crypto"
	"github.com/MKhiriev/weavesync/internal/prefs"
	"github.com/MKhiriev/weavesync/internal/repo"
	"github.com/MKhiriev/weavesync/internal/session"
	"github.com/MKhiriev/weavesync/models"
)

type noopCallback struct{}

func (noopCallback) HandleStageCompleted(session.Stage)  {}
func (noopCallback) HandleSuccess()                      {}
func (noopCallback) HandleAborted(cause error, r string) {}

func fullStageTable(reg *Registry) []session.StageEntry {
	return []session.StageEntry{
		{ID: session.StageCheckPreconditions, Factory: session.NewCheckPreconditionsStage()},
		{ID: session.StageEnsureClusterURL, Factory: session.NewEnsureClusterURLStage()},
		{ID: session.StageFetchInfoCollections, Factory: session.NewFetchInfoCollectionsStage()},
		{ID: session.StageSyncClientsEngine, Factory: NewEngineStage(reg)},
		{ID: session.StageSyncBookmarks, Factory: session.NewServerSyncStage(models.CollectionBookmarks, repo.NewMemoryStore())},
		{ID: session.StageSyncHistory, Factory: session.NewServerSyncStage(models.CollectionHistory, repo.NewMemoryStore())},
		{ID: session.StageSyncTabs, Factory: session.NewServerSyncStage(models.CollectionTabs, repo.NewMemoryStore())},
		{ID: session.StageCompleted, Factory: session.NewCompletedStage()},
	}
}

func TestEngineStage_WipeLocalResetsEverything(t *testing.T) {
	reg, mock, db := newTestRegistry(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM clients").
		WillReturnResult(sqlmock.NewResult(0, 5))

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
	cfg.SetClientRecordCount(5)

	delegate, err := NewDataDelegate(store)
	if err != nil {
		t.Fatalf("NewDataDelegate error: %v", err)
	}
	delegate.SetClientCount(5)

	gs, err := session.NewGlobalSession(cfg, nil, noopCallback{}, delegate, fullStageTable(reg), session.Options{}, nil)
	if err != nil {
		t.Fatalf("NewGlobalSession error: %v", err)
	}

	if err := NewEngine(reg).WipeLocal(context.Background(), gs); err != nil {
		t.Fatalf("WipeLocal error: %v", err)
	}

	if got := cfg.Timestamp(models.CollectionClients); got != 0 {
		t.Fatalf("clients timestamp = %d after wipe, want 0", got)
	}
	// The zeroed timestamp must be persisted immediately, not just held in
	// memory until session completion.
	if persisted, err := store.GetInt64("sync.timestamp.clients"); err != nil || persisted != 0 {
		t.Fatalf("persisted clients timestamp = %d (err=%v), want 0", persisted, err)
	}
	if got := cfg.ClientRecordCount(); got != 0 {
		t.Fatalf("client record count = %d after wipe, want 0", got)
	}
	if got := delegate.ClientCount(); got != 0 {
		t.Fatalf("delegate client count = %d after wipe, want 0", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
