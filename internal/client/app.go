// Package client wires the sync engine together: configuration, key
// derivation, transport, the client registry, and the stage pipeline. It is
// the composition root behind every CLI command.
package client

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/MKhiriev/weavesync/internal/adapter"
	"github.com/MKhiriev/weavesync/internal/clients"
	"github.com/MKhiriev/weavesync/internal/config"
	"github.com/MKhiriev/weavesync/internal/crypto"
	"github.com/MKhiriev/weavesync/internal/logger"
	"github.com/MKhiriev/weavesync/internal/prefs"
	"github.com/MKhiriev/weavesync/internal/repo"
	"github.com/MKhiriev/weavesync/internal/session"
	"github.com/MKhiriev/weavesync/models"
)

// prefKDFSalt stores the per-installation Argon2 salt, base64-encoded.
const prefKDFSalt = "crypto.kdf_salt"

// App owns the long-lived collaborators shared by all sync attempts: the
// preference store, the derived key bundle, the storage transport, the
// client registry, and the local collection stores. One App serves many
// attempts; each attempt gets a fresh GlobalSession.
type App struct {
	cfg *config.ClientConfig
	log *logger.Logger

	prefs       *prefs.Store
	bundle      *crypto.KeyBundle
	auth        adapter.AuthHeaderProvider
	storage     adapter.StorageClient
	registry    *clients.Registry
	clientsData *clients.DataDelegate

	// Local stores for the browser collections. Held on the App so their
	// contents survive across attempts within one process.
	bookmarks repo.Store
	history   repo.Store
	tabs      repo.Store
}

// NewApp assembles the application from validated configuration.
func NewApp(ctx context.Context, cfg *config.ClientConfig, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	store, err := prefs.New(cfg.Storage.PrefsPath)
	if err != nil {
		return nil, fmt.Errorf("open preference store: %w", err)
	}

	salt, err := loadOrCreateSalt(store)
	if err != nil {
		return nil, fmt.Errorf("load kdf salt: %w", err)
	}
	bundle, err := crypto.KeyBundleFromPassphrase(cfg.Account.SyncPassphrase, cfg.Account.Username, salt)
	if err != nil {
		return nil, fmt.Errorf("derive key bundle: %w", err)
	}

	var auth adapter.AuthHeaderProvider
	if cfg.Account.Token != "" {
		auth = adapter.TokenAuthHeaderProvider{Token: cfg.Account.Token}
	} else {
		auth = adapter.BasicAuthHeaderProvider{
			Username: cfg.Account.Username,
			Password: cfg.Account.Password,
		}
	}

	storage := adapter.NewHTTPStorageClient(adapter.HTTPClientConfig{
		NodeURL:  cfg.Adapter.NodeURL,
		Username: cfg.Account.Username,
		Timeout:  cfg.Adapter.RequestTimeout,
	}, auth, log)

	registry, err := clients.OpenRegistry(ctx, cfg.Storage.RegistryDSN, log)
	if err != nil {
		return nil, fmt.Errorf("open client registry: %w", err)
	}

	clientsData, err := clients.NewDataDelegate(store)
	if err != nil {
		registry.Close()
		return nil, fmt.Errorf("init clients data: %w", err)
	}

	return &App{
		cfg:         cfg,
		log:         log,
		prefs:       store,
		bundle:      bundle,
		auth:        auth,
		storage:     storage,
		registry:    registry,
		clientsData: clientsData,
		bookmarks:   repo.NewMemoryStore(),
		history:     repo.NewMemoryStore(),
		tabs:        repo.NewMemoryStore(),
	}, nil
}

// RunSync performs one complete sync attempt: it loads the persisted sync
// state, builds a single-use GlobalSession over the full stage table, starts
// it, and blocks until the attempt succeeds, aborts, or ctx is cancelled.
func (a *App) RunSync(ctx context.Context) error {
	gs, cb, err := a.newSession()
	if err != nil {
		return err
	}

	if err := gs.Start(ctx); err != nil {
		return fmt.Errorf("start sync session: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case out := <-cb.done:
		if out.cause != nil {
			return fmt.Errorf("sync aborted (%s): %w", out.reason, out.cause)
		}
		return nil
	}
}

// WipeClients clears the local client registry and resets the clients
// collection state: persisted timestamp and client counts go to zero.
func (a *App) WipeClients(ctx context.Context) error {
	gs, _, err := a.newSession()
	if err != nil {
		return err
	}
	return clients.NewEngine(a.registry).WipeLocal(ctx, gs)
}

// Close releases the App's long-lived resources.
func (a *App) Close() error {
	return a.registry.Close()
}

func (a *App) newSession() (*session.GlobalSession, *runCallback, error) {
	syncCfg, err := session.LoadConfiguration(a.prefs, a.cfg.Account.Username, a.auth, a.bundle)
	if err != nil {
		return nil, nil, fmt.Errorf("load sync configuration: %w", err)
	}
	a.clientsData.SetClientCount(int(syncCfg.ClientRecordCount()))

	cb := &runCallback{log: a.log, done: make(chan runOutcome, 1)}
	gs, err := session.NewGlobalSession(
		syncCfg,
		a.storage,
		cb,
		a.clientsData,
		a.stageEntries(),
		session.Options{
			RetryLimit:         a.cfg.Sync.RetryLimit,
			RetryBaseDelay:     a.cfg.Sync.RetryBaseDelay,
			OpTimeout:          a.cfg.Sync.OpTimeout,
			RecordFailureLimit: a.cfg.Sync.RecordFailureLimit,
		},
		a.log,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("build sync session: %w", err)
	}
	return gs, cb, nil
}

func (a *App) stageEntries() []session.StageEntry {
	return []session.StageEntry{
		{ID: session.StageCheckPreconditions, Factory: session.NewCheckPreconditionsStage()},
		{ID: session.StageEnsureClusterURL, Factory: session.NewEnsureClusterURLStage()},
		{ID: session.StageFetchInfoCollections, Factory: session.NewFetchInfoCollectionsStage()},
		{ID: session.StageSyncClientsEngine, Factory: clients.NewEngineStage(a.registry)},
		{ID: session.StageSyncBookmarks, Factory: session.NewServerSyncStage(models.CollectionBookmarks, a.bookmarks)},
		{ID: session.StageSyncHistory, Factory: session.NewServerSyncStage(models.CollectionHistory, a.history)},
		{ID: session.StageSyncTabs, Factory: session.NewServerSyncStage(models.CollectionTabs, a.tabs)},
		{ID: session.StageCompleted, Factory: session.NewCompletedStage()},
	}
}

// loadOrCreateSalt returns the installation's key-derivation salt, creating
// and persisting one on first run.
func loadOrCreateSalt(store *prefs.Store) ([]byte, error) {
	encoded, err := store.GetString(prefKDFSalt)
	if err == nil {
		return base64.StdEncoding.DecodeString(encoded)
	}
	if !errors.Is(err, prefs.ErrNotFound) {
		return nil, err
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if err := store.SetString(prefKDFSalt, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, err
	}
	return salt, nil
}

type runOutcome struct {
	cause  error
	reason string
}

// runCallback delivers the attempt's terminal outcome to RunSync over a
// buffered channel. Per-stage completions are only logged.
type runCallback struct {
	log  *logger.Logger
	done chan runOutcome
}

func (c *runCallback) HandleStageCompleted(stage session.Stage) {
	c.log.Debug().Str("stage", stage.String()).Msg("stage completed")
}

func (c *runCallback) HandleSuccess() {
	c.done <- runOutcome{}
}

func (c *runCallback) HandleAborted(cause error, reason string) {
	c.done <- runOutcome{cause: cause, reason: reason}
}
