package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MKhiriev/weavesync/internal/adapter"
	"github.com/MKhiriev/weavesync/internal/crypto"
	"github.com/MKhiriev/weavesync/internal/prefs"
	"github.com/MKhiriev/weavesync/models"
)

// Preference keys for persisted sync state.
const (
	prefClusterURL   = "sync.cluster_url"
	prefClientCount  = "sync.clients.count"
	prefTimestampFmt = "sync.timestamp.%s"
)

// SyncConfiguration bundles the credentials, cluster URL, per-collection
// timestamps and persisted state for one sync attempt. It is constructed
// from the preference store at session start and written back at stage
// boundaries and on completion. The sequential pipeline guarantees only the
// active stage mutates it; the mutex covers the cross-goroutine reads.
type SyncConfiguration struct {
	Username      string
	Auth          adapter.AuthHeaderProvider
	SyncKeyBundle *crypto.KeyBundle

	// InfoCollections is populated by the fetchInfoCollections stage and
	// consulted by the engine stages that follow it.
	InfoCollections models.InfoCollections

	prefs *prefs.Store

	mu          sync.RWMutex
	clusterURL  string
	timestamps  map[string]int64
	clientCount int64
}

// LoadConfiguration reads persisted sync state for username from store.
// Missing keys are treated as a first sync (zero timestamps, no cluster).
func LoadConfiguration(store *prefs.Store, username string, auth adapter.AuthHeaderProvider, bundle *crypto.KeyBundle) (*SyncConfiguration, error) {
	cfg := &SyncConfiguration{
		Username:      username,
		Auth:          auth,
		SyncKeyBundle: bundle,
		prefs:         store,
		timestamps:    make(map[string]int64),
	}

	cluster, err := store.GetString(prefClusterURL)
	if err != nil && !errors.Is(err, prefs.ErrNotFound) {
		return nil, fmt.Errorf("load cluster url: %w", err)
	}
	cfg.clusterURL = cluster

	for _, collection := range []string{
		models.CollectionClients,
		models.CollectionBookmarks,
		models.CollectionHistory,
		models.CollectionTabs,
	} {
		ts, err := store.GetInt64(fmt.Sprintf(prefTimestampFmt, collection))
		if err != nil {
			if errors.Is(err, prefs.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load %s timestamp: %w", collection, err)
		}
		cfg.timestamps[collection] = ts
	}

	count, err := store.GetInt64(prefClientCount)
	if err != nil && !errors.Is(err, prefs.ErrNotFound) {
		return nil, fmt.Errorf("load client count: %w", err)
	}
	cfg.clientCount = count

	return cfg, nil
}

// ClusterURL returns the resolved storage cluster URL, empty until the
// ensureClusterURL stage has run (or a previous sync persisted one).
func (c *SyncConfiguration) ClusterURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clusterURL
}

// SetClusterURL records the cluster URL for this and future sessions.
func (c *SyncConfiguration) SetClusterURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clusterURL = url
}

// Timestamp returns the last-synced high-water mark for collection in
// milliseconds, zero when the collection has never synced.
func (c *SyncConfiguration) Timestamp(collection string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timestamps[collection]
}

// SetTimestamp records a new high-water mark for collection.
func (c *SyncConfiguration) SetTimestamp(collection string, ts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timestamps[collection] = ts
}

// ResetTimestamp zeroes the collection's high-water mark and persists the
// zero immediately: wipe semantics must survive a crash before session end.
func (c *SyncConfiguration) ResetTimestamp(collection string) error {
	c.mu.Lock()
	c.timestamps[collection] = 0
	c.mu.Unlock()
	return c.prefs.SetInt64(fmt.Sprintf(prefTimestampFmt, collection), 0)
}

// ClientRecordCount returns the persisted count of known client records.
func (c *SyncConfiguration) ClientRecordCount() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientCount
}

// SetClientRecordCount updates the persisted client record count.
func (c *SyncConfiguration) SetClientRecordCount(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clientCount = n
}

// Persist writes the mutable sync state back to the preference store. The
// completed stage calls this; stages with crash-sensitive state (wipes)
// persist their own keys eagerly.
func (c *SyncConfiguration) Persist() error {
	c.mu.RLock()
	cluster := c.clusterURL
	count := c.clientCount
	timestamps := make(map[string]int64, len(c.timestamps))
	for k, v := range c.timestamps {
		timestamps[k] = v
	}
	c.mu.RUnlock()

	if cluster != "" {
		if err := c.prefs.SetString(prefClusterURL, cluster); err != nil {
			return fmt.Errorf("persist cluster url: %w", err)
		}
	}
	for collection, ts := range timestamps {
		if err := c.prefs.SetInt64(fmt.Sprintf(prefTimestampFmt, collection), ts); err != nil {
			return fmt.Errorf("persist %s timestamp: %w", collection, err)
		}
	}
	if err := c.prefs.SetInt64(prefClientCount, count); err != nil {
		return fmt.Errorf("persist client count: %w", err)
	}
	return nil
}
