// Package config assembles the weavesync client configuration from
// environment variables, CLI overrides, and an optional JSON file, merged
// in that order of precedence.
package config

import "time"

// StructuredConfig is the top-level configuration container. It is
// populated by merging values from environment variables, CLI overrides,
// and an optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// Account holds the sync account identity and secrets.
	Account Account `envPrefix:"ACCOUNT_" json:"account,omitempty"`

	// Adapter holds the transport settings for the storage service.
	Adapter Adapter `envPrefix:"ADAPTER_" json:"adapter,omitempty"`

	// Storage holds the local persistence settings: the client registry
	// database and the preference file.
	Storage Storage `envPrefix:"STORAGE_" json:"storage,omitempty"`

	// Sync holds the orchestration policy knobs: scheduling, retry
	// budget, and failure thresholds.
	Sync Sync `envPrefix:"SYNC_" json:"sync,omitempty"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded. Populated via the CONFIG environment variable or
	// the --config CLI flag.
	JSONFilePath string `env:"CONFIG" json:"-"`
}

// Account identifies the sync account and carries its secrets.
type Account struct {
	// Username is the account identifier embedded in storage paths.
	// Env: ACCOUNT_USERNAME
	Username string `env:"USERNAME" json:"username" validate:"required"`

	// Password is the basic-auth credential. Ignored when Token is set.
	// Env: ACCOUNT_PASSWORD
	Password string `env:"PASSWORD" json:"password" validate:"required_without=Token"`

	// Token is a bearer token issued by the account server. Takes
	// precedence over Password when non-empty.
	// Env: ACCOUNT_TOKEN
	Token string `env:"TOKEN" json:"token"`

	// SyncPassphrase is the secret the collection key bundle is derived
	// from. Never sent to the server.
	// Env: ACCOUNT_SYNC_PASSPHRASE
	SyncPassphrase string `env:"SYNC_PASSPHRASE" json:"sync_passphrase" validate:"required"`
}

// Adapter holds transport settings for the storage service.
type Adapter struct {
	// NodeURL is the node-assignment service base URL used to discover
	// this account's storage cluster.
	// Env: ADAPTER_NODE_URL
	NodeURL string `env:"NODE_URL" json:"node_url" validate:"required,url"`

	// RequestTimeout bounds every outbound storage request.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" json:"request_timeout" validate:"gt=0"`
}

// Storage holds local persistence settings.
type Storage struct {
	// RegistryDSN is the SQLite connection string for the client
	// registry database. In-memory databases lose the registry between
	// runs and are rejected.
	// Env: STORAGE_REGISTRY_DSN
	RegistryDSN string `env:"REGISTRY_DSN" json:"registry_dsn" validate:"required,excludes=memory"`

	// PrefsPath is the preference file holding persisted sync state.
	// Env: STORAGE_PREFS_PATH
	PrefsPath string `env:"PREFS_PATH" json:"prefs_path" validate:"required"`
}

// Sync holds the orchestration policy knobs.
type Sync struct {
	// Interval is how often the daemon schedules sync attempts.
	// Env: SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL" json:"interval" validate:"gt=0"`

	// RetryLimit bounds per-stage retries on transient transport
	// failures.
	// Env: SYNC_RETRY_LIMIT
	RetryLimit int `env:"RETRY_LIMIT" json:"retry_limit" validate:"gte=0"`

	// RetryBaseDelay is the exponential backoff base between retries.
	// Env: SYNC_RETRY_BASE_DELAY
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" json:"retry_base_delay" validate:"gte=0"`

	// OpTimeout bounds every delegate wait inside a stage.
	// Env: SYNC_OP_TIMEOUT
	OpTimeout time.Duration `env:"OP_TIMEOUT" json:"op_timeout" validate:"gt=0"`

	// RecordFailureLimit is the number of per-record envelope/crypto
	// failures tolerated per collection before the stage aborts.
	// Env: SYNC_RECORD_FAILURE_LIMIT
	RecordFailureLimit int `env:"RECORD_FAILURE_LIMIT" json:"record_failure_limit" validate:"gte=0"`
}

// ClientConfig is the validated view handed to the composition root.
type ClientConfig struct {
	// Account contains the sync account identity and secrets.
	Account Account
	// Adapter contains the storage service transport settings.
	Adapter Adapter
	// Storage contains local persistence settings.
	Storage Storage
	// Sync contains the orchestration policy knobs.
	Sync Sync
}
