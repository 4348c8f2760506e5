package config

import (
	"fmt"
	"time"
)

// Defaults applied to zero-valued sync policy fields before validation.
const (
	DefaultRequestTimeout     = 30 * time.Second
	DefaultSyncInterval       = 5 * time.Minute
	DefaultRetryLimit         = 2
	DefaultRetryBaseDelay     = 5 * time.Second
	DefaultOpTimeout          = 30 * time.Second
	DefaultRecordFailureLimit = 10
)

// GetClientConfig builds and validates the client configuration from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], applies defaults for
// unset timeout and policy fields, and validates the resulting
// [ClientConfig].
func GetClientConfig(overrides *StructuredConfig) (*ClientConfig, error) {
	cfg, err := GetStructuredConfig(overrides)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		Account: cfg.Account,
		Adapter: cfg.Adapter,
		Storage: cfg.Storage,
		Sync:    cfg.Sync,
	}
	clientCfg.applyDefaults()

	return clientCfg, clientCfg.validate()
}

func (cfg *ClientConfig) applyDefaults() {
	if cfg.Adapter.RequestTimeout == 0 {
		cfg.Adapter.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = DefaultSyncInterval
	}
	if cfg.Sync.RetryLimit == 0 {
		cfg.Sync.RetryLimit = DefaultRetryLimit
	}
	if cfg.Sync.RetryBaseDelay == 0 {
		cfg.Sync.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if cfg.Sync.OpTimeout == 0 {
		cfg.Sync.OpTimeout = DefaultOpTimeout
	}
	if cfg.Sync.RecordFailureLimit == 0 {
		cfg.Sync.RecordFailureLimit = DefaultRecordFailureLimit
	}
}
