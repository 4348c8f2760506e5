package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
)

type configBuilder struct {
	configs []*StructuredConfig
	err     error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{
		configs: make([]*StructuredConfig, 0, 4),
	}
}

func (b *configBuilder) build() (*StructuredConfig, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occured during building config: %w", b.err)
	}

	config := new(StructuredConfig)
	for _, cfg := range b.configs {
		if err := mergo.Merge(config, cfg); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	return config, nil
}

func (b *configBuilder) withEnv() *configBuilder {
	envCfg := &StructuredConfig{}
	if err := parseEnv(envCfg); err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}

	b.configs = append(b.configs, envCfg)
	return b
}

// withOverrides merges CLI-provided values. The cobra commands collect their
// flags into a StructuredConfig and pass it here; a nil or empty override is
// a no-op.
func (b *configBuilder) withOverrides(overrides *StructuredConfig) *configBuilder {
	if overrides == nil {
		return b
	}

	b.configs = append(b.configs, overrides)
	return b
}

func (b *configBuilder) withJSON() *configBuilder {
	var jsonPath string
	isJSONSpecified := false

	for _, cfg := range b.configs {
		if cfg.JSONFilePath != "" {
			isJSONSpecified = true
			jsonPath = cfg.JSONFilePath
		}
	}

	if isJSONSpecified {
		jsonCfg, err := parseJSON(jsonPath)
		if err != nil {
			b.err = errors.Join(b.err, err)
			return b
		}
		b.configs = append(b.configs, jsonCfg)
	}

	return b
}

// GetStructuredConfig loads and merges the application configuration from all
// available sources in the following priority order (first non-zero value
// wins):
//  1. CLI flag overrides
//  2. Environment variables
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns the merged *StructuredConfig or an error if any source fails to
// load. Validation happens later, once the client view is assembled and
// defaults are applied.
func GetStructuredConfig(overrides *StructuredConfig) (*StructuredConfig, error) {
	return newConfigBuilder().
		withOverrides(overrides).
		withEnv().
		withJSON().
		build()
}
