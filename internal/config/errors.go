package config

import "errors"

// Validation errors returned by [ClientConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidAccountConfigs indicates invalid account settings (for
	// example, missing username or sync passphrase).
	ErrInvalidAccountConfigs = errors.New("invalid account configuration")
	// ErrInvalidAdapterConfigs indicates invalid transport settings (for
	// example, missing node URL or zero request timeout).
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
	// ErrInvalidStorageConfigs indicates invalid local storage settings
	// (for example, empty DSN or unsupported in-memory DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidSyncConfigs indicates invalid sync policy settings (for
	// example, negative retry limit).
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
)
