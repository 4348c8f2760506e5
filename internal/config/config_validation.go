package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validate checks the assembled client configuration against the `validate`
// tags on the section types and maps each failing field to the sentinel
// error of its configuration group.
func (cfg *ClientConfig) validate() error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("error validating config: %w", err)
	}

	joined := err
	for _, fe := range verrs {
		switch section(fe) {
		case "Account":
			joined = errors.Join(joined, ErrInvalidAccountConfigs)
		case "Adapter":
			joined = errors.Join(joined, ErrInvalidAdapterConfigs)
		case "Storage":
			joined = errors.Join(joined, ErrInvalidStorageConfigs)
		case "Sync":
			joined = errors.Join(joined, ErrInvalidSyncConfigs)
		}
	}

	return joined
}

// section extracts the configuration group name from a field error
// namespace like "ClientConfig.Adapter.NodeURL".
func section(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
