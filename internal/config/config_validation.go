// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate checks that the final merged [StructuredConfig] satisfies all
// client invariants before it is used at startup.
//
// Field-level rules are declared as `validate` struct tags and checked with
// go-playground/validator. Cross-field rules (a driver requiring its
// connection settings) are checked explicitly afterwards.
//
// Returns nil if the configuration is valid, or a descriptive error
// otherwise.
func (cfg *StructuredConfig) validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return fmt.Errorf("invalid configuration: %w", validationErrs)
		}
		return fmt.Errorf("error validating configuration: %w", err)
	}

	switch cfg.Storage.Driver {
	case "file", "sqlite":
		if cfg.Storage.Path == "" {
			return ErrInvalidStorageConfigs
		}
	case "redis":
		if cfg.Storage.Redis.Addr == "" {
			return ErrInvalidStorageConfigs
		}
	}

	return nil
}
