package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidStorageConfigs indicates invalid local storage settings
	// (for example, a file or sqlite driver without a path, or a redis
	// driver without an address).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
)
