// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the settings
// sync client. It aggregates all sub-configurations and is populated by
// merging values from environment variables, command-line flags, and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
//
// All env lookups additionally carry the global SETTINGSYNC_ prefix.
type StructuredConfig struct {
	// Backend holds the remote settings service endpoint and credentials.
	Backend Backend `envPrefix:"BACKEND_"`

	// Storage selects and configures the local persistence backend for the
	// change queue and telemetry state.
	Storage Storage `envPrefix:"STORAGE_"`

	// Sync tunes the reconciliation engine's triggers and timeouts.
	Sync Sync `envPrefix:"SYNC_"`

	// Telemetry tunes buffer caps and alert thresholds for the performance
	// recorder.
	Telemetry Telemetry `envPrefix:"TELEMETRY_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via SETTINGSYNC_CONFIG or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// Backend holds the remote settings service connection settings.
type Backend struct {
	// BaseURL is the root URL of the settings service
	// (e.g. "https://api.apexmarkets.io").
	// Env: SETTINGSYNC_BACKEND_BASE_URL
	BaseURL string `env:"BASE_URL" validate:"omitempty,url"`

	// Token is the bearer token presented on every request. Usually set at
	// runtime after authentication rather than through configuration.
	// Env: SETTINGSYNC_BACKEND_TOKEN
	Token string `env:"TOKEN"`

	// RequestTimeout is the per-request timeout for outbound calls
	// (e.g. "10s"). Defaults are applied by the transport when zero.
	// Env: SETTINGSYNC_BACKEND_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// BeaconURL is the endpoint critical telemetry alerts are shipped to.
	// Empty disables the beacon.
	// Env: SETTINGSYNC_BACKEND_BEACON_URL
	BeaconURL string `env:"BEACON_URL" validate:"omitempty,url"`
}

// Storage selects the local key-value backend.
type Storage struct {
	// Driver names the backend: "memory", "file", "sqlite", or "redis".
	// Env: SETTINGSYNC_STORAGE_DRIVER
	Driver string `env:"DRIVER" validate:"omitempty,oneof=memory file sqlite redis"`

	// Path is the data file location for the "file" driver or the DSN for
	// the "sqlite" driver.
	// Env: SETTINGSYNC_STORAGE_PATH
	Path string `env:"PATH"`

	// Capacity caps the "memory" driver's total value bytes. Zero means
	// unbounded.
	// Env: SETTINGSYNC_STORAGE_CAPACITY
	Capacity int64 `env:"CAPACITY" validate:"omitempty,min=0"`

	// Redis holds connection settings for the "redis" driver.
	Redis Redis `envPrefix:"REDIS_"`
}

// Redis holds connection settings for the redis storage driver.
type Redis struct {
	// Addr is the server address in "host:port" format.
	// Env: SETTINGSYNC_STORAGE_REDIS_ADDR
	Addr string `env:"ADDR" validate:"omitempty,hostname_port"`

	// Password authenticates the connection. Empty for unauthenticated
	// servers.
	// Env: SETTINGSYNC_STORAGE_REDIS_PASSWORD
	Password string `env:"PASSWORD"`

	// DB selects the logical database number.
	// Env: SETTINGSYNC_STORAGE_REDIS_DB
	DB int `env:"DB" validate:"omitempty,min=0"`

	// KeyPrefix namespaces every key written by this client.
	// Env: SETTINGSYNC_STORAGE_REDIS_KEY_PREFIX
	KeyPrefix string `env:"KEY_PREFIX"`
}

// Sync tunes the reconciliation engine.
type Sync struct {
	// Interval is the periodic background sync cadence (e.g. "5m").
	// Env: SETTINGSYNC_SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL"`

	// DebounceQuiet is the quiet period rapid edits must observe before a
	// cycle is triggered (e.g. "2s").
	// Env: SETTINGSYNC_SYNC_DEBOUNCE_QUIET
	DebounceQuiet time.Duration `env:"DEBOUNCE_QUIET"`

	// Timeout bounds a single reconciliation cycle (e.g. "30s").
	// Env: SETTINGSYNC_SYNC_TIMEOUT
	Timeout time.Duration `env:"TIMEOUT"`

	// ImmediateKeys lists "<type>/<key>" addresses that bypass the
	// debounce. Entries may end in "*" for prefix matching.
	// Env: SETTINGSYNC_SYNC_IMMEDIATE_KEYS (comma-separated)
	ImmediateKeys []string `env:"IMMEDIATE_KEYS" envSeparator:","`

	// OfflineAfterFailures is the number of consecutive network failures
	// after which the client reports itself offline.
	// Env: SETTINGSYNC_SYNC_OFFLINE_AFTER_FAILURES
	OfflineAfterFailures int `env:"OFFLINE_AFTER_FAILURES" validate:"omitempty,min=1"`
}

// Telemetry tunes the performance recorder.
type Telemetry struct {
	// MaxMetrics caps the in-memory metric buffer.
	// Env: SETTINGSYNC_TELEMETRY_MAX_METRICS
	MaxMetrics int `env:"MAX_METRICS" validate:"omitempty,min=1"`

	// MaxAlerts caps the in-memory alert buffer.
	// Env: SETTINGSYNC_TELEMETRY_MAX_ALERTS
	MaxAlerts int `env:"MAX_ALERTS" validate:"omitempty,min=1"`

	// LatencyAlertMs is the sync latency above which an alert is raised.
	// Env: SETTINGSYNC_TELEMETRY_LATENCY_ALERT_MS
	LatencyAlertMs float64 `env:"LATENCY_ALERT_MS" validate:"omitempty,gt=0"`

	// ConflictRateThreshold is the conflicts-per-attempt ratio above which
	// an alert is raised, in (0, 1].
	// Env: SETTINGSYNC_TELEMETRY_CONFLICT_RATE_THRESHOLD
	ConflictRateThreshold float64 `env:"CONFLICT_RATE_THRESHOLD" validate:"omitempty,gt=0,lte=1"`

	// StorageUsageThreshold is the storage usage fraction above which an
	// alert is raised, in (0, 1].
	// Env: SETTINGSYNC_TELEMETRY_STORAGE_USAGE_THRESHOLD
	StorageUsageThreshold float64 `env:"STORAGE_USAGE_THRESHOLD" validate:"omitempty,gt=0,lte=1"`
}

// Load loads, merges, and validates the client configuration from all
// available sources in the following priority order (last source wins for
// non-zero fields):
//  1. .env file, if present
//  2. Environment variables
//  3. Command-line flags
//  4. JSON file (path resolved from sources 2 and 3)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func Load() (*StructuredConfig, error) {
	return newConfigBuilder().
		withDotenv().
		withEnv().
		withFlags().
		withJSON().
		build()
}
