package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON_FullFile(t *testing.T) {
	path := writeTempJSONConfig(t, map[string]any{
		"backend": map[string]any{
			"base_url":        "https://api.example.com",
			"token":           "json_token",
			"request_timeout": "10s",
			"beacon_url":      "https://beacon.example.com",
		},
		"storage": map[string]any{
			"driver":   "redis",
			"path":     "/var/data/settings.db",
			"capacity": 1048576,
			"redis": map[string]any{
				"addr":       "localhost:6379",
				"password":   "redis_secret",
				"db":         2,
				"key_prefix": "apex",
			},
		},
		"sync": map[string]any{
			"interval":               "5m",
			"debounce_quiet":         "2s",
			"timeout":                "30s",
			"immediate_keys":         []string{"profile/kyc_status"},
			"offline_after_failures": 3,
		},
		"telemetry": map[string]any{
			"max_metrics":             250,
			"max_alerts":              50,
			"latency_alert_ms":        1500,
			"conflict_rate_threshold": 0.4,
			"storage_usage_threshold": 0.9,
		},
	})

	cfg, err := parseJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, "json_token", cfg.Backend.Token)
	assert.Equal(t, 10*time.Second, cfg.Backend.RequestTimeout)
	assert.Equal(t, "https://beacon.example.com", cfg.Backend.BeaconURL)

	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "/var/data/settings.db", cfg.Storage.Path)
	assert.Equal(t, int64(1048576), cfg.Storage.Capacity)
	assert.Equal(t, "localhost:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, "redis_secret", cfg.Storage.Redis.Password)
	assert.Equal(t, 2, cfg.Storage.Redis.DB)
	assert.Equal(t, "apex", cfg.Storage.Redis.KeyPrefix)

	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 2*time.Second, cfg.Sync.DebounceQuiet)
	assert.Equal(t, 30*time.Second, cfg.Sync.Timeout)
	assert.Equal(t, []string{"profile/kyc_status"}, cfg.Sync.ImmediateKeys)
	assert.Equal(t, 3, cfg.Sync.OfflineAfterFailures)

	assert.Equal(t, 250, cfg.Telemetry.MaxMetrics)
	assert.Equal(t, 50, cfg.Telemetry.MaxAlerts)

	// The path field never propagates from the file itself.
	assert.Empty(t, cfg.JSONFilePath)
}

func TestParseJSON_MissingFile(t *testing.T) {
	cfg, err := parseJSON("/no/such/file.json")
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading a json file")
}

func TestParseJSON_MalformedFile(t *testing.T) {
	f := writeTempJSONConfig(t, map[string]any{})
	require.NoError(t, os.WriteFile(f, []byte("{not json"), 0o600))

	cfg, err := parseJSON(f)
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error decoding json configs")
}

// TestDuration_UnmarshalJSON tests the Duration wrapper against the value
// shapes a config file may contain.
func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    time.Duration
		expectError bool
	}{
		{
			name:     "duration string",
			input:    `"1h30m"`,
			expected: 90 * time.Minute,
		},
		{
			name:     "integer nanoseconds",
			input:    `1000000000`,
			expected: time.Second,
		},
		{
			name:        "invalid string",
			input:       `"not-a-duration"`,
			expectError: true,
		},
		{
			name:        "wrong type",
			input:       `true`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalJSON([]byte(tt.input))

			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, time.Duration(d))
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	data, err := Duration(90 * time.Minute).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1h30m0s"`, string(data))
}
