package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	Backend struct {
		BaseURL        string   `json:"base_url"`
		Token          string   `json:"token"`
		RequestTimeout Duration `json:"request_timeout"`
		BeaconURL      string   `json:"beacon_url"`
	} `json:"backend,omitempty"`

	Storage struct {
		Driver   string `json:"driver"`
		Path     string `json:"path"`
		Capacity int64  `json:"capacity"`

		Redis struct {
			Addr      string `json:"addr"`
			Password  string `json:"password"`
			DB        int    `json:"db"`
			KeyPrefix string `json:"key_prefix"`
		} `json:"redis,omitempty"`
	} `json:"storage,omitempty"`

	Sync struct {
		Interval             Duration `json:"interval"`
		DebounceQuiet        Duration `json:"debounce_quiet"`
		Timeout              Duration `json:"timeout"`
		ImmediateKeys        []string `json:"immediate_keys"`
		OfflineAfterFailures int      `json:"offline_after_failures"`
	} `json:"sync,omitempty"`

	Telemetry struct {
		MaxMetrics            int     `json:"max_metrics"`
		MaxAlerts             int     `json:"max_alerts"`
		LatencyAlertMs        float64 `json:"latency_alert_ms"`
		ConflictRateThreshold float64 `json:"conflict_rate_threshold"`
		StorageUsageThreshold float64 `json:"storage_usage_threshold"`
	} `json:"telemetry,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		Backend: Backend{
			BaseURL:        jsonCfg.Backend.BaseURL,
			Token:          jsonCfg.Backend.Token,
			RequestTimeout: time.Duration(jsonCfg.Backend.RequestTimeout),
			BeaconURL:      jsonCfg.Backend.BeaconURL,
		},
		Storage: Storage{
			Driver:   jsonCfg.Storage.Driver,
			Path:     jsonCfg.Storage.Path,
			Capacity: jsonCfg.Storage.Capacity,
			Redis: Redis{
				Addr:      jsonCfg.Storage.Redis.Addr,
				Password:  jsonCfg.Storage.Redis.Password,
				DB:        jsonCfg.Storage.Redis.DB,
				KeyPrefix: jsonCfg.Storage.Redis.KeyPrefix,
			},
		},
		Sync: Sync{
			Interval:             time.Duration(jsonCfg.Sync.Interval),
			DebounceQuiet:        time.Duration(jsonCfg.Sync.DebounceQuiet),
			Timeout:              time.Duration(jsonCfg.Sync.Timeout),
			ImmediateKeys:        jsonCfg.Sync.ImmediateKeys,
			OfflineAfterFailures: jsonCfg.Sync.OfflineAfterFailures,
		},
		Telemetry: Telemetry{
			MaxMetrics:            jsonCfg.Telemetry.MaxMetrics,
			MaxAlerts:             jsonCfg.Telemetry.MaxAlerts,
			LatencyAlertMs:        jsonCfg.Telemetry.LatencyAlertMs,
			ConflictRateThreshold: jsonCfg.Telemetry.ConflictRateThreshold,
			StorageUsageThreshold: jsonCfg.Telemetry.StorageUsageThreshold,
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
