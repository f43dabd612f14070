package config

import (
	"flag"
	"strings"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-backend-url settings service root URL
//	-beacon-url telemetry beacon endpoint URL
//	-request-timeout outbound request timeout (e.g., "10s")
//	-driver storage driver: memory, file, sqlite, redis
//	-storage-path data file path or sqlite DSN
//	-redis-addr redis server address in format [host]:[port]
//	-sync-interval background sync cadence (e.g., "5m")
//	-debounce quiet period before a debounced sync (e.g., "2s")
//	-sync-timeout single cycle timeout (e.g., "30s")
//	-immediate-keys comma-separated keys that bypass the debounce
//	-c/-config json file path with configs
func ParseFlags() *StructuredConfig {
	var backendURL string
	var beaconURL string
	var requestTimeout time.Duration
	var storageDriver string
	var storagePath string
	var redisAddr string
	var syncInterval time.Duration
	var debounceQuiet time.Duration
	var syncTimeout time.Duration
	var immediateKeys string
	var jsonConfigPath string

	flag.StringVar(&backendURL, "backend-url", "", "Settings service root URL")
	flag.StringVar(&beaconURL, "beacon-url", "", "Telemetry beacon endpoint URL")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Outbound request timeout (e.g., 10s)")
	flag.StringVar(&storageDriver, "driver", "", "Storage driver: memory, file, sqlite, redis")
	flag.StringVar(&storagePath, "storage-path", "", "Data file path or sqlite DSN")
	flag.StringVar(&redisAddr, "redis-addr", "", "Redis server address host:port")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Background sync cadence (e.g., 5m)")
	flag.DurationVar(&debounceQuiet, "debounce", 0, "Quiet period before a debounced sync (e.g., 2s)")
	flag.DurationVar(&syncTimeout, "sync-timeout", 0, "Single sync cycle timeout (e.g., 30s)")
	flag.StringVar(&immediateKeys, "immediate-keys", "", "Comma-separated keys that bypass the debounce")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")

	flag.Parse()

	return &StructuredConfig{
		Backend: Backend{
			BaseURL:        backendURL,
			BeaconURL:      beaconURL,
			RequestTimeout: requestTimeout,
		},
		Storage: Storage{
			Driver: storageDriver,
			Path:   storagePath,
			Redis: Redis{
				Addr: redisAddr,
			},
		},
		Sync: Sync{
			Interval:      syncInterval,
			DebounceQuiet: debounceQuiet,
			Timeout:       syncTimeout,
			ImmediateKeys: splitList(immediateKeys),
		},
		Telemetry:    Telemetry{},
		JSONFilePath: jsonConfigPath,
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}
