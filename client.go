// SPDX-License-Identifier: Apache-2.0

package settingsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apexmarkets/settingsync/internal/adapter"
	"github.com/apexmarkets/settingsync/internal/config"
	"github.com/apexmarkets/settingsync/internal/logger"
	"github.com/apexmarkets/settingsync/internal/queue"
	"github.com/apexmarkets/settingsync/internal/resolver"
	"github.com/apexmarkets/settingsync/internal/service"
	"github.com/apexmarkets/settingsync/internal/storage"
	"github.com/apexmarkets/settingsync/internal/telemetry"
	"github.com/apexmarkets/settingsync/models"
)

// Window re-exports the telemetry aggregation windows accepted by
// [Client.Stats].
type Window = telemetry.Window

// Aggregation windows for [Client.Stats].
const (
	WindowHour = telemetry.WindowHour
	WindowDay  = telemetry.WindowDay
	WindowWeek = telemetry.WindowWeek
)

// Config is an alias for the loadable client configuration. Build one with
// [LoadConfig] or populate it directly.
type Config = config.StructuredConfig

// LoadConfig assembles the client configuration from a .env file,
// environment variables, command-line flags, and an optional JSON file.
func LoadConfig() (*Config, error) {
	return config.Load()
}

// Client is the embedding application's entry point to settings
// synchronization. All methods are safe for concurrent use.
type Client struct {
	logger   *logger.Logger
	store    storage.KV
	closer   func() error
	queue    *queue.ChangeQueue
	recorder *telemetry.Recorder
	backend  adapter.SettingsBackend
	engine   *service.Engine
	job      *service.SyncJob
	interval time.Duration
}

// New wires a Client from cfg. A nil cfg uses defaults throughout: in-memory
// storage, localhost backend, production telemetry thresholds.
func New(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	log := logger.NewLogger("settingsync")

	store, closer, err := openStorage(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("open local storage: %w", err)
	}

	var beacon telemetry.BeaconSink
	if cfg.Backend.BeaconURL != "" {
		beacon = adapter.NewBeacon(cfg.Backend.BeaconURL, cfg.Backend.RequestTimeout, log)
	}

	recorder := telemetry.NewRecorder(ctx, telemetryConfig(cfg.Telemetry), store, beacon, log)
	chQueue := queue.NewChangeQueue(ctx, store, recorder, log)
	res := resolver.New(recorder, log)

	backend := adapter.NewHTTPBackend(adapter.HTTPConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.RequestTimeout,
	})
	if cfg.Backend.Token != "" {
		backend.SetToken(cfg.Backend.Token)
	}

	engine := service.NewEngine(service.Config{
		SyncTimeout:          cfg.Sync.Timeout,
		DebounceQuiet:        cfg.Sync.DebounceQuiet,
		ImmediateKeys:        cfg.Sync.ImmediateKeys,
		OfflineAfterFailures: cfg.Sync.OfflineAfterFailures,
	}, chQueue, backend, res, recorder, log)

	return &Client{
		logger:   log,
		store:    store,
		closer:   closer,
		queue:    chQueue,
		recorder: recorder,
		backend:  backend,
		engine:   engine,
		job:      service.NewSyncJob(engine),
		interval: cfg.Sync.Interval,
	}, nil
}

// SetToken installs the session's bearer token on the backend transport.
// Call it after authentication and on every token refresh.
func (c *Client) SetToken(token string) {
	c.backend.SetToken(token)
}

// Apply records a local settings edit. The change is queued durably and
// scheduled for propagation; Apply itself never touches the network.
// Returns the number of pending changes.
func (c *Client) Apply(ctx context.Context, settingType models.SettingType, key string, oldValue, newValue json.RawMessage) int {
	return c.engine.Apply(ctx, models.SettingsChange{
		SettingType: settingType,
		SettingKey:  key,
		OldValue:    oldValue,
		NewValue:    newValue,
	})
}

// Sync runs one reconciliation cycle now, or joins the cycle already in
// flight.
func (c *Client) Sync(ctx context.Context) (models.SyncReport, error) {
	return c.engine.SyncCycle(ctx)
}

// Start launches the periodic background sync. The cadence comes from the
// configuration's sync interval; zero means the 5-minute default.
func (c *Client) Start(ctx context.Context) {
	c.job.Start(ctx, c.interval)
}

// Status reports the engine's current view: connectivity, pending changes,
// and unresolved conflicts.
func (c *Client) Status() models.SyncStatus {
	return c.engine.Status()
}

// ResolveConflict applies the user's decision to a surfaced conflict.
func (c *Client) ResolveConflict(ctx context.Context, conflictID string, resolution models.Resolution) error {
	return c.engine.ResolveConflict(ctx, conflictID, resolution)
}

// Stats aggregates recorded metrics over the given window.
func (c *Client) Stats(ctx context.Context, window Window) models.SyncStats {
	return c.recorder.Stats(ctx, window)
}

// Alerts returns the currently retained performance alerts, newest last.
func (c *Client) Alerts() []models.PerformanceAlert {
	return c.recorder.Alerts()
}

// ResolveAlert marks an alert as acknowledged.
func (c *Client) ResolveAlert(id string) bool {
	return c.recorder.ResolveAlert(id)
}

// Close stops the background job, flushes telemetry, and releases the
// storage backend.
func (c *Client) Close() error {
	c.job.Stop()
	c.engine.Close()
	c.recorder.Close()

	if c.closer != nil {
		if err := c.closer(); err != nil {
			return fmt.Errorf("close local storage: %w", err)
		}
	}
	return nil
}

func openStorage(ctx context.Context, cfg config.Storage, log *logger.Logger) (storage.KV, func() error, error) {
	switch cfg.Driver {
	case "", "memory":
		if cfg.Capacity > 0 {
			return storage.NewMemoryWithCapacity(cfg.Capacity), nil, nil
		}
		return storage.NewMemory(), nil, nil

	case "file":
		kv, err := storage.NewFile(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return kv, nil, nil

	case "sqlite":
		kv, err := storage.NewSQLite(ctx, cfg.Path, log)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil

	case "redis":
		kv, err := storage.NewRedisWithOptions(ctx, storage.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func telemetryConfig(cfg config.Telemetry) telemetry.Config {
	out := telemetry.DefaultConfig()
	if cfg.MaxMetrics > 0 {
		out.MaxMetrics = cfg.MaxMetrics
	}
	if cfg.MaxAlerts > 0 {
		out.MaxAlerts = cfg.MaxAlerts
	}
	if cfg.LatencyAlertMs > 0 {
		out.LatencyAlertMs = cfg.LatencyAlertMs
	}
	if cfg.ConflictRateThreshold > 0 {
		out.ConflictRate = cfg.ConflictRateThreshold
	}
	if cfg.StorageUsageThreshold > 0 {
		out.StorageUsage = cfg.StorageUsageThreshold
	}
	return out
}
