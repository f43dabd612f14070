package telemetry

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexmarkets/settingsync/internal/logger"
	"github.com/apexmarkets/settingsync/internal/storage"
	"github.com/apexmarkets/settingsync/models"
)

type recordingBeacon struct {
	events []models.BeaconEvent
}

func (b *recordingBeacon) Emit(event models.BeaconEvent) {
	b.events = append(b.events, event)
}

func newTestRecorder(t *testing.T) (*Recorder, *recordingBeacon) {
	t.Helper()
	beacon := &recordingBeacon{}
	rec := NewRecorder(context.Background(), DefaultConfig(), storage.NewMemory(), beacon, logger.Nop())
	return rec, beacon
}

// ── Metrics ──────────────────────────────────────────────────────────────────

func TestRecordMetric_AssignsIDAndUnit(t *testing.T) {
	rec, _ := newTestRecorder(t)

	metric := rec.RecordMetric(models.MetricSyncLatency, 120, map[string]string{"trigger": "interval"})

	assert.NotEmpty(t, metric.ID)
	assert.Equal(t, "ms", metric.Unit)
	assert.Len(t, rec.Metrics(), 1)
}

func TestRecordMetric_FIFOEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMetrics = 3
	rec := NewRecorder(context.Background(), cfg, storage.NewMemory(), nil, logger.Nop())

	for i := 0; i < 5; i++ {
		rec.RecordMetric(models.MetricInteractionLatency, float64(i), nil)
	}

	metrics := rec.Metrics()
	require.Len(t, metrics, 3)
	// Oldest evicted first.
	assert.Equal(t, float64(2), metrics[0].Value)
	assert.Equal(t, float64(4), metrics[2].Value)
}

// ── Threshold alerts ─────────────────────────────────────────────────────────

func TestRecordMetric_LatencySeverityBands(t *testing.T) {
	tests := []struct {
		latency float64
		want    models.AlertSeverity
	}{
		{1200, models.SeverityMedium},
		{2500, models.SeverityHigh},
		{6000, models.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.0fms", tt.latency), func(t *testing.T) {
			rec, _ := newTestRecorder(t)

			metric := rec.RecordMetric(models.MetricSyncLatency, tt.latency, nil)

			alerts := rec.Alerts()
			require.Len(t, alerts, 1)
			assert.Equal(t, models.AlertHighLatency, alerts[0].Type)
			assert.Equal(t, tt.want, alerts[0].Severity)
			assert.Equal(t, metric.ID, alerts[0].MetricID)
		})
	}
}

func TestRecordMetric_LatencyUnderThresholdNoAlert(t *testing.T) {
	rec, _ := newTestRecorder(t)

	rec.RecordMetric(models.MetricSyncLatency, 800, nil)

	assert.Empty(t, rec.Alerts())
}

func TestRecordMetric_StorageUsageAlert(t *testing.T) {
	rec, _ := newTestRecorder(t)

	rec.RecordMetric(models.MetricStorageUsage, 0.97, nil)

	alerts := rec.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertStorageFull, alerts[0].Type)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
}

func TestSampleStorageUsage_FillingBackendRaisesAlert(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryWithCapacity(10_000)
	require.NoError(t, store.Set(ctx, "bulk", strings.Repeat("x", 9_596)))
	rec := NewRecorder(ctx, DefaultConfig(), store, nil, logger.Nop())

	rec.SampleStorageUsage(ctx)

	metrics := rec.Metrics()
	require.Len(t, metrics, 1)
	assert.Equal(t, models.MetricStorageUsage, metrics[0].Name)
	assert.InDelta(t, 0.96, metrics[0].Value, 1e-9)

	alerts := rec.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertStorageFull, alerts[0].Type)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
}

func TestSampleStorageUsage_BelowThresholdNoAlert(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryWithCapacity(10_000)
	require.NoError(t, store.Set(ctx, "bulk", strings.Repeat("x", 4_996)))
	rec := NewRecorder(ctx, DefaultConfig(), store, nil, logger.Nop())

	rec.SampleStorageUsage(ctx)

	require.Len(t, rec.Metrics(), 1)
	assert.Empty(t, rec.Alerts())
}

func TestSampleStorageUsage_UnboundedBackendIsSkipped(t *testing.T) {
	rec, _ := newTestRecorder(t)

	rec.SampleStorageUsage(context.Background())

	assert.Empty(t, rec.Metrics())
	assert.Empty(t, rec.Alerts())
}

func TestNetworkErrorRateAlert(t *testing.T) {
	rec, _ := newTestRecorder(t)

	// 3 failures out of 4 requests: error rate 0.75 > 0.5 threshold.
	rec.RecordMetric(models.MetricNetworkRequest, 50, map[string]string{"outcome": "success"})
	for i := 0; i < 3; i++ {
		rec.RecordMetric(models.MetricNetworkRequest, 50, map[string]string{"outcome": "failure"})
	}

	var found *models.PerformanceAlert
	for _, alert := range rec.Alerts() {
		if alert.Type == models.AlertNetworkError {
			a := alert
			found = &a
		}
	}
	require.NotNil(t, found)
}

func TestConflictRateAlert(t *testing.T) {
	rec, _ := newTestRecorder(t)

	rec.RecordSyncAttempt()
	rec.RecordSyncAttempt()
	// 2 conflicts over 2 attempts: rate 1.0 > 0.5.
	rec.RecordConflictDetected()
	rec.RecordConflictDetected()

	var found bool
	for _, alert := range rec.Alerts() {
		if alert.Type == models.AlertConflictRate {
			found = true
		}
	}
	assert.True(t, found)
}

// ── Alert lifecycle ──────────────────────────────────────────────────────────

func TestRaiseAlert_SupersedesPreviousOfSameType(t *testing.T) {
	rec, _ := newTestRecorder(t)

	first := rec.RaiseAlert(models.AlertStorageFull, models.SeverityMedium, "80%")
	rec.RaiseAlert(models.AlertStorageFull, models.SeverityHigh, "92%")

	alerts := rec.Alerts()
	require.Len(t, alerts, 2)
	assert.True(t, alerts[0].Resolved, "older alert of same type is superseded")
	assert.NotNil(t, alerts[0].ResolvedAt)
	assert.False(t, alerts[1].Resolved)
	assert.Equal(t, first.ID, alerts[0].ID)
}

func TestResolveAlert_Idempotent(t *testing.T) {
	rec, _ := newTestRecorder(t)
	alert := rec.RaiseAlert(models.AlertNetworkError, models.SeverityMedium, "flaky link")

	assert.True(t, rec.ResolveAlert(alert.ID))
	assert.False(t, rec.ResolveAlert(alert.ID), "second resolve is a no-op")
	assert.False(t, rec.ResolveAlert("unknown-id"))
}

func TestRaiseAlert_EmitsBeaconEvent(t *testing.T) {
	rec, beacon := newTestRecorder(t)

	rec.RaiseAlert(models.AlertHighLatency, models.SeverityHigh, "slow")

	require.Len(t, beacon.events, 1)
	assert.Equal(t, "alert", beacon.events[0].Kind)
	require.NotNil(t, beacon.events[0].Alert)
	assert.Equal(t, models.AlertHighLatency, beacon.events[0].Alert.Type)
}

// ── Stats ────────────────────────────────────────────────────────────────────

func TestStats_ConflictRateUsesExplicitAttemptCounter(t *testing.T) {
	rec, _ := newTestRecorder(t)

	// Scenario: 10 sync cycles, 3 conflicts within the window.
	for i := 0; i < 10; i++ {
		rec.RecordSyncAttempt()
	}
	for i := 0; i < 3; i++ {
		rec.RecordConflictDetected()
	}

	stats := rec.Stats(context.Background(), WindowHour)
	assert.InDelta(t, 0.3, stats.ConflictRate, 1e-9)
	assert.Equal(t, 10, stats.SyncAttempts)
	assert.Equal(t, 3, stats.Conflicts)
}

func TestStats_Averages(t *testing.T) {
	rec, _ := newTestRecorder(t)

	rec.RecordMetric(models.MetricSyncLatency, 100, nil)
	rec.RecordMetric(models.MetricSyncLatency, 300, nil)
	rec.RecordMetric(models.MetricInteractionLatency, 40, nil)
	rec.RecordMetric(models.MetricNetworkRequest, 80, map[string]string{"outcome": "success"})
	rec.RecordMetric(models.MetricNetworkRequest, 80, map[string]string{"outcome": "failure"})

	stats := rec.Stats(context.Background(), WindowHour)
	assert.Equal(t, 200*time.Millisecond, stats.AvgSyncLatency)
	assert.Equal(t, 40*time.Millisecond, stats.AvgInteractionLatency)
	assert.InDelta(t, 0.5, stats.NetworkSuccessRate, 1e-9)
}

func TestStats_WindowExcludesOldSamples(t *testing.T) {
	rec, _ := newTestRecorder(t)
	past := time.Now().Add(-2 * time.Hour)
	rec.now = func() time.Time { return past }
	rec.RecordMetric(models.MetricSyncLatency, 500, nil)
	rec.RecordSyncAttempt()

	rec.now = time.Now
	rec.RecordMetric(models.MetricSyncLatency, 100, nil)
	rec.RecordSyncAttempt()

	hourly := rec.Stats(context.Background(), WindowHour)
	assert.Equal(t, 100*time.Millisecond, hourly.AvgSyncLatency)
	assert.Equal(t, 1, hourly.SyncAttempts)

	daily := rec.Stats(context.Background(), WindowDay)
	assert.Equal(t, 300*time.Millisecond, daily.AvgSyncLatency)
	assert.Equal(t, 2, daily.SyncAttempts)
}

// ── Persistence ──────────────────────────────────────────────────────────────

func TestRecorder_RehydratesFromStorage(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()

	first := NewRecorder(ctx, DefaultConfig(), store, nil, logger.Nop())
	first.RecordMetric(models.MetricSyncLatency, 150, nil)
	first.RaiseAlert(models.AlertNetworkError, models.SeverityMedium, "flaky")
	first.Close()

	second := NewRecorder(ctx, DefaultConfig(), store, nil, logger.Nop())
	assert.Len(t, second.Metrics(), 1)
	assert.Len(t, second.Alerts(), 1)
}

func TestRecorder_CorruptStateResetsWithAlert(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, StorageKey, "also not json{"))

	rec := NewRecorder(ctx, DefaultConfig(), store, nil, logger.Nop())

	assert.Empty(t, rec.Metrics())
	alerts := rec.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertDataLoss, alerts[0].Type)
	assert.Equal(t, models.SeverityLow, alerts[0].Severity)
}
