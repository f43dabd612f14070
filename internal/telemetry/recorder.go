// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Apex Markets

// Package telemetry implements the rolling operational statistics and
// threshold alerting for the sync subsystem.
//
// A Recorder is an explicitly constructed instance with a Close lifecycle;
// there is deliberately no package-level singleton, so tests and embedding
// hosts create isolated recorders. Retention for both metrics and alerts is
// capped FIFO: the oldest entries are evicted on overflow. Alerts are never
// auto-deleted within capacity; they are closed explicitly via ResolveAlert
// or superseded when a newer alert of the same type fires.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/apexmarkets/settingsync/internal/logger"
	"github.com/apexmarkets/settingsync/internal/storage"
	"github.com/apexmarkets/settingsync/models"
)

// StorageKey is the KV key the recorder owns for its persisted state.
const StorageKey = "settingsync/telemetry"

// Window selects the time span Stats aggregates over.
type Window string

const (
	WindowHour Window = "hour"
	WindowDay  Window = "day"
	WindowWeek Window = "week"
)

// Duration returns the span covered by the window, defaulting to an hour.
func (w Window) Duration() time.Duration {
	switch w {
	case WindowDay:
		return 24 * time.Hour
	case WindowWeek:
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// BeaconSink receives alert events for best-effort outbound delivery.
// Implementations must not block the caller and must never retry.
type BeaconSink interface {
	Emit(event models.BeaconEvent)
}

// Config carries retention caps and alert thresholds.
type Config struct {
	MaxMetrics int
	MaxAlerts  int

	// LatencyAlertMs is the sync latency above which a high_latency alert
	// fires. Severity grades at LatencyHighMs and LatencyCriticalMs.
	LatencyAlertMs    float64
	LatencyHighMs     float64
	LatencyCriticalMs float64

	// ConflictRate is the conflicts-per-attempt fraction (hourly window)
	// above which a conflict_rate alert fires.
	ConflictRate float64

	// StorageUsage is the occupancy fraction above which a storage_full
	// alert fires.
	StorageUsage float64

	// NetworkErrorRate is the failed-request fraction (hourly window) above
	// which a network_error alert fires.
	NetworkErrorRate float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MaxMetrics:        500,
		MaxAlerts:         100,
		LatencyAlertMs:    1000,
		LatencyHighMs:     2000,
		LatencyCriticalMs: 5000,
		ConflictRate:      0.5,
		StorageUsage:      0.8,
		NetworkErrorRate:  0.5,
	}
}

// Recorder owns the capped metric and alert sequences plus the explicit
// attempt/conflict counters that give the conflict rate its exact
// denominator.
type Recorder struct {
	cfg    Config
	store  storage.KV
	beacon BeaconSink
	logger *logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	metrics   []models.PerformanceMetric
	alerts    []models.PerformanceAlert
	attempts  []time.Time
	conflicts []time.Time
	degraded  bool
}

type persistedState struct {
	Metrics   []models.PerformanceMetric `json:"metrics"`
	Alerts    []models.PerformanceAlert  `json:"alerts"`
	Attempts  []time.Time                `json:"attempts"`
	Conflicts []time.Time                `json:"conflicts"`
}

// NewRecorder constructs a Recorder rehydrated from the storage port.
// Corrupt persisted state resets to empty and is surfaced as a low-severity
// data_loss alert.
func NewRecorder(ctx context.Context, cfg Config, store storage.KV, beacon BeaconSink, log *logger.Logger) *Recorder {
	if cfg.MaxMetrics <= 0 {
		cfg.MaxMetrics = DefaultConfig().MaxMetrics
	}
	if cfg.MaxAlerts <= 0 {
		cfg.MaxAlerts = DefaultConfig().MaxAlerts
	}

	r := &Recorder{
		cfg:    cfg,
		store:  store,
		beacon: beacon,
		logger: log,
		now:    time.Now,
	}

	raw, err := store.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Msg("telemetry rehydration read failed, starting empty")
		}
		return r
	}

	var st persistedState
	if err = json.Unmarshal([]byte(raw), &st); err != nil {
		log.Warn().Err(err).Msg("telemetry state corrupt, resetting")
		_ = store.Remove(ctx, StorageKey)
		r.RaiseAlert(models.AlertDataLoss, models.SeverityLow,
			"persisted telemetry state was corrupt and has been reset")
		return r
	}

	r.metrics = st.Metrics
	r.alerts = st.Alerts
	r.attempts = st.Attempts
	r.conflicts = st.Conflicts
	return r
}

// RecordMetric appends a telemetry sample and synchronously runs the
// threshold checks that concern it. The sample is returned with its
// assigned id and timestamp.
func (r *Recorder) RecordMetric(name models.MetricName, value float64, metadata map[string]string) models.PerformanceMetric {
	metric := models.PerformanceMetric{
		ID:        uuid.NewString(),
		Name:      name,
		Value:     value,
		Unit:      unitFor(name),
		Timestamp: r.now().UTC(),
		Metadata:  metadata,
	}

	r.mu.Lock()
	r.metrics = append(r.metrics, metric)
	if overflow := len(r.metrics) - r.cfg.MaxMetrics; overflow > 0 {
		r.metrics = r.metrics[overflow:]
	}
	r.mu.Unlock()

	r.checkThresholds(metric)
	r.persist()
	return metric
}

// RecordSyncAttempt counts one reconciliation cycle for the conflict-rate
// denominator.
func (r *Recorder) RecordSyncAttempt() {
	r.mu.Lock()
	r.attempts = trimWindow(append(r.attempts, r.now()), r.now().Add(-WindowWeek.Duration()))
	r.mu.Unlock()
	r.persist()
}

// RecordConflictDetected counts one detected conflict for the conflict-rate
// numerator and re-checks the rate threshold.
func (r *Recorder) RecordConflictDetected() {
	now := r.now()
	r.mu.Lock()
	r.conflicts = trimWindow(append(r.conflicts, now), now.Add(-WindowWeek.Duration()))
	r.mu.Unlock()

	r.checkConflictRate()
	r.persist()
}

// SampleStorageUsage reads the backend's occupancy and records it as a
// storage usage metric, which runs the graduated storage_full threshold
// check. Unbounded backends report no occupancy and are not sampled.
func (r *Recorder) SampleStorageUsage(ctx context.Context) {
	usage, err := r.store.Usage(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("storage usage sample failed")
		return
	}
	if usage.Capacity <= 0 {
		return
	}
	r.RecordMetric(models.MetricStorageUsage, usage.Fraction(), nil)
}

// RaiseAlert records an operational alert, supersedes any unresolved alert
// of the same type, and emits the alert to the beacon sink.
func (r *Recorder) RaiseAlert(alertType models.AlertType, severity models.AlertSeverity, message string) models.PerformanceAlert {
	return r.raise(alertType, severity, message, "")
}

func (r *Recorder) raise(alertType models.AlertType, severity models.AlertSeverity, message, metricID string) models.PerformanceAlert {
	now := r.now().UTC()
	alert := models.PerformanceAlert{
		ID:        uuid.NewString(),
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		MetricID:  metricID,
		CreatedAt: now,
	}

	r.mu.Lock()
	for i := range r.alerts {
		if r.alerts[i].Type == alertType && !r.alerts[i].Resolved {
			r.alerts[i].Resolved = true
			resolvedAt := now
			r.alerts[i].ResolvedAt = &resolvedAt
		}
	}
	r.alerts = append(r.alerts, alert)
	if overflow := len(r.alerts) - r.cfg.MaxAlerts; overflow > 0 {
		r.alerts = r.alerts[overflow:]
	}
	r.mu.Unlock()

	r.logger.Warn().
		Str("alert_type", string(alertType)).
		Str("severity", string(severity)).
		Msg(message)

	if r.beacon != nil {
		r.beacon.Emit(models.BeaconEvent{Kind: "alert", Timestamp: now, Alert: &alert})
	}

	r.persist()
	return alert
}

// ResolveAlert marks the alert with the given id resolved. Resolving an
// already-resolved or unknown alert is a no-op; the call reports whether a
// transition happened.
func (r *Recorder) ResolveAlert(id string) bool {
	r.mu.Lock()
	resolved := false
	for i := range r.alerts {
		if r.alerts[i].ID != id || r.alerts[i].Resolved {
			continue
		}
		r.alerts[i].Resolved = true
		resolvedAt := r.now().UTC()
		r.alerts[i].ResolvedAt = &resolvedAt
		resolved = true
		break
	}
	r.mu.Unlock()

	if resolved {
		r.persist()
	}
	return resolved
}

// Metrics returns a copy of the retained metric sequence, oldest first.
func (r *Recorder) Metrics() []models.PerformanceMetric {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.PerformanceMetric, len(r.metrics))
	copy(out, r.metrics)
	return out
}

// Alerts returns a copy of the retained alert sequence, oldest first.
func (r *Recorder) Alerts() []models.PerformanceAlert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.PerformanceAlert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

// Stats aggregates the retained samples over the given window.
//
// The conflict rate divides conflicts by the explicit per-cycle attempt
// counter rather than approximating attempts from latency samples, so the
// ratio is exact for the retained window.
func (r *Recorder) Stats(ctx context.Context, window Window) models.SyncStats {
	cutoff := r.now().Add(-window.Duration())

	r.mu.Lock()
	var (
		syncLatencySum, syncLatencyN float64
		interactSum, interactN       float64
		netTotal, netSuccess         float64
	)
	for _, m := range r.metrics {
		if m.Timestamp.Before(cutoff) {
			continue
		}
		switch m.Name {
		case models.MetricSyncLatency:
			syncLatencySum += m.Value
			syncLatencyN++
		case models.MetricInteractionLatency:
			interactSum += m.Value
			interactN++
		case models.MetricNetworkRequest:
			netTotal++
			if m.Metadata["outcome"] == "success" {
				netSuccess++
			}
		}
	}
	attempts := countSince(r.attempts, cutoff)
	conflicts := countSince(r.conflicts, cutoff)
	r.mu.Unlock()

	stats := models.SyncStats{
		Window:             string(window),
		NetworkSuccessRate: 1,
		SyncAttempts:       attempts,
		Conflicts:          conflicts,
	}
	if syncLatencyN > 0 {
		stats.AvgSyncLatency = time.Duration(syncLatencySum/syncLatencyN) * time.Millisecond
	}
	if interactN > 0 {
		stats.AvgInteractionLatency = time.Duration(interactSum/interactN) * time.Millisecond
	}
	if netTotal > 0 {
		stats.NetworkSuccessRate = netSuccess / netTotal
	}
	if attempts > 0 {
		stats.ConflictRate = float64(conflicts) / float64(attempts)
	}

	if usage, err := r.store.Usage(ctx); err == nil {
		stats.StorageUsage = usage.Fraction()
	}

	return stats
}

// Close persists the final state. The recorder must not be used after
// Close.
func (r *Recorder) Close() {
	r.persist()
}

func (r *Recorder) checkThresholds(metric models.PerformanceMetric) {
	switch metric.Name {
	case models.MetricSyncLatency:
		if r.cfg.LatencyAlertMs > 0 && metric.Value > r.cfg.LatencyAlertMs {
			r.raise(models.AlertHighLatency, r.latencySeverity(metric.Value),
				fmt.Sprintf("sync latency %.0fms exceeded threshold %.0fms", metric.Value, r.cfg.LatencyAlertMs),
				metric.ID)
		}
	case models.MetricStorageUsage:
		if r.cfg.StorageUsage > 0 && metric.Value > r.cfg.StorageUsage {
			r.raise(models.AlertStorageFull, bandSeverity(metric.Value, r.cfg.StorageUsage, 0.9, 0.95),
				fmt.Sprintf("storage usage %.0f%% exceeded threshold %.0f%%", metric.Value*100, r.cfg.StorageUsage*100),
				metric.ID)
		}
	case models.MetricNetworkRequest:
		if metric.Metadata["outcome"] == "failure" {
			r.checkNetworkErrorRate(metric.ID)
		}
	}
}

func (r *Recorder) checkConflictRate() {
	if r.cfg.ConflictRate <= 0 {
		return
	}

	cutoff := r.now().Add(-WindowHour.Duration())
	r.mu.Lock()
	attempts := countSince(r.attempts, cutoff)
	conflicts := countSince(r.conflicts, cutoff)
	r.mu.Unlock()

	if attempts == 0 {
		return
	}
	rate := float64(conflicts) / float64(attempts)
	if rate > r.cfg.ConflictRate {
		r.raise(models.AlertConflictRate, bandSeverity(rate, r.cfg.ConflictRate, 2*r.cfg.ConflictRate, 3*r.cfg.ConflictRate),
			fmt.Sprintf("conflict rate %.2f exceeded threshold %.2f over the last hour", rate, r.cfg.ConflictRate), "")
	}
}

func (r *Recorder) checkNetworkErrorRate(metricID string) {
	if r.cfg.NetworkErrorRate <= 0 {
		return
	}

	cutoff := r.now().Add(-WindowHour.Duration())
	r.mu.Lock()
	var total, failures float64
	for _, m := range r.metrics {
		if m.Name != models.MetricNetworkRequest || m.Timestamp.Before(cutoff) {
			continue
		}
		total++
		if m.Metadata["outcome"] == "failure" {
			failures++
		}
	}
	r.mu.Unlock()

	if total == 0 {
		return
	}
	rate := failures / total
	if rate > r.cfg.NetworkErrorRate {
		r.raise(models.AlertNetworkError, bandSeverity(rate, r.cfg.NetworkErrorRate, 0.75, 0.9),
			fmt.Sprintf("network error rate %.2f exceeded threshold %.2f over the last hour", rate, r.cfg.NetworkErrorRate),
			metricID)
	}
}

func (r *Recorder) latencySeverity(ms float64) models.AlertSeverity {
	switch {
	case ms > r.cfg.LatencyCriticalMs && r.cfg.LatencyCriticalMs > 0:
		return models.SeverityCritical
	case ms > r.cfg.LatencyHighMs && r.cfg.LatencyHighMs > 0:
		return models.SeverityHigh
	default:
		return models.SeverityMedium
	}
}

func (r *Recorder) persist() {
	r.mu.Lock()
	if r.degraded {
		r.mu.Unlock()
		return
	}
	st := persistedState{
		Metrics:   r.metrics,
		Alerts:    r.alerts,
		Attempts:  r.attempts,
		Conflicts: r.conflicts,
	}
	r.mu.Unlock()

	payload, err := json.Marshal(st)
	if err != nil {
		r.logger.Err(err).Msg("encode telemetry state")
		return
	}

	if err = r.store.Set(context.Background(), StorageKey, string(payload)); err != nil {
		r.mu.Lock()
		r.degraded = true
		r.mu.Unlock()
		r.logger.Warn().Err(err).Msg("telemetry persistence failed, continuing memory-only")
	}
}

func bandSeverity(value, medium, high, critical float64) models.AlertSeverity {
	switch {
	case value > critical:
		return models.SeverityCritical
	case value > high:
		return models.SeverityHigh
	case value > medium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func unitFor(name models.MetricName) string {
	switch name {
	case models.MetricSyncLatency, models.MetricConflictResolution,
		models.MetricNetworkRequest, models.MetricInteractionLatency:
		return "ms"
	case models.MetricStorageUsage:
		return "fraction"
	default:
		return ""
	}
}

func trimWindow(times []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(times) && times[idx].Before(cutoff) {
		idx++
	}
	return times[idx:]
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, t := range times {
		if !t.Before(cutoff) {
			n++
		}
	}
	return n
}
