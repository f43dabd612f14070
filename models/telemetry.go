package models

import "time"

// MetricName identifies what a PerformanceMetric measures.
type MetricName string

const (
	MetricSyncLatency        MetricName = "sync_latency"
	MetricConflictResolution MetricName = "conflict_resolution"
	MetricNetworkRequest     MetricName = "network_request"
	MetricInteractionLatency MetricName = "interaction_latency"
	MetricStorageUsage       MetricName = "storage_usage"
)

// AlertType classifies threshold violations raised by the telemetry
// recorder.
type AlertType string

const (
	AlertHighLatency  AlertType = "high_latency"
	AlertConflictRate AlertType = "conflict_rate"
	AlertStorageFull  AlertType = "storage_full"
	AlertNetworkError AlertType = "network_error"
	AlertDataLoss     AlertType = "data_loss"
)

// AlertSeverity grades how far a measured value exceeded its threshold.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// PerformanceMetric is one append-only telemetry sample. Retention is
// capped; the oldest samples are evicted first.
type PerformanceMetric struct {
	ID        string            `json:"id"`
	Name      MetricName        `json:"name"`
	Value     float64           `json:"value"`
	Unit      string            `json:"unit,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// PerformanceAlert is raised when a metric crosses its configured
// threshold. Alerts are never auto-deleted: they are marked resolved
// explicitly and retained for audit until capacity eviction.
type PerformanceAlert struct {
	ID         string        `json:"id"`
	Type       AlertType     `json:"type"`
	Severity   AlertSeverity `json:"severity"`
	Message    string        `json:"message"`
	MetricID   string        `json:"metric_id,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	Resolved   bool          `json:"resolved"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

// SyncStats is the rolling statistics view computed over a time window.
type SyncStats struct {
	Window                string        `json:"window"`
	AvgSyncLatency        time.Duration `json:"avg_sync_latency"`
	ConflictRate          float64       `json:"conflict_rate"`
	NetworkSuccessRate    float64       `json:"network_success_rate"`
	AvgInteractionLatency time.Duration `json:"avg_interaction_latency"`
	StorageUsage          float64       `json:"storage_usage"`
	SyncAttempts          int           `json:"sync_attempts"`
	Conflicts             int           `json:"conflicts"`
}

// BeaconEvent is the wire payload sent to the telemetry beacon endpoint.
// Delivery is best-effort: events are never retried and never block the
// caller.
type BeaconEvent struct {
	Kind      string            `json:"kind"`
	Timestamp time.Time         `json:"timestamp"`
	Alert     *PerformanceAlert `json:"alert,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
