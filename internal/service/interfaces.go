// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Apex Markets

// Package service implements the sync engine: the orchestrator that drains
// queued local changes, reconciles them against the remote settings
// backend, routes conflicts through the resolver, and reports every cycle
// to telemetry.
//
// The engine is long-lived and cycles repeatedly through
// idle → syncing → {success, error} → idle. At most one cycle is in flight
// per engine; concurrent triggers coalesce onto the running cycle's result.
package service

import (
	"context"
	"encoding/json"

	"github.com/apexmarkets/settingsync/models"
)

// ChangeQueue is the durable pending-change store the engine drains and
// refills. *queue.ChangeQueue satisfies it.
type ChangeQueue interface {
	// Enqueue records a local mutation and returns the pending count.
	Enqueue(ctx context.Context, change models.SettingsChange) int

	// Drain atomically cuts and returns the current batch.
	Drain(ctx context.Context) []models.SettingsChange

	// Requeue reinstates changes whose sync attempt did not complete.
	Requeue(ctx context.Context, changes []models.SettingsChange)

	// Discard drops the pending change for key up to the given version.
	Discard(ctx context.Context, key string, upToVersion int64) bool

	// Rebase replaces the assumed base value of the pending change for key.
	Rebase(ctx context.Context, key string, version int64, base json.RawMessage) bool

	// Pending returns the number of queued changes.
	Pending() int
}

// ConflictResolver applies the deterministic conflict policy.
// *resolver.Resolver satisfies it.
type ConflictResolver interface {
	Resolve(conflict models.Conflict) models.Conflict
	ApplyDecision(conflict models.Conflict, resolution models.Resolution) models.Conflict
}

// Telemetry is the recording surface the engine stamps cycle outcomes
// into. *telemetry.Recorder satisfies it.
type Telemetry interface {
	RecordMetric(name models.MetricName, value float64, metadata map[string]string) models.PerformanceMetric
	RecordSyncAttempt()
	RecordConflictDetected()
	SampleStorageUsage(ctx context.Context)
	RaiseAlert(alertType models.AlertType, severity models.AlertSeverity, message string) models.PerformanceAlert
}

// Syncer is the trigger surface the periodic job and debouncer drive.
// *Engine satisfies it.
type Syncer interface {
	SyncCycle(ctx context.Context) (models.SyncReport, error)
}
