// Package resolver decides the outcome of a settings conflict, either
// automatically by the ordered policy or by applying an explicit user
// decision.
package resolver

import (
	"time"

	"github.com/apexmarkets/settingsync/internal/logger"
	"github.com/apexmarkets/settingsync/models"
)

// MetricRecorder is the telemetry surface resolutions are reported to. The
// telemetry recorder satisfies it.
type MetricRecorder interface {
	RecordMetric(name models.MetricName, value float64, metadata map[string]string) models.PerformanceMetric
}

// Resolver applies the deterministic conflict policy.
//
// Policy, first match wins:
//  1. Both sides set the same new value: resolve merged. There is no real
//     conflict, so this fires even for security keys.
//  2. Security settings are never auto-resolved: defer to the user.
//  3. The remote change predates the local change's base capture, meaning
//     the local edit already observed a newer value: resolve keep-local.
//  4. Otherwise defer to the user (unresolved).
type Resolver struct {
	recorder MetricRecorder
	logger   *logger.Logger
	now      func() time.Time
}

// New constructs a Resolver reporting to recorder.
func New(recorder MetricRecorder, log *logger.Logger) *Resolver {
	return &Resolver{recorder: recorder, logger: log, now: time.Now}
}

// Resolve runs the automatic policy over conflict and returns the updated
// record. An already-resolved conflict is returned unchanged and is not
// re-recorded, so duplicate delivery cannot double-apply or double-count.
func (r *Resolver) Resolve(conflict models.Conflict) models.Conflict {
	if conflict.Resolved() {
		return conflict
	}

	started := r.now()
	resolution := r.decide(conflict)
	conflict = r.finish(conflict, resolution, started, true)
	return conflict
}

// ApplyDecision applies an explicit user decision to a deferred conflict.
// Idempotent in the same way as Resolve.
func (r *Resolver) ApplyDecision(conflict models.Conflict, resolution models.Resolution) models.Conflict {
	if conflict.Resolved() {
		return conflict
	}
	if resolution == models.ResolutionUnresolved || resolution == "" {
		return conflict
	}

	return r.finish(conflict, resolution, r.now(), false)
}

func (r *Resolver) decide(conflict models.Conflict) models.Resolution {
	local, remote := conflict.LocalChange, conflict.RemoteChange

	if models.JSONEqual(local.NewValue, remote.NewValue) {
		return models.ResolutionMerged
	}
	if local.SettingType == models.SettingTypeSecurity {
		return models.ResolutionUnresolved
	}
	if remote.Timestamp.Before(local.Timestamp) {
		return models.ResolutionKeepLocal
	}
	return models.ResolutionUnresolved
}

func (r *Resolver) finish(conflict models.Conflict, resolution models.Resolution, started time.Time, auto bool) models.Conflict {
	conflict.Resolution = resolution
	if resolution != models.ResolutionUnresolved {
		resolvedAt := r.now()
		conflict.ResolvedAt = &resolvedAt
	}

	automatic := "false"
	if auto {
		automatic = "true"
	}
	elapsed := r.now().Sub(started)
	r.recorder.RecordMetric(models.MetricConflictResolution, float64(elapsed.Milliseconds()), map[string]string{
		"key":        conflict.Key(),
		"resolution": string(resolution),
		"automatic":  automatic,
	})

	r.logger.Debug().
		Str("key", conflict.Key()).
		Str("resolution", string(resolution)).
		Bool("automatic", auto).
		Msg("conflict resolution recorded")

	return conflict
}
