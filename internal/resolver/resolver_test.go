package resolver

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexmarkets/settingsync/internal/logger"
	"github.com/apexmarkets/settingsync/models"
)

type recordingMetrics struct {
	metrics []models.PerformanceMetric
}

func (r *recordingMetrics) RecordMetric(name models.MetricName, value float64, metadata map[string]string) models.PerformanceMetric {
	metric := models.PerformanceMetric{Name: name, Value: value, Metadata: metadata}
	r.metrics = append(r.metrics, metric)
	return metric
}

func newTestResolver(t *testing.T) (*Resolver, *recordingMetrics) {
	t.Helper()
	rec := &recordingMetrics{}
	return New(rec, logger.Nop()), rec
}

func conflictOf(settingType models.SettingType, key, localNew, remoteNew string, localTS, remoteTS time.Time) models.Conflict {
	return models.Conflict{
		ID: "c-1",
		LocalChange: models.SettingsChange{
			SettingType: settingType,
			SettingKey:  key,
			OldValue:    json.RawMessage(`"base"`),
			NewValue:    json.RawMessage(localNew),
			Timestamp:   localTS,
			Origin:      models.OriginLocal,
		},
		RemoteChange: models.SettingsChange{
			SettingType: settingType,
			SettingKey:  key,
			NewValue:    json.RawMessage(remoteNew),
			Timestamp:   remoteTS,
			Origin:      models.OriginRemote,
		},
		Resolution: models.ResolutionUnresolved,
		DetectedAt: time.Now(),
	}
}

func TestResolve_Policy(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   models.Conflict
		want models.Resolution
	}{
		{
			name: "identical new values merge automatically",
			in:   conflictOf(models.SettingTypeProfile, "theme", `"dark"`, `"dark"`, base, base.Add(time.Minute)),
			want: models.ResolutionMerged,
		},
		{
			name: "identical values merge even for security keys",
			in:   conflictOf(models.SettingTypeSecurity, "two_factor", `true`, `true`, base, base.Add(time.Minute)),
			want: models.ResolutionMerged,
		},
		{
			name: "security keys with differing values always defer",
			in:   conflictOf(models.SettingTypeSecurity, "two_factor", `true`, `false`, base, base.Add(-time.Hour)),
			want: models.ResolutionUnresolved,
		},
		{
			name: "remote older than local base keeps local",
			in:   conflictOf(models.SettingTypeProfile, "theme", `"dark"`, `"light"`, base, base.Add(-time.Minute)),
			want: models.ResolutionKeepLocal,
		},
		{
			name: "remote newer than local base defers to user",
			in:   conflictOf(models.SettingTypeProfile, "theme", `"dark"`, `"light"`, base, base.Add(time.Minute)),
			want: models.ResolutionUnresolved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, rec := newTestResolver(t)

			got := r.Resolve(tt.in)

			assert.Equal(t, tt.want, got.Resolution)
			require.Len(t, rec.metrics, 1, "every resolution is recorded")
			assert.Equal(t, models.MetricConflictResolution, rec.metrics[0].Name)
			assert.Equal(t, string(tt.want), rec.metrics[0].Metadata["resolution"])
			if tt.want != models.ResolutionUnresolved {
				assert.NotNil(t, got.ResolvedAt)
			} else {
				assert.Nil(t, got.ResolvedAt)
			}
		})
	}
}

func TestResolve_IsIdempotent(t *testing.T) {
	r, rec := newTestResolver(t)
	base := time.Now()

	first := r.Resolve(conflictOf(models.SettingTypeProfile, "theme", `"dark"`, `"dark"`, base, base))
	second := r.Resolve(first)

	assert.Equal(t, first, second)
	assert.Len(t, rec.metrics, 1, "duplicate delivery must not double-record telemetry")
}

func TestApplyDecision_RecordsUserResolution(t *testing.T) {
	r, rec := newTestResolver(t)
	base := time.Now()
	deferred := conflictOf(models.SettingTypeSecurity, "two_factor", `true`, `false`, base, base)

	decided := r.ApplyDecision(deferred, models.ResolutionTakeRemote)

	assert.Equal(t, models.ResolutionTakeRemote, decided.Resolution)
	require.Len(t, rec.metrics, 1)
	assert.Equal(t, "false", rec.metrics[0].Metadata["automatic"])

	// Applying again is a no-op.
	again := r.ApplyDecision(decided, models.ResolutionKeepLocal)
	assert.Equal(t, models.ResolutionTakeRemote, again.Resolution)
	assert.Len(t, rec.metrics, 1)
}

func TestApplyDecision_RejectsUnresolvedAsDecision(t *testing.T) {
	r, rec := newTestResolver(t)
	base := time.Now()
	deferred := conflictOf(models.SettingTypeProfile, "theme", `"dark"`, `"light"`, base, base.Add(time.Minute))

	unchanged := r.ApplyDecision(deferred, models.ResolutionUnresolved)

	assert.Equal(t, models.ResolutionUnresolved, unchanged.Resolution)
	assert.Empty(t, rec.metrics)
}
