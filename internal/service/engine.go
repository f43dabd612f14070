package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/apexmarkets/settingsync/internal/adapter"
	"github.com/apexmarkets/settingsync/internal/logger"
	"github.com/apexmarkets/settingsync/models"
)

// Config tunes the engine's trigger and failure behaviour.
type Config struct {
	// SyncTimeout bounds one reconciliation cycle. Expiry is treated as a
	// transport failure: the batch is requeued. Defaults to 30s.
	SyncTimeout time.Duration

	// DebounceQuiet is the quiet period rapid successive edits must
	// observe before a cycle is triggered. Defaults to 2s.
	DebounceQuiet time.Duration

	// ImmediateKeys lists canonical "<type>/<key>" addresses that bypass
	// the debounce and trigger a cycle as soon as they change. Entries may
	// end in "*" for prefix matching. Every security key is immediate
	// regardless of this list: 2FA toggles and their kin must propagate
	// faster than cosmetic preferences.
	ImmediateKeys []string

	// OfflineAfterFailures is the number of consecutive network-shaped
	// failures after which SyncStatus.Online is downgraded. Defaults to 2.
	OfflineAfterFailures int
}

// DefaultImmediateKeys covers the KYC-adjacent profile fields that the
// compliance flow reads back immediately after an edit.
var DefaultImmediateKeys = []string{"profile/kyc_*"}

func (c Config) withDefaults() Config {
	if c.SyncTimeout <= 0 {
		c.SyncTimeout = 30 * time.Second
	}
	if c.DebounceQuiet <= 0 {
		c.DebounceQuiet = 2 * time.Second
	}
	if c.ImmediateKeys == nil {
		c.ImmediateKeys = DefaultImmediateKeys
	}
	if c.OfflineAfterFailures <= 0 {
		c.OfflineAfterFailures = 2
	}
	return c
}

type inflightCycle struct {
	done   chan struct{}
	report models.SyncReport
	err    error
}

// Engine orchestrates reconciliation cycles between the change queue and
// the settings backend.
type Engine struct {
	cfg       Config
	queue     ChangeQueue
	backend   adapter.SettingsBackend
	resolver  ConflictResolver
	telemetry Telemetry
	logger    *logger.Logger
	now       func() time.Time

	debounce *debouncer

	mu          sync.Mutex
	inflight    *inflightCycle
	conflicts   []models.Conflict
	blockedKeys map[string]string // canonical key -> conflict id
	lastSync    time.Time
	lastError   string
	online      bool
	netFailures int
}

// NewEngine wires an Engine. The engine starts idle; cycles run only when
// triggered by Apply, SyncCycle, or the periodic job.
func NewEngine(cfg Config, q ChangeQueue, backend adapter.SettingsBackend, res ConflictResolver, tel Telemetry, log *logger.Logger) *Engine {
	e := &Engine{
		cfg:         cfg.withDefaults(),
		queue:       q,
		backend:     backend,
		resolver:    res,
		telemetry:   tel,
		logger:      log,
		now:         time.Now,
		blockedKeys: make(map[string]string),
		online:      true,
	}
	e.debounce = newDebouncer(e.cfg.DebounceQuiet, func() {
		if _, err := e.syncCycle(context.Background(), "debounce"); err != nil {
			e.logger.Debug().Err(err).Msg("debounced cycle failed")
		}
	})
	return e
}

// Apply records a local settings mutation and schedules its propagation.
//
// The edit is always enqueued synchronously; Apply never blocks on network
// activity. Any unresolved conflict for the same key is superseded and
// dropped: the user's newest intent wins over a stale divergence. Keys on
// the immediate-sync list start a cycle right away; all other keys reset
// the debounce timer. Returns the pending-change count.
func (e *Engine) Apply(ctx context.Context, change models.SettingsChange) int {
	started := e.now()
	count := e.queue.Enqueue(ctx, change)
	e.dropSupersededConflict(change.Key())

	if e.isImmediate(change) {
		go func() {
			if _, err := e.syncCycle(context.Background(), "immediate"); err != nil {
				e.logger.Debug().Err(err).Str("key", change.Key()).Msg("immediate cycle failed")
			}
		}()
	} else {
		e.debounce.Touch()
	}

	e.telemetry.RecordMetric(models.MetricInteractionLatency,
		float64(e.now().Sub(started).Milliseconds()),
		map[string]string{"key": change.Key()})
	return count
}

// SyncCycle runs one reconciliation cycle, or joins the cycle already in
// flight: the caller then observes that cycle's eventual result, and no
// second remote request is started.
func (e *Engine) SyncCycle(ctx context.Context) (models.SyncReport, error) {
	return e.syncCycle(ctx, "manual")
}

func (e *Engine) syncCycle(ctx context.Context, trigger string) (models.SyncReport, error) {
	e.mu.Lock()
	if fl := e.inflight; fl != nil {
		e.mu.Unlock()
		<-fl.done
		return fl.report, fl.err
	}
	fl := &inflightCycle{done: make(chan struct{})}
	e.inflight = fl
	prevLastSync := e.lastSync
	e.mu.Unlock()

	report, err := e.runCycle(ctx, trigger, prevLastSync)

	e.mu.Lock()
	e.inflight = nil
	if err != nil {
		e.lastError = err.Error()
	} else {
		e.lastError = ""
		e.lastSync = e.now().UTC()
	}
	e.mu.Unlock()

	fl.report, fl.err = report, err
	close(fl.done)
	return report, err
}

func (e *Engine) runCycle(ctx context.Context, trigger string, prevLastSync time.Time) (models.SyncReport, error) {
	started := e.now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.SyncTimeout)
	defer cancel()

	e.telemetry.RecordSyncAttempt()
	log := e.logger.With().Str("trigger", trigger).Logger()

	var report models.SyncReport

	batch := e.queue.Drain(ctx)
	sendable := make([]models.SettingsChange, 0, len(batch))
	localKeys := make(map[string]bool, len(batch))
	for _, change := range batch {
		localKeys[change.Key()] = true
		if change.IsNoop() {
			// Nothing actually changed; complete without a network write.
			continue
		}
		if e.isBlocked(change.Key()) {
			e.queue.Requeue(ctx, []models.SettingsChange{change})
			report.Requeued++
			continue
		}
		sendable = append(sendable, change)
	}

	// The snapshot is fetched even with an empty batch so another device's
	// edits propagate without local activity.
	fetchStart := e.now()
	snapshot, err := e.backend.Fetch(ctx)
	e.recordNetwork("fetch", fetchStart, err)
	if err != nil {
		e.queue.Requeue(ctx, sendable)
		report.Requeued += len(sendable)
		e.noteFailure(err)
		return report, fmt.Errorf("fetch remote settings: %w", err)
	}

	clean := make([]models.SettingsChange, 0, len(sendable))
	for _, change := range sendable {
		server, exists := snapshot[change.Key()]
		if !exists || models.JSONEqual(server.Value, change.OldValue) {
			clean = append(clean, change)
			continue
		}
		report = e.handleConflict(ctx, report, change, server.Value, server.UpdatedAt, &clean)
	}

	for i, change := range clean {
		pushStart := e.now()
		result, err := e.backend.Push(ctx, change.SettingType, change.SettingKey, models.PushRequest{
			OldValue:      change.OldValue,
			NewValue:      change.NewValue,
			ClientVersion: change.LocalVersion,
		})
		e.recordNetwork("push", pushStart, err)
		if err != nil {
			remaining := clean[i:]
			e.queue.Requeue(ctx, remaining)
			report.Requeued += len(remaining)
			e.noteFailure(err)
			return report, fmt.Errorf("push %s: %w", change.Key(), err)
		}

		if result.Conflict {
			// The server raced us between fetch and push.
			var followup []models.SettingsChange
			report = e.handleConflict(ctx, report, change, result.ServerValue, result.ServerTimestamp, &followup)
			e.queue.Requeue(ctx, followup)
			report.Requeued += len(followup)
			continue
		}
		report.Applied = append(report.Applied, change.Key())
	}

	report.RemoteUpdates = remoteUpdates(snapshot, localKeys, prevLastSync)

	e.noteSuccess()
	report.Duration = e.now().Sub(started)
	e.telemetry.RecordMetric(models.MetricSyncLatency,
		float64(report.Duration.Milliseconds()),
		map[string]string{"trigger": trigger})
	e.telemetry.SampleStorageUsage(ctx)

	log.Debug().
		Int("applied", len(report.Applied)).
		Int("conflicts", len(report.Conflicts)).
		Int("requeued", report.Requeued).
		Int("remote_updates", len(report.RemoteUpdates)).
		Msg("sync cycle finished")

	return report, nil
}

// handleConflict builds a Conflict for change vs the server's value, runs
// the automatic policy, and routes the outcome. Keep-local survivors are
// appended to retry, rebased onto the server's value so the next push is
// accepted.
func (e *Engine) handleConflict(ctx context.Context, report models.SyncReport, change models.SettingsChange, serverValue json.RawMessage, serverTS time.Time, retry *[]models.SettingsChange) models.SyncReport {
	conflict := models.Conflict{
		ID:          uuid.NewString(),
		LocalChange: change,
		RemoteChange: models.SettingsChange{
			ID:          uuid.NewString(),
			SettingType: change.SettingType,
			SettingKey:  change.SettingKey,
			NewValue:    serverValue,
			Timestamp:   serverTS,
			Origin:      models.OriginRemote,
		},
		Resolution: models.ResolutionUnresolved,
		DetectedAt: e.now().UTC(),
	}
	e.telemetry.RecordConflictDetected()

	resolved := e.resolver.Resolve(conflict)
	report.Conflicts = append(report.Conflicts, resolved)

	switch resolved.Resolution {
	case models.ResolutionMerged:
		// Both sides agree on the value; nothing left to send.

	case models.ResolutionKeepLocal:
		rebased := change
		rebased.OldValue = serverValue
		*retry = append(*retry, rebased)

	case models.ResolutionTakeRemote:
		report.RemoteUpdates = append(report.RemoteUpdates, resolved.RemoteChange)

	default: // unresolved: surface, block the key, keep the local edit safe
		e.addConflict(resolved)
		e.queue.Requeue(ctx, []models.SettingsChange{change})
		report.Requeued++
	}

	return report
}

// ResolveConflict applies the user's decision to a surfaced conflict and
// unblocks its key. Resolving a conflict that is no longer pending (double
// delivery, superseded) is a no-op.
func (e *Engine) ResolveConflict(ctx context.Context, conflictID string, resolution models.Resolution) error {
	e.mu.Lock()
	var pending *models.Conflict
	for i := range e.conflicts {
		if e.conflicts[i].ID == conflictID {
			pending = &e.conflicts[i]
			break
		}
	}
	if pending == nil {
		e.mu.Unlock()
		e.logger.Debug().Str("conflict_id", conflictID).Msg("resolve for unknown or already-resolved conflict ignored")
		return nil
	}
	conflict := *pending
	e.mu.Unlock()

	decided := e.resolver.ApplyDecision(conflict, resolution)
	if !decided.Resolved() {
		return fmt.Errorf("resolution %q is not a decision", resolution)
	}

	key := conflict.Key()
	switch decided.Resolution {
	case models.ResolutionKeepLocal:
		e.queue.Rebase(ctx, key, conflict.LocalChange.LocalVersion, conflict.RemoteChange.NewValue)
	case models.ResolutionTakeRemote, models.ResolutionMerged:
		e.queue.Discard(ctx, key, conflict.LocalChange.LocalVersion)
	}

	e.removeConflict(conflictID, key)

	if decided.Resolution == models.ResolutionKeepLocal {
		go func() {
			if _, err := e.syncCycle(context.Background(), "resolution"); err != nil {
				e.logger.Debug().Err(err).Str("key", key).Msg("post-resolution cycle failed")
			}
		}()
	}
	return nil
}

// Status returns a point-in-time view of the engine.
func (e *Engine) Status() models.SyncStatus {
	e.mu.Lock()
	conflicts := make([]models.Conflict, len(e.conflicts))
	copy(conflicts, e.conflicts)
	status := models.SyncStatus{
		Online:    e.online,
		Syncing:   e.inflight != nil,
		Conflicts: conflicts,
		LastSync:  e.lastSync,
		LastError: e.lastError,
	}
	e.mu.Unlock()

	status.PendingChanges = e.queue.Pending()
	return status
}

// Close stops the debounce timer. In-flight cycles finish on their own.
func (e *Engine) Close() {
	e.debounce.Stop()
}

func (e *Engine) isImmediate(change models.SettingsChange) bool {
	if change.SettingType == models.SettingTypeSecurity {
		return true
	}
	key := change.Key()
	for _, pattern := range e.cfg.ImmediateKeys {
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			if strings.HasPrefix(key, prefix) {
				return true
			}
		} else if key == pattern {
			return true
		}
	}
	return false
}

func (e *Engine) isBlocked(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, blocked := e.blockedKeys[key]
	return blocked
}

func (e *Engine) addConflict(conflict models.Conflict) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conflicts = append(e.conflicts, conflict)
	e.blockedKeys[conflict.Key()] = conflict.ID
}

func (e *Engine) removeConflict(conflictID, key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.conflicts {
		if e.conflicts[i].ID == conflictID {
			e.conflicts = append(e.conflicts[:i], e.conflicts[i+1:]...)
			break
		}
	}
	if e.blockedKeys[key] == conflictID {
		delete(e.blockedKeys, key)
	}
}

func (e *Engine) dropSupersededConflict(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	conflictID, blocked := e.blockedKeys[key]
	if !blocked {
		return
	}
	for i := range e.conflicts {
		if e.conflicts[i].ID == conflictID {
			e.conflicts = append(e.conflicts[:i], e.conflicts[i+1:]...)
			break
		}
	}
	delete(e.blockedKeys, key)
	e.logger.Debug().Str("key", key).Msg("stale conflict superseded by newer local change")
}

func (e *Engine) recordNetwork(op string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	e.telemetry.RecordMetric(models.MetricNetworkRequest,
		float64(e.now().Sub(started).Milliseconds()),
		map[string]string{"op": op, "outcome": outcome})
}

func (e *Engine) noteFailure(err error) {
	if !adapter.IsNetworkError(err) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.netFailures++
	if e.netFailures >= e.cfg.OfflineAfterFailures {
		e.online = false
	}
}

func (e *Engine) noteSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.netFailures = 0
	e.online = true
}

func remoteUpdates(snapshot models.SettingsSnapshot, localKeys map[string]bool, prevLastSync time.Time) []models.SettingsChange {
	var updates []models.SettingsChange
	for key, server := range snapshot {
		if localKeys[key] {
			continue
		}
		if !prevLastSync.IsZero() && !server.UpdatedAt.After(prevLastSync) {
			continue
		}
		settingType, settingKey, ok := splitKey(key)
		if !ok {
			continue
		}
		updates = append(updates, models.SettingsChange{
			ID:          uuid.NewString(),
			SettingType: settingType,
			SettingKey:  settingKey,
			NewValue:    server.Value,
			Timestamp:   server.UpdatedAt,
			Origin:      models.OriginRemote,
		})
	}
	return updates
}

func splitKey(key string) (models.SettingType, string, bool) {
	settingType, settingKey, found := strings.Cut(key, "/")
	if !found || settingKey == "" {
		return "", "", false
	}
	return models.SettingType(settingType), settingKey, true
}
