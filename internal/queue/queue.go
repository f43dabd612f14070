package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/apexmarkets/settingsync/internal/logger"
	"github.com/apexmarkets/settingsync/internal/storage"
	"github.com/apexmarkets/settingsync/models"
)

// StorageKey is the KV key the queue owns. The value is always the whole
// serialized pending set, replaced atomically on every mutation.
const StorageKey = "settingsync/queue"

// ChangeQueue holds not-yet-confirmed local mutations, one per setting key.
type ChangeQueue struct {
	store  storage.KV
	alerts AlertSink
	logger *logger.Logger

	mu          sync.Mutex
	pending     []models.SettingsChange
	nextVersion int64
	degraded    bool
}

// NewChangeQueue constructs a queue rehydrated from the storage port.
//
// A missing stored value starts the queue empty. A stored value that cannot
// be decoded also starts the queue empty, since aborting startup would be
// worse than losing an unsyncable batch; the silent loss is surfaced as a
// low-severity data_loss alert.
func NewChangeQueue(ctx context.Context, store storage.KV, alerts AlertSink, log *logger.Logger) *ChangeQueue {
	q := &ChangeQueue{
		store:       store,
		alerts:      alerts,
		logger:      log,
		nextVersion: 1,
	}

	raw, err := store.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Msg("queue rehydration read failed, starting empty")
		}
		return q
	}

	var persisted []models.SettingsChange
	if err = json.Unmarshal([]byte(raw), &persisted); err != nil {
		log.Warn().Err(err).Msg("queue state corrupt, resetting")
		q.alerts.RaiseAlert(models.AlertDataLoss, models.SeverityLow,
			"persisted change queue was corrupt and has been reset")
		_ = store.Remove(ctx, StorageKey)
		return q
	}

	q.pending = persisted
	for _, change := range persisted {
		if change.LocalVersion >= q.nextVersion {
			q.nextVersion = change.LocalVersion + 1
		}
	}
	sortByVersion(q.pending)

	return q
}

// Enqueue records a local mutation and returns the updated pending count.
//
// The change is stamped with the next session-monotonic local version. If a
// pending change already exists for the same key the newer edit wins
// locally, but the earlier change's OldValue and Timestamp are kept: the
// intermediate value never reached the server, so the original base is
// still what a sync cycle must compare against, and the first-divergence
// instant is what conflict UI displays.
//
// Enqueue never blocks on network or storage and never fails: a storage
// write error degrades the queue to memory-only for the rest of the
// session and raises a single storage_full alert.
func (q *ChangeQueue) Enqueue(ctx context.Context, change models.SettingsChange) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.Origin == "" {
		change.Origin = models.OriginLocal
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now().UTC()
	}
	change.LocalVersion = q.nextVersion
	q.nextVersion++

	key := change.Key()
	replaced := false
	for i, existing := range q.pending {
		if existing.Key() != key {
			continue
		}
		change.OldValue = existing.OldValue
		change.Timestamp = existing.Timestamp
		q.pending[i] = change
		replaced = true
		break
	}
	if !replaced {
		q.pending = append(q.pending, change)
	}

	q.persistLocked(ctx)
	return len(q.pending)
}

// Drain atomically cuts and returns the current batch. Enqueues racing an
// in-flight sync cycle land in a fresh batch and are neither lost nor
// double-sent.
func (q *ChangeQueue) Drain(ctx context.Context) []models.SettingsChange {
	q.mu.Lock()
	defer q.mu.Unlock()

	batch := q.pending
	q.pending = nil
	q.persistLocked(ctx)
	sortByVersion(batch)
	return batch
}

// Requeue reinstates changes whose sync attempt failed, preserving local
// version order. A requeued change never clobbers a newer pending change
// for the same key: the newer edit already supersedes it.
func (q *ChangeQueue) Requeue(ctx context.Context, changes []models.SettingsChange) {
	if len(changes) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, change := range changes {
		if newer := q.findLocked(change.Key()); newer != nil && newer.LocalVersion >= change.LocalVersion {
			continue
		}
		q.replaceOrAppendLocked(change)
	}
	sortByVersion(q.pending)
	q.persistLocked(ctx)
}

// Discard removes the pending change for key if its local version is at
// most upToVersion. It is used when a conflict is resolved as take-remote:
// the only sanctioned way a local edit is dropped.
func (q *ChangeQueue) Discard(ctx context.Context, key string, upToVersion int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, existing := range q.pending {
		if existing.Key() != key || existing.LocalVersion > upToVersion {
			continue
		}
		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		q.persistLocked(ctx)
		return true
	}
	return false
}

// Rebase replaces the assumed base value of the pending change for key,
// provided its local version still matches. It is used after a keep-local
// resolution: the push must claim the server's current value as its base or
// the server will reject it again.
func (q *ChangeQueue) Rebase(ctx context.Context, key string, version int64, base json.RawMessage) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.pending {
		if q.pending[i].Key() != key || q.pending[i].LocalVersion != version {
			continue
		}
		q.pending[i].OldValue = base
		q.persistLocked(ctx)
		return true
	}
	return false
}

// Pending returns the number of queued changes.
func (q *ChangeQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Changes returns a copy of the queued changes in local version order.
func (q *ChangeQueue) Changes() []models.SettingsChange {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.SettingsChange, len(q.pending))
	copy(out, q.pending)
	sortByVersion(out)
	return out
}

// Degraded reports whether the queue has fallen back to memory-only
// operation after a storage failure.
func (q *ChangeQueue) Degraded() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.degraded
}

func (q *ChangeQueue) findLocked(key string) *models.SettingsChange {
	for i := range q.pending {
		if q.pending[i].Key() == key {
			return &q.pending[i]
		}
	}
	return nil
}

func (q *ChangeQueue) replaceOrAppendLocked(change models.SettingsChange) {
	for i := range q.pending {
		if q.pending[i].Key() == change.Key() {
			q.pending[i] = change
			return
		}
	}
	q.pending = append(q.pending, change)
}

func (q *ChangeQueue) persistLocked(ctx context.Context) {
	if q.degraded {
		return
	}

	payload, err := json.Marshal(q.pending)
	if err != nil {
		q.logger.Err(err).Msg("encode queue state")
		return
	}

	if err = q.store.Set(ctx, StorageKey, string(payload)); err != nil {
		q.degraded = true
		q.logger.Warn().Err(err).Msg("queue persistence failed, continuing memory-only")
		q.alerts.RaiseAlert(models.AlertStorageFull, models.SeverityHigh,
			fmt.Sprintf("change queue persistence failed: %v", err))
	}
}

func sortByVersion(changes []models.SettingsChange) {
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].LocalVersion < changes[j].LocalVersion
	})
}
