package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/apexmarkets/settingsync/models"
)

type countingSyncer struct {
	calls atomic.Int64
}

func (s *countingSyncer) SyncCycle(context.Context) (models.SyncReport, error) {
	s.calls.Add(1)
	return models.SyncReport{}, nil
}

func TestSyncJob_TicksOnInterval(t *testing.T) {
	syncer := &countingSyncer{}
	job := NewSyncJob(syncer)
	defer job.Stop()

	job.Start(context.Background(), 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		return syncer.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSyncJob_StopHaltsTicking(t *testing.T) {
	syncer := &countingSyncer{}
	job := NewSyncJob(syncer)

	job.Start(context.Background(), 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return syncer.calls.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	job.Stop()
	after := syncer.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, syncer.calls.Load())

	// Stop is idempotent when the job is not running.
	job.Stop()
}

func TestSyncJob_StartReplacesRunningJob(t *testing.T) {
	syncer := &countingSyncer{}
	job := NewSyncJob(syncer)
	defer job.Stop()

	job.Start(context.Background(), time.Hour)
	job.Start(context.Background(), 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return syncer.calls.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSyncJob_ContextCancelStopsJob(t *testing.T) {
	syncer := &countingSyncer{}
	job := NewSyncJob(syncer)
	defer job.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	job.Start(ctx, 10*time.Millisecond)
	cancel()

	time.Sleep(30 * time.Millisecond)
	after := syncer.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, syncer.calls.Load())
}
