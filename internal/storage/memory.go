package storage

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-memory KV backend. It backs tests and the degraded
// memory-only mode the queue falls into after persistent storage failures.
// A non-zero capacity enforces the localStorage-style quota: Set fails with
// ErrQuotaExceeded once the summed key+value sizes would exceed it.
type Memory struct {
	mu       sync.RWMutex
	items    map[string]string
	capacity int64
}

// NewMemory returns an unbounded in-memory backend.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

// NewMemoryWithCapacity returns an in-memory backend that rejects writes
// once capacity bytes are occupied.
func NewMemoryWithCapacity(capacity int64) *Memory {
	return &Memory{items: make(map[string]string), capacity: capacity}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.capacity > 0 {
		next := m.usedLocked() - entrySize(key, m.items[key]) + entrySize(key, value)
		if next > m.capacity {
			return fmt.Errorf("set %q: %w", key, ErrQuotaExceeded)
		}
	}

	m.items[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

func (m *Memory) Usage(_ context.Context) (Usage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Usage{UsedBytes: m.usedLocked(), Capacity: m.capacity}, nil
}

func (m *Memory) usedLocked() int64 {
	var used int64
	for k, v := range m.items {
		used += entrySize(k, v)
	}
	return used
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}
