// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Apex Markets

// Package storage defines the durable key-value port shared by the change
// queue and the telemetry recorder, plus the backends shipped with the
// library.
//
// The port mirrors the browser localStorage contract the Apex web client is
// built against: string keys, string values, finite capacity, and a Set
// that may fail when the quota is exhausted. Callers must survive Set
// failures without crashing; components own disjoint key prefixes and
// always replace whole values, never patch fields, because the port gives
// no multi-key transactional guarantee.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key has no stored value.
	ErrNotFound = errors.New("storage: key not found")

	// ErrQuotaExceeded is returned by Set when the backend's capacity is
	// exhausted. Callers degrade to in-memory operation rather than fail.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// KV is the durable key-value port.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value atomically.
	// Returns ErrQuotaExceeded (possibly wrapped) when capacity is
	// exhausted.
	Set(ctx context.Context, key, value string) error

	// Remove deletes the value stored under key. Removing an absent key is
	// not an error.
	Remove(ctx context.Context, key string) error

	// Usage reports current occupancy so the telemetry recorder can compute
	// a storage usage fraction.
	Usage(ctx context.Context) (Usage, error)
}

// Usage describes backend occupancy. A zero Capacity means unbounded; the
// usage fraction is then reported as zero.
type Usage struct {
	UsedBytes int64
	Capacity  int64
}

// Fraction returns used/capacity clamped to [0,1], or 0 for unbounded
// backends.
func (u Usage) Fraction() float64 {
	if u.Capacity <= 0 {
		return 0
	}
	f := float64(u.UsedBytes) / float64(u.Capacity)
	if f > 1 {
		return 1
	}
	return f
}
