// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Apex Markets

// Package adapter provides the transport layer between the sync subsystem
// and the Apex settings backend.
//
// The primary abstraction is [SettingsBackend], which decouples the sync
// engine from the REST protocol. The package ships a resty-based HTTP
// implementation ([NewHTTPBackend]) plus the fire-and-forget telemetry
// beacon ([NewBeacon]).
//
// Transport errors are mapped to the sentinel values in errors.go so that
// callers can use [errors.Is] for transport-agnostic handling. A settings
// conflict is not an error: the server's 409 answer is decoded into
// [models.PushResult] with Conflict set.
package adapter

import (
	"context"

	"github.com/apexmarkets/settingsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/adapter_mock.go -package=mock

// SettingsBackend defines transport-agnostic communication with the remote
// settings store. Implementations are responsible for serialisation,
// bearer-token management, and mapping transport errors to the package
// sentinels.
type SettingsBackend interface {
	// SetToken stores the bearer token attached to all subsequent requests.
	SetToken(token string)

	// Token returns the currently stored bearer token, or an empty string.
	Token() string

	// UserID extracts the authenticated user's id from the bearer token's
	// subject claim. Returns an error if no token is set or the token
	// cannot be parsed.
	UserID() (int64, error)

	// Fetch retrieves the authoritative settings snapshot, including the
	// per-key last-modified markers the engine needs for conflict
	// detection and remote-change propagation.
	Fetch(ctx context.Context) (models.SettingsSnapshot, error)

	// Push writes one setting. The server compares req.OldValue against
	// its stored value: on a match the write is applied, otherwise the
	// result reports Conflict with the server's value and timestamp.
	// A conflict answer is a successful call, not an error.
	Push(ctx context.Context, settingType models.SettingType, key string, req models.PushRequest) (models.PushResult, error)
}
