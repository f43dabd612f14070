package models

import (
	"encoding/json"
	"time"
)

// ChangeOrigin marks which side of the sync boundary produced a change.
type ChangeOrigin string

const (
	OriginLocal  ChangeOrigin = "local"
	OriginRemote ChangeOrigin = "remote"
)

// SettingsChange is a single mutation intent for one setting key.
//
// LocalVersion is assigned by the change queue and is strictly increasing
// within a device session; a change carrying a lower LocalVersion than the
// last applied one for the same key is stale and must not overwrite it.
// Timestamp records the first divergence from the last-synced value: when a
// pending change is overwritten by a newer edit to the same key, the newer
// values win but the original Timestamp is kept for conflict display.
type SettingsChange struct {
	ID           string          `json:"id"`
	SettingType  SettingType     `json:"setting_type"`
	SettingKey   string          `json:"setting_key"`
	OldValue     json.RawMessage `json:"old_value"`
	NewValue     json.RawMessage `json:"new_value"`
	LocalVersion int64           `json:"local_version"`
	Timestamp    time.Time       `json:"timestamp"`
	Origin       ChangeOrigin    `json:"origin"`
}

// Key returns the canonical "<type>/<key>" address of the changed setting.
func (c SettingsChange) Key() string {
	return SettingKeyOf(c.SettingType, c.SettingKey)
}

// IsNoop reports whether the change does not actually alter the value.
func (c SettingsChange) IsNoop() bool {
	return JSONEqual(c.OldValue, c.NewValue)
}
