package models

import (
	"encoding/json"
	"reflect"
	"time"
)

// SettingType groups user-configurable fields into the categories exposed by
// the Apex settings backend.
type SettingType string

const (
	SettingTypeProfile       SettingType = "profile"
	SettingTypeSecurity      SettingType = "security"
	SettingTypeNotifications SettingType = "notifications"
	SettingTypePrivacy       SettingType = "privacy"
	SettingTypeAnalytics     SettingType = "analytics"
)

// KnownSettingTypes lists every valid SettingType value.
var KnownSettingTypes = []SettingType{
	SettingTypeProfile,
	SettingTypeSecurity,
	SettingTypeNotifications,
	SettingTypePrivacy,
	SettingTypeAnalytics,
}

// Valid reports whether t is one of the known setting types.
func (t SettingType) Valid() bool {
	for _, known := range KnownSettingTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SettingKeyOf returns the canonical "<type>/<key>" form used to address a
// single setting across the queue, the snapshot, and the conflict set.
func SettingKeyOf(settingType SettingType, key string) string {
	return string(settingType) + "/" + key
}

// SettingValue is one entry of the authoritative remote snapshot: the stored
// value plus the server-side last-modified marker for that key.
type SettingValue struct {
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SettingsSnapshot is the authoritative remote settings state keyed by the
// canonical "<type>/<key>" form.
type SettingsSnapshot map[string]SettingValue

// JSONEqual compares two JSON-encoded values structurally, so that
// formatting differences ("1e0" vs "1", key order, whitespace) do not count
// as divergence. Invalid JSON falls back to a byte comparison.
func JSONEqual(a, b json.RawMessage) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}

	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return string(a) == string(b)
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return string(a) == string(b)
	}

	return reflect.DeepEqual(av, bv)
}
