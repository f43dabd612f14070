package models

import (
	"encoding/json"
	"time"
)

// PushRequest is the body of a single-key settings write. OldValue is the
// value the client believes it is overwriting; the server compares it
// against its stored value to detect concurrent modification.
type PushRequest struct {
	OldValue      json.RawMessage `json:"old_value"`
	NewValue      json.RawMessage `json:"new_value"`
	ClientVersion int64           `json:"client_version"`
}

// PushResult is the server's answer to a PushRequest: either the write was
// applied, or the server detected a conflict and reports its stored value.
// A conflict is data, not an error.
type PushResult struct {
	Applied         bool            `json:"applied"`
	Value           json.RawMessage `json:"value,omitempty"`
	Conflict        bool            `json:"conflict"`
	ServerValue     json.RawMessage `json:"server_value,omitempty"`
	ServerTimestamp time.Time       `json:"server_timestamp,omitempty"`
}

// SettingsResponse is the body of the snapshot fetch.
type SettingsResponse struct {
	Settings SettingsSnapshot `json:"settings"`
}
