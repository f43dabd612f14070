package models

import "time"

// Resolution is the outcome decided for a conflict, either automatically by
// policy or explicitly by the user.
type Resolution string

const (
	ResolutionUnresolved Resolution = "unresolved"
	ResolutionKeepLocal  Resolution = "keep-local"
	ResolutionTakeRemote Resolution = "take-remote"
	ResolutionMerged     Resolution = "merged"
)

// Conflict pairs a local change with the concurrent remote change detected
// for the same setting key during reconciliation.
//
// A conflict is created when the server's stored value differs from the
// value the local change assumed it was overwriting. It is destroyed either
// by being resolved (applied and removed from the pending set) or by being
// superseded when a newer local change arrives for the same key; superseded
// conflicts are dropped, not resolved.
type Conflict struct {
	ID           string         `json:"id"`
	LocalChange  SettingsChange `json:"local_change"`
	RemoteChange SettingsChange `json:"remote_change"`
	Resolution   Resolution     `json:"resolution"`
	DetectedAt   time.Time      `json:"detected_at"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`
}

// Key returns the canonical address of the conflicted setting.
func (c Conflict) Key() string {
	return c.LocalChange.Key()
}

// Resolved reports whether the conflict has already been decided.
func (c Conflict) Resolved() bool {
	return c.Resolution != ResolutionUnresolved && c.Resolution != ""
}
