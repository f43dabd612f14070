package models

import "time"

// SyncStatus is the engine's externally observable state. It is derived on
// demand and never persisted.
type SyncStatus struct {
	Online         bool       `json:"online"`
	Syncing        bool       `json:"syncing"`
	PendingChanges int        `json:"pending_changes"`
	Conflicts      []Conflict `json:"conflicts"`
	LastSync       time.Time  `json:"last_sync"`
	LastError      string     `json:"last_error,omitempty"`
}

// SyncReport summarises one completed reconciliation cycle.
type SyncReport struct {
	// Applied lists the keys whose local changes the server accepted.
	Applied []string `json:"applied"`
	// Conflicts lists conflicts newly detected during the cycle.
	Conflicts []Conflict `json:"conflicts"`
	// RemoteUpdates carries remote-only changes observed in the snapshot,
	// i.e. edits made on another device that have no local counterpart.
	RemoteUpdates []SettingsChange `json:"remote_updates"`
	// Requeued is the number of changes put back for a later cycle, either
	// because transport failed or because their key is blocked by an
	// unresolved conflict.
	Requeued int           `json:"requeued"`
	Duration time.Duration `json:"duration"`
}
