// Package queue implements the durable, ordered record of local settings
// mutations that have not yet been confirmed by the backend.
//
// The queue coalesces edits per setting key, stamps each accepted change
// with a session-monotonic local version, and mirrors every mutation to the
// storage port so pending changes survive restarts. Storage failures are
// never fatal: the in-memory queue stays authoritative for the session and
// the failure is surfaced through the injected AlertSink.
package queue

import "github.com/apexmarkets/settingsync/models"

// AlertSink is the telemetry surface the queue reports degradations to.
// The telemetry recorder satisfies it.
type AlertSink interface {
	// RaiseAlert records an operational alert and returns it.
	RaiseAlert(alertType models.AlertType, severity models.AlertSeverity, message string) models.PerformanceAlert
}
