package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Start / switch errors
	ErrActiveTimerExists = errors.New("user already has an active timer")
	ErrTimerConflict     = errors.New("timer start race not resolved after retry")

	// StopByID errors
	ErrEntryNotFound  = errors.New("time entry not found")
	ErrEntryForbidden = errors.New("time entry belongs to another user")
	ErrEntryClosed    = errors.New("time entry is already closed")

	// Store errors
	ErrStoreUnavailable = errors.New("timer store temporarily unavailable")
)
