package domain

import (
	"context"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// TimerStore abstracts durable TimeEntry persistence. The store, not the
// application layer, enforces the one-active-entry-per-user invariant:
// two racing InsertActive calls for the same user must see exactly one
// succeed, the loser getting ErrActiveTimerExists.
type TimerStore interface {
	// InsertActive creates a new running entry. Fails with
	// ErrActiveTimerExists if the user already has one.
	InsertActive(ctx context.Context, userID, taskID string, startedAt time.Time, note string) (*TimeEntry, error)

	// CloseActive stamps endedAt on the user's running entry, if any.
	// Returns the number of entries closed (0 or 1); closing when nothing
	// is running is a no-op, not an error.
	CloseActive(ctx context.Context, userID string, endedAt time.Time) (int, error)

	// CloseByID closes one specific entry, enforcing ownership and the
	// running→closed single transition.
	CloseByID(ctx context.Context, entryID, callerID string, endedAt time.Time) (*TimeEntry, error)

	// SwitchActive atomically closes the user's running entry (if any) and
	// opens a new one on taskID, both stamped with now. No reader observes
	// the close without the insert. The int reports how many prior entries
	// were closed (0 or 1).
	SwitchActive(ctx context.Context, userID, taskID, note string, now time.Time) (*TimeEntry, int, error)

	// GetActive returns the user's running entry, or nil if idle.
	GetActive(ctx context.Context, userID string) (*TimeEntry, error)

	// ListByTask returns all entries for a task, newest first.
	ListByTask(ctx context.Context, taskID string) ([]TimeEntry, error)

	// SumDurationByTask sums duration_seconds over the task's closed
	// entries. Running entries contribute nothing.
	SumDurationByTask(ctx context.Context, taskID string) (int64, error)
}
