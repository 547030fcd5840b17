// Package domain holds the core time-tracking types.
// A TimeEntry is one interval of tracked work: created by a start,
// closed exactly once by a stop (explicit or implicit via a switch),
// then immutable forever.
package domain

import "time"

// TimeEntry is a single tracked interval for one user on one task.
type TimeEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TaskID    string    `json:"task_id"`
	StartedAt time.Time `json:"started_at"`
	// EndedAt is zero while the entry is running.
	EndedAt time.Time `json:"ended_at,omitempty"`
	// DurationSeconds is set exactly when EndedAt is set; never while running.
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
	Note            string `json:"note,omitempty"`
}

// Running reports whether the entry is still open.
func (e *TimeEntry) Running() bool {
	return e.EndedAt.IsZero()
}

// ActiveTimer combines a running entry with the task's prior accumulated
// seconds, so a caller can render a continuous running total.
type ActiveTimer struct {
	Entry              TimeEntry `json:"entry"`
	AccumulatedSeconds int64     `json:"accumulated_seconds"`
}

// ClampDuration converts a [start, end] span to whole seconds, clamping
// negative spans (clock anomalies) to zero. Both the store and the
// projector must use this so server and client agree on every number.
func ClampDuration(startedAt, endedAt time.Time) int64 {
	secs := endedAt.Unix() - startedAt.Unix()
	if secs < 0 {
		return 0
	}
	return secs
}
