package timer

import (
	"time"

	"github.com/taskhive/trackd/internal/domain"
)

// Projection is a displayable view of a task's tracked time at one instant.
type Projection struct {
	// AccumulatedSeconds is the sum over closed entries.
	AccumulatedSeconds int64 `json:"accumulated_seconds"`
	// RunningSeconds is the live delta of the active entry, zero when idle.
	RunningSeconds int64 `json:"running_seconds"`
}

// Total returns accumulated plus running seconds.
func (p Projection) Total() int64 {
	return p.AccumulatedSeconds + p.RunningSeconds
}

// Project computes accumulated and running durations from a set of entries
// plus "now". It is pure: the server (for totals) and every client (for the
// ticking display) call it with the same inputs and get the same numbers.
// The active entry is excluded from the accumulated sum even when it appears
// in entries, and no output is ever negative.
func Project(entries []domain.TimeEntry, active *domain.TimeEntry, now time.Time) Projection {
	var p Projection
	for _, e := range entries {
		if e.Running() {
			continue
		}
		if active != nil && e.ID == active.ID {
			continue
		}
		if e.DurationSeconds > 0 {
			p.AccumulatedSeconds += e.DurationSeconds
		}
	}
	if active != nil {
		p.RunningSeconds = domain.ClampDuration(active.StartedAt, now)
	}
	return p
}
