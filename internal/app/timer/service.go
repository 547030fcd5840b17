// Package timer implements the active time-tracking engine: at most one
// running timer per user across all tasks and devices, with starting a new
// timer atomically stopping the previous one.
package timer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskhive/trackd/internal/domain"
	"github.com/taskhive/trackd/internal/infra/metrics"
)

// Service orchestrates timer operations against the store. Each of
// Start/Stop/StopByID is one atomic unit of work; the store's uniqueness
// constraint is what keeps the one-active-timer invariant under races.
type Service struct {
	store domain.TimerStore
	now   func() time.Time
}

// NewService creates a timer service using the wall clock.
func NewService(store domain.TimerStore) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock overrides the service clock. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Start begins tracking taskID for the user, implicitly stopping whatever
// was running. Two starts racing for the same user lose the insert to the
// store's uniqueness constraint; the loser re-runs the whole close-then-insert
// unit exactly once, so the race resolves to a deterministic single winner.
// Only a retry that also loses surfaces ErrTimerConflict.
func (s *Service) Start(ctx context.Context, userID, taskID, note string) (*domain.ActiveTimer, error) {
	entry, closed, err := s.store.SwitchActive(ctx, userID, taskID, note, s.now())
	if errors.Is(err, domain.ErrActiveTimerExists) {
		metrics.StartRetries.Inc()
		entry, closed, err = s.store.SwitchActive(ctx, userID, taskID, note, s.now())
		if errors.Is(err, domain.ErrActiveTimerExists) {
			metrics.StartConflicts.Inc()
			return nil, domain.ErrTimerConflict
		}
	}
	if err != nil {
		return nil, fmt.Errorf("start timer: %w", err)
	}

	if closed > 0 {
		metrics.TimerStarts.WithLabelValues("switch").Inc()
	} else {
		metrics.TimerStarts.WithLabelValues("fresh").Inc()
	}

	accumulated, err := s.store.SumDurationByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("sum prior durations: %w", err)
	}
	return &domain.ActiveTimer{Entry: *entry, AccumulatedSeconds: accumulated}, nil
}

// Stop closes the user's running timer, if any. Stopping with nothing active
// is a successful no-op returning 0, so stop calls racing from multiple tabs
// are all harmless.
func (s *Service) Stop(ctx context.Context, userID string) (int, error) {
	closed, err := s.store.CloseActive(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("stop timer: %w", err)
	}
	if closed > 0 {
		metrics.TimerStops.WithLabelValues("stopped").Inc()
	} else {
		metrics.TimerStops.WithLabelValues("noop").Inc()
	}
	return closed, nil
}

// StopByID closes one specific entry, enforcing that the caller owns it and
// that it is still running. Used for out-of-band control; Stop targets
// whatever is active now.
func (s *Service) StopByID(ctx context.Context, userID, entryID string) (*domain.TimeEntry, error) {
	entry, err := s.store.CloseByID(ctx, entryID, userID, s.now())
	if err != nil {
		return nil, err
	}
	metrics.TimerStops.WithLabelValues("stopped").Inc()
	return entry, nil
}

// GetActive returns the user's running timer joined with the task's prior
// accumulated seconds, or nil if idle. Answers client polls and re-seeds
// newly opened tabs.
func (s *Service) GetActive(ctx context.Context, userID string) (*domain.ActiveTimer, error) {
	entry, err := s.store.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get active timer: %w", err)
	}
	if entry == nil {
		return nil, nil
	}
	accumulated, err := s.store.SumDurationByTask(ctx, entry.TaskID)
	if err != nil {
		return nil, fmt.Errorf("sum prior durations: %w", err)
	}
	return &domain.ActiveTimer{Entry: *entry, AccumulatedSeconds: accumulated}, nil
}

// ListHistory returns a task's entries, newest first.
func (s *Service) ListHistory(ctx context.Context, taskID string) ([]domain.TimeEntry, error) {
	return s.store.ListByTask(ctx, taskID)
}

// TotalForTask returns the task's stored accumulated seconds. A running
// entry contributes nothing here; the projector adds its live delta for
// display only.
func (s *Service) TotalForTask(ctx context.Context, taskID string) (int64, error) {
	return s.store.SumDurationByTask(ctx, taskID)
}
