// Package agent implements the client-side reconciliation loop for the
// timer engine. Each connected client (browser tab, CLI session, device)
// holds one Agent: a disposable projection of the server's active timer,
// ticking locally at display rate and periodically re-polled so that a
// switch made in another tab becomes visible here without a push channel.
// The server is always the source of truth for what is running.
package agent

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/taskhive/trackd/internal/app/timer"
	"github.com/taskhive/trackd/internal/domain"
)

// DefaultReconcileInterval is how often the agent re-fetches server truth.
// Tens of seconds: cheap enough to run always, fast enough that cross-tab
// races resolve within one interval.
const DefaultReconcileInterval = 30 * time.Second

// TimerAPI is the slice of the trackd API the agent consumes.
// *api.Client implements it.
type TimerAPI interface {
	Start(ctx context.Context, taskID, note string) (*domain.ActiveTimer, error)
	Stop(ctx context.Context) (int, error)
	GetActive(ctx context.Context) (*domain.ActiveTimer, error)
}

// Snapshot is the agent's current display state. Computing one is purely
// local — no network per tick.
type Snapshot struct {
	// Running is true while the agent believes a timer is active.
	Running bool
	// TaskID and EntryID identify the assumed active entry.
	TaskID  string
	EntryID string
	// Display holds accumulated plus live running seconds.
	Display timer.Projection
	// Paused means the local display is frozen. The server clock keeps
	// running; pause is cosmetic and tab-local.
	Paused bool
	// Degraded means the last sync attempt failed and the display may
	// lag server truth until the next successful reconcile.
	Degraded bool
}

// Agent reconciles one client's local timer display with the server.
type Agent struct {
	api      TimerAPI
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	active   *domain.ActiveTimer
	paused   bool
	frozenAt time.Time
	degraded bool
}

// New creates an agent with the default reconcile interval.
func New(api TimerAPI) *Agent {
	return &Agent{api: api, interval: DefaultReconcileInterval, now: time.Now}
}

// SetInterval overrides the reconcile interval.
func (a *Agent) SetInterval(d time.Duration) { a.interval = d }

// SetClock overrides the agent clock. Tests only.
func (a *Agent) SetClock(now func() time.Time) { a.now = now }

// Run seeds the agent from the server, then reconciles on the interval
// until ctx is cancelled. Call in a goroutine. The per-second display tick
// is not here: Snapshot is pure, so render loops call it at whatever rate
// they like without touching the network.
func (a *Agent) Run(ctx context.Context) {
	a.Reconcile(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Reconcile(ctx)
		}
	}
}

// Reconcile re-fetches the server's active timer and adopts it, replacing
// whatever this client assumed. A different entry id, or none at all, means
// another tab or device changed the timer since we last looked.
func (a *Agent) Reconcile(ctx context.Context) {
	active, err := a.api.GetActive(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		a.degraded = true
		log.Printf("[agent] reconcile failed, keeping local state: %v", err)
		return
	}
	a.degraded = false
	a.adoptLocked(active)
}

// Start asks the server to start a timer on taskID. A conflict means a
// concurrent start from another tab won the race even after the server's
// internal retry; instead of retrying blindly the agent re-fetches and
// adopts whatever the server now reports. An unknown outcome (timeout) is
// resolved the same way. The error is swallowed only when the re-fetch
// found a running timer to adopt; if the server turns out idle, nothing
// is ticking and the caller gets the original error.
func (a *Agent) Start(ctx context.Context, taskID, note string) error {
	active, err := a.api.Start(ctx, taskID, note)
	if err == nil {
		a.mu.Lock()
		a.degraded = false
		a.adoptLocked(active)
		a.mu.Unlock()
		return nil
	}

	if errors.Is(err, domain.ErrTimerConflict) || errors.Is(err, domain.ErrStoreUnavailable) {
		a.Reconcile(ctx)
		a.mu.Lock()
		adopted := !a.degraded && a.active != nil
		a.mu.Unlock()
		if adopted {
			return nil
		}
	}
	return err
}

// Stop asks the server to stop the running timer and clears local ticking
// state unconditionally: whether the server reported 0 or 1 stopped, this
// client should show idle.
func (a *Agent) Stop(ctx context.Context) error {
	_, err := a.api.Stop(ctx)

	a.mu.Lock()
	a.adoptLocked(nil)
	a.mu.Unlock()

	if err != nil && errors.Is(err, domain.ErrStoreUnavailable) {
		// Unknown outcome: let the server settle the question.
		a.Reconcile(ctx)
	}
	return err
}

// Pause freezes the local display. The server-side clock keeps
// accumulating; pausing is per-tab UI state only.
func (a *Agent) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.paused {
		a.paused = true
		a.frozenAt = a.now()
	}
}

// Resume unfreezes the local display, jumping it forward to real elapsed
// time (the server never stopped counting).
func (a *Agent) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = false
}

// Snapshot returns the current display state. Purely local.
func (a *Agent) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{Paused: a.paused, Degraded: a.degraded}
	if a.active == nil {
		return snap
	}

	now := a.now()
	if a.paused {
		now = a.frozenAt
	}

	snap.Running = true
	snap.TaskID = a.active.Entry.TaskID
	snap.EntryID = a.active.Entry.ID
	snap.Display = timer.Projection{
		AccumulatedSeconds: a.active.AccumulatedSeconds,
		RunningSeconds:     domain.ClampDuration(a.active.Entry.StartedAt, now),
	}
	return snap
}

// adoptLocked replaces local state with server truth. Caller holds a.mu.
func (a *Agent) adoptLocked(active *domain.ActiveTimer) {
	prev := ""
	if a.active != nil {
		prev = a.active.Entry.ID
	}
	a.active = active

	next := ""
	if active != nil {
		next = active.Entry.ID
	}
	if prev != next {
		// The assumed entry changed under us; any local pause belonged
		// to the old timer.
		a.paused = false
	}
}
