package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/trackd/internal/domain"
	"github.com/taskhive/trackd/internal/infra/metrics"
)

// execer is satisfied by both *sql.DB and *sql.Tx, so the close/insert
// primitives can run standalone or inside SwitchActive's transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const entryColumns = `id, user_id, task_id, started_at, ended_at, duration_s, note`

// ─── TimerStore implementation ──────────────────────────────────────────────

// InsertActive creates a new running entry for the user. The partial unique
// index rejects it with domain.ErrActiveTimerExists when one already runs.
func (d *DB) InsertActive(ctx context.Context, userID, taskID string, startedAt time.Time, note string) (*domain.TimeEntry, error) {
	return insertActive(ctx, d.db, userID, taskID, startedAt, note)
}

func insertActive(ctx context.Context, ex execer, userID, taskID string, startedAt time.Time, note string) (*domain.TimeEntry, error) {
	entry := domain.TimeEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		TaskID:    taskID,
		StartedAt: startedAt.Truncate(time.Second),
		Note:      note,
	}

	_, err := ex.ExecContext(ctx,
		`INSERT INTO time_entries (id, user_id, task_id, started_at, ended_at, duration_s, note)
		 VALUES (?, ?, ?, ?, NULL, NULL, ?)`,
		entry.ID, entry.UserID, entry.TaskID, entry.StartedAt.Unix(), entry.Note,
	)
	if isUniqueViolation(err) {
		return nil, domain.ErrActiveTimerExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert active entry: %w", err)
	}
	return &entry, nil
}

// CloseActive stamps ended_at on the user's running entry, if any.
// Idempotent: returns 0 when nothing is running.
func (d *DB) CloseActive(ctx context.Context, userID string, endedAt time.Time) (int, error) {
	return closeActive(ctx, d.db, userID, endedAt)
}

func closeActive(ctx context.Context, ex execer, userID string, endedAt time.Time) (int, error) {
	endedAt = endedAt.Truncate(time.Second)

	// Clamp via MAX(): a clock anomaly (ended_at < started_at) stores 0,
	// never a negative duration.
	result, err := ex.ExecContext(ctx,
		`UPDATE time_entries
		 SET ended_at = ?, duration_s = MAX(0, ? - started_at)
		 WHERE user_id = ? AND ended_at IS NULL`,
		endedAt.Unix(), endedAt.Unix(), userID,
	)
	if err != nil {
		return 0, fmt.Errorf("close active entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("close active entry: rows affected: %w", err)
	}

	if n > 0 {
		flagClockAnomaly(ctx, ex, userID, endedAt)
	}
	return int(n), nil
}

// flagClockAnomaly logs and counts a close whose clamp actually fired.
func flagClockAnomaly(ctx context.Context, ex execer, userID string, endedAt time.Time) {
	var started int64
	err := ex.QueryRowContext(ctx,
		`SELECT started_at FROM time_entries
		 WHERE user_id = ? AND ended_at = ? AND duration_s = 0
		 ORDER BY started_at DESC LIMIT 1`,
		userID, endedAt.Unix(),
	).Scan(&started)
	if err != nil || started <= endedAt.Unix() {
		return
	}
	metrics.ClockAnomalies.Inc()
	log.Printf("[sqlite] clock anomaly: entry for user %s ended %ds before it started, duration clamped to 0",
		userID, started-endedAt.Unix())
}

// CloseByID closes one specific entry, enforcing ownership and the
// running→closed single transition.
func (d *DB) CloseByID(ctx context.Context, entryID, callerID string, endedAt time.Time) (*domain.TimeEntry, error) {
	endedAt = endedAt.Truncate(time.Second)

	entry, err := getEntry(ctx, d.db, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrEntryNotFound
	}
	if entry.UserID != callerID {
		return nil, domain.ErrEntryForbidden
	}
	if !entry.Running() {
		return nil, domain.ErrEntryClosed
	}

	// Guard on ended_at IS NULL again so a concurrent close loses cleanly.
	result, err := d.db.ExecContext(ctx,
		`UPDATE time_entries
		 SET ended_at = ?, duration_s = MAX(0, ? - started_at)
		 WHERE id = ? AND ended_at IS NULL`,
		endedAt.Unix(), endedAt.Unix(), entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("close entry %s: %w", entryID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, domain.ErrEntryClosed
	}

	entry.EndedAt = endedAt
	entry.DurationSeconds = domain.ClampDuration(entry.StartedAt, endedAt)
	if endedAt.Before(entry.StartedAt) {
		metrics.ClockAnomalies.Inc()
		log.Printf("[sqlite] clock anomaly: entry %s ended before it started, duration clamped to 0", entryID)
	}
	return entry, nil
}

// SwitchActive atomically closes the user's running entry (if any) and opens
// a new one, both stamped with now. Runs in a single transaction so no reader
// observes the close without the insert.
func (d *DB) SwitchActive(ctx context.Context, userID, taskID, note string, now time.Time) (*domain.TimeEntry, int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin switch tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	closed, err := closeActive(ctx, tx, userID, now)
	if err != nil {
		return nil, 0, err
	}
	entry, err := insertActive(ctx, tx, userID, taskID, now, note)
	if err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, 0, domain.ErrActiveTimerExists
		}
		return nil, 0, fmt.Errorf("commit switch tx: %w", err)
	}
	return entry, closed, nil
}

// GetActive returns the user's running entry, or nil if idle.
func (d *DB) GetActive(ctx context.Context, userID string) (*domain.TimeEntry, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries
		 WHERE user_id = ? AND ended_at IS NULL`, userID,
	)
	return scanEntry(row)
}

// ListByTask returns all entries for a task, newest first.
func (d *DB) ListByTask(ctx context.Context, taskID string) ([]domain.TimeEntry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries
		 WHERE task_id = ? ORDER BY started_at DESC, id DESC`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var entries []domain.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// SumDurationByTask sums duration_s over the task's closed entries.
func (d *DB) SumDurationByTask(ctx context.Context, taskID string) (int64, error) {
	var total sql.NullInt64
	err := d.db.QueryRowContext(ctx,
		`SELECT SUM(duration_s) FROM time_entries
		 WHERE task_id = ? AND ended_at IS NOT NULL`, taskID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum durations for task %s: %w", taskID, err)
	}
	return total.Int64, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func getEntry(ctx context.Context, ex execer, entryID string) (*domain.TimeEntry, error) {
	row := ex.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE id = ?`, entryID,
	)
	return scanEntry(row)
}

func scanEntry(s scanner) (*domain.TimeEntry, error) {
	var e domain.TimeEntry
	var startedAt int64
	var endedAt, duration sql.NullInt64

	err := s.Scan(&e.ID, &e.UserID, &e.TaskID, &startedAt, &endedAt, &duration, &e.Note)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	e.StartedAt = time.Unix(startedAt, 0)
	if endedAt.Valid {
		e.EndedAt = time.Unix(endedAt.Int64, 0)
	}
	if duration.Valid {
		e.DurationSeconds = duration.Int64
	}
	return &e, nil
}
