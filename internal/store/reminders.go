package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reminder statuses.
const (
	ReminderPending  = "pending"
	ReminderFired    = "fired"
	ReminderCanceled = "canceled"
)

// Reminder is a scheduled notification. CronExpr is empty for one-shot
// reminders; for recurring reminders FireAt always holds the next
// occurrence.
type Reminder struct {
	ID        string     `json:"id"`
	Message   string     `json:"message"`
	FireAt    time.Time  `json:"fire_at"`
	CronExpr  string     `json:"cron_expr,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	FiredAt   *time.Time `json:"fired_at,omitempty"`
}

// CreateReminder inserts a pending reminder and returns its id.
func (s *Store) CreateReminder(ctx context.Context, message string, fireAt time.Time, cronExpr string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, message, fire_at, cron_expr, status)
		VALUES (?, ?, ?, ?, ?);
	`, id, message, fireAt.UTC(), cronExpr, ReminderPending)
	if err != nil {
		return "", fmt.Errorf("insert reminder: %w", err)
	}
	return id, nil
}

// PendingReminders returns all pending reminders ordered by fire time.
func (s *Store) PendingReminders(ctx context.Context) ([]Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT id, message, fire_at, cron_expr, status, created_at, fired_at
		FROM reminders WHERE status = ? ORDER BY fire_at ASC;
	`, ReminderPending)
}

// DueReminders returns pending reminders with fire_at <= now.
func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT id, message, fire_at, cron_expr, status, created_at, fired_at
		FROM reminders WHERE status = ? AND fire_at <= ? ORDER BY fire_at ASC;
	`, ReminderPending, now.UTC())
}

// MarkFired records that a reminder fired. For a recurring reminder,
// nextFire is non-nil and the reminder stays pending at the rolled-over
// fire time; otherwise it transitions to fired.
func (s *Store) MarkFired(ctx context.Context, id string, firedAt time.Time, nextFire *time.Time) error {
	var res sql.Result
	var err error
	if nextFire != nil {
		res, err = s.db.ExecContext(ctx, `
			UPDATE reminders SET fired_at = ?, fire_at = ? WHERE id = ? AND status = ?;
		`, firedAt.UTC(), nextFire.UTC(), id, ReminderPending)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE reminders SET status = ?, fired_at = ? WHERE id = ? AND status = ?;
		`, ReminderFired, firedAt.UTC(), id, ReminderPending)
	}
	if err != nil {
		return fmt.Errorf("mark reminder fired: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("reminder not pending: %s", id)
	}
	return nil
}

// CancelReminder cancels a pending reminder. It returns false when the
// id is unknown or the reminder already fired.
func (s *Store) CancelReminder(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reminders SET status = ? WHERE id = ? AND status = ?;
	`, ReminderCanceled, id, ReminderPending)
	if err != nil {
		return false, fmt.Errorf("cancel reminder: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// PendingReminderCount returns the number of pending reminders.
func (s *Store) PendingReminderCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reminders WHERE status = ?;
	`, ReminderPending).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending reminders: %w", err)
	}
	return n, nil
}

func (s *Store) queryReminders(ctx context.Context, query string, args ...any) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var r Reminder
		var firedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.Message, &r.FireAt, &r.CronExpr, &r.Status, &r.CreatedAt, &firedAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		if firedAt.Valid {
			t := firedAt.Time
			r.FiredAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
