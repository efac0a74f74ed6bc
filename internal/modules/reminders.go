package modules

import (
	"context"
	"fmt"
	"time"

	"github.com/MockingJay1710/buddyai/internal/command"
	"github.com/MockingJay1710/buddyai/internal/reminder"
	"github.com/MockingJay1710/buddyai/internal/store"
)

// Reminders provides reminder commands backed by the sqlite store, so
// reminders survive agent restarts.
type Reminders struct {
	store *store.Store
}

func NewReminders(s *store.Store) *Reminders { return &Reminders{store: s} }

func (*Reminders) Name() string { return "reminders" }

type setReminderInput struct {
	Time    string `json:"time" desc:"When to fire: \"HH:MM\" (today, or tomorrow if past), \"YYYY-MM-DD HH:MM\", or a 5-field cron expression for recurring reminders."`
	Message string `json:"message" desc:"The reminder message."`
}

type cancelReminderInput struct {
	ReminderID string `json:"reminder_id" desc:"The id returned when the reminder was set."`
}

type setReminderResult struct {
	Status     string `json:"status"`
	ReminderID string `json:"reminder_id"`
	FireAt     string `json:"fire_at"`
	Recurring  bool   `json:"recurring"`
	Message    string `json:"message"`
}

type reminderEntry struct {
	ID        string `json:"id"`
	Time      string `json:"time"`
	Message   string `json:"message"`
	Recurring bool   `json:"recurring"`
}

type listRemindersResult struct {
	Status    string          `json:"status"`
	Reminders []reminderEntry `json:"reminders"`
}

type cancelReminderResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (r *Reminders) Commands() []command.Spec {
	return []command.Spec{
		command.New("reminder_set", "Sets a reminder for a future time with a message.", r.setReminder),
		command.New("reminder_list", "Lists all pending reminders.", r.listReminders),
		command.New("reminder_cancel", "Cancels a pending reminder by id.", r.cancelReminder),
	}
}

func (r *Reminders) setReminder(ctx context.Context, in setReminderInput) (any, error) {
	if in.Message == "" {
		return nil, fmt.Errorf("empty reminder message")
	}
	when, err := reminder.ParseWhen(in.Time, time.Now())
	if err != nil {
		return nil, err
	}

	id, err := r.store.CreateReminder(ctx, in.Message, when.FireAt, when.CronExpr)
	if err != nil {
		return nil, err
	}
	return setReminderResult{
		Status:     "success",
		ReminderID: id,
		FireAt:     when.FireAt.Format(time.RFC3339),
		Recurring:  when.Recurring(),
		Message:    fmt.Sprintf("Reminder %s set for %s.", id, when.FireAt.Format(time.RFC3339)),
	}, nil
}

func (r *Reminders) listReminders(ctx context.Context, _ struct{}) (any, error) {
	pending, err := r.store.PendingReminders(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]reminderEntry, 0, len(pending))
	for _, rem := range pending {
		entries = append(entries, reminderEntry{
			ID:        rem.ID,
			Time:      rem.FireAt.Local().Format(time.RFC3339),
			Message:   rem.Message,
			Recurring: rem.CronExpr != "",
		})
	}
	return listRemindersResult{Status: "success", Reminders: entries}, nil
}

func (r *Reminders) cancelReminder(ctx context.Context, in cancelReminderInput) (any, error) {
	ok, err := r.store.CancelReminder(ctx, in.ReminderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("reminder %q not found or already fired", in.ReminderID)
	}
	return cancelReminderResult{
		Status:  "success",
		Message: fmt.Sprintf("Reminder %s cancelled.", in.ReminderID),
	}, nil
}
