// Package reminder provides the reminder scheduler: a periodic loop that
// fires due reminders from the store and publishes them on the bus, plus
// the parsing rules for user-supplied reminder times.
package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/MockingJay1710/buddyai/internal/bus"
	"github.com/MockingJay1710/buddyai/internal/store"
)

// cronParser parses standard 5-field cron expressions (minute, hour,
// day of month, month, day of week).
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
)

// Config holds the dependencies for the scheduler.
type Config struct {
	Store    *store.Store
	Bus      *bus.Bus
	Logger   *slog.Logger
	Interval time.Duration // tick interval; defaults to 1 second if zero
}

// Scheduler periodically queries the store for due reminders and fires
// each one. One-shot reminders transition to fired; recurring reminders
// roll forward to their next cron occurrence.
type Scheduler struct {
	store    *store.Store
	bus      *bus.Bus
	logger   *slog.Logger
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler with the given config.
func NewScheduler(cfg Config) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    cfg.Store,
		bus:      cfg.Bus,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the scheduler loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Info("reminder scheduler started", "interval", s.interval)
}

// Stop cancels the scheduler loop and waits for it to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("reminder scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Fire immediately on startup so reminders that came due while the
	// agent was down are delivered right away.
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	due, err := s.store.DueReminders(ctx, now)
	if err != nil {
		s.logger.Error("reminder: failed to query due reminders", "error", err)
		return
	}
	for _, r := range due {
		s.fire(ctx, r, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, r store.Reminder, now time.Time) {
	var nextFire *time.Time
	if r.CronExpr != "" {
		next, err := NextRunTime(r.CronExpr, now)
		if err != nil {
			s.logger.Error("reminder: bad cron expression",
				"reminder_id", r.ID,
				"cron_expr", r.CronExpr,
				"error", err,
			)
			// Fall through and fire it as one-shot rather than firing
			// on every tick forever.
		} else {
			nextFire = &next
		}
	}

	if err := s.store.MarkFired(ctx, r.ID, now, nextFire); err != nil {
		s.logger.Error("reminder: failed to mark fired",
			"reminder_id", r.ID,
			"error", err,
		)
		return
	}

	s.bus.Publish(bus.TopicReminderFired, bus.ReminderFiredEvent{
		ReminderID: r.ID,
		Message:    r.Message,
		FiredAt:    now.Format(time.RFC3339),
		Recurring:  nextFire != nil,
	})
	s.logger.Info("reminder fired",
		"reminder_id", r.ID,
		"message", r.Message,
		"recurring", nextFire != nil,
	)
}

// NextRunTime parses the cron expression and returns the next run time
// after the given time.
func NextRunTime(cronExpr string, after time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(after), nil
}
