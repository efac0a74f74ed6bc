package reminder

import (
	"fmt"
	"strings"
	"time"
)

// When is a parsed reminder time: the first fire time and, for
// recurring reminders, the cron expression that rolls it forward.
type When struct {
	FireAt   time.Time
	CronExpr string
}

// Recurring reports whether the reminder repeats.
func (w When) Recurring() bool { return w.CronExpr != "" }

// ParseWhen parses a user-supplied reminder time. Accepted forms:
//
//	"HH:MM"               today, or tomorrow if the time already passed
//	"YYYY-MM-DD HH:MM"    an explicit date and time (must be in the future)
//	"m h dom mon dow"     a 5-field cron expression for recurring reminders
func ParseWhen(raw string, now time.Time) (When, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return When{}, fmt.Errorf("empty reminder time")
	}

	if t, err := time.ParseInLocation("15:04", raw, now.Location()); err == nil {
		fireAt := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
		if !fireAt.After(now) {
			fireAt = fireAt.AddDate(0, 0, 1)
		}
		return When{FireAt: fireAt}, nil
	}

	if t, err := time.ParseInLocation("2006-01-02 15:04", raw, now.Location()); err == nil {
		if !t.After(now) {
			return When{}, fmt.Errorf("cannot set reminder for a past time: %s", t.Format(time.RFC3339))
		}
		return When{FireAt: t}, nil
	}

	if sched, err := cronParser.Parse(raw); err == nil {
		return When{FireAt: sched.Next(now), CronExpr: raw}, nil
	}

	return When{}, fmt.Errorf("invalid time format %q: use \"HH:MM\", \"YYYY-MM-DD HH:MM\", or a cron expression", raw)
}
