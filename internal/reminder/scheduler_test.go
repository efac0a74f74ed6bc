package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/MockingJay1710/buddyai/internal/bus"
	"github.com/MockingJay1710/buddyai/internal/store"
)

func testDeps(t *testing.T) (*store.Store, *bus.Bus) {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, bus.New()
}

func TestScheduler_FiresDueReminder(t *testing.T) {
	s, b := testDeps(t)
	ctx := context.Background()

	id, err := s.CreateReminder(ctx, "drink water", time.Now().Add(-time.Second), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sub := b.Subscribe(bus.TopicReminderFired)
	defer b.Unsubscribe(sub)

	sched := NewScheduler(Config{Store: s, Bus: b, Interval: 10 * time.Millisecond})
	sched.Start(ctx)
	defer sched.Stop()

	select {
	case event := <-sub.Ch():
		fired := event.Payload.(bus.ReminderFiredEvent)
		if fired.ReminderID != id || fired.Message != "drink water" {
			t.Fatalf("unexpected event: %+v", fired)
		}
		if fired.Recurring {
			t.Fatal("one-shot reminder reported recurring")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reminder.fired")
	}

	// One-shot reminders fire exactly once.
	select {
	case event := <-sub.Ch():
		t.Fatalf("reminder fired twice: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}

	n, err := s.PendingReminderCount(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("pending count = %d, want 0", n)
	}
}

func TestScheduler_RecurringRollsForward(t *testing.T) {
	s, b := testDeps(t)
	ctx := context.Background()

	// Every minute; the stored fire_at is already due.
	id, err := s.CreateReminder(ctx, "stretch", time.Now().Add(-time.Second), "* * * * *")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sub := b.Subscribe(bus.TopicReminderFired)
	defer b.Unsubscribe(sub)

	sched := NewScheduler(Config{Store: s, Bus: b, Interval: 10 * time.Millisecond})
	sched.Start(ctx)
	defer sched.Stop()

	select {
	case event := <-sub.Ch():
		fired := event.Payload.(bus.ReminderFiredEvent)
		if !fired.Recurring {
			t.Fatal("recurring reminder reported one-shot")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reminder.fired")
	}

	pending, err := s.PendingReminders(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("recurring reminder not still pending: %+v", pending)
	}
	if !pending[0].FireAt.After(time.Now().Add(-time.Second)) {
		t.Fatalf("fire_at not rolled forward: %v", pending[0].FireAt)
	}
}

func TestNextRunTime(t *testing.T) {
	after := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	next, err := NextRunTime("0 9 * * *", after)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}

	if _, err := NextRunTime("not a cron", after); err == nil {
		t.Fatal("bad expression accepted")
	}
}
