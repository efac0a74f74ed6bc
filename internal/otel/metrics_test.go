package otel

import (
	"context"
	"testing"
)

func TestNewMetrics_AllInstrumentsCreated(t *testing.T) {
	p, err := Init(context.Background(), Config{
		Enabled:  true,
		Exporter: "none",
	})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer p.Shutdown(context.Background())

	m, err := NewMetrics(p.Meter)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	if m.CommandsExecuted == nil {
		t.Error("CommandsExecuted is nil")
	}
	if m.CommandsFailed == nil {
		t.Error("CommandsFailed is nil")
	}
	if m.CommandDuration == nil {
		t.Error("CommandDuration is nil")
	}
	if m.RemindersFired == nil {
		t.Error("RemindersFired is nil")
	}
	if m.RequestDuration == nil {
		t.Error("RequestDuration is nil")
	}

	// Recording on instruments must not panic.
	m.CommandsExecuted.Add(context.Background(), 1)
	m.CommandDuration.Record(context.Background(), 0.01)
}
