package otel

import "go.opentelemetry.io/otel/metric"

// Metrics holds the agent's metric instruments.
type Metrics struct {
	CommandsExecuted metric.Int64Counter
	CommandsFailed   metric.Int64Counter
	CommandDuration  metric.Float64Histogram
	RemindersFired   metric.Int64Counter
	RequestDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments from the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.CommandsExecuted, err = meter.Int64Counter("buddyai.command.executed",
		metric.WithDescription("Commands dispatched successfully"),
	)
	if err != nil {
		return nil, err
	}

	m.CommandsFailed, err = meter.Int64Counter("buddyai.command.failed",
		metric.WithDescription("Commands that returned an error"),
	)
	if err != nil {
		return nil, err
	}

	m.CommandDuration, err = meter.Float64Histogram("buddyai.command.duration",
		metric.WithDescription("Command execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.RemindersFired, err = meter.Int64Counter("buddyai.reminder.fired",
		metric.WithDescription("Reminders delivered"),
	)
	if err != nil {
		return nil, err
	}

	m.RequestDuration, err = meter.Float64Histogram("buddyai.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
