package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SchedulerMetrics holds instruments for scheduled tasks.
// A nil *SchedulerMetrics records nothing.
type SchedulerMetrics struct {
	scheduled metric.Int64Counter
	completed metric.Int64Counter
	panicked  metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewSchedulerMetrics creates scheduler instruments on the given meter.
func NewSchedulerMetrics(meter metric.Meter) (*SchedulerMetrics, error) {
	scheduled, err := meter.Int64Counter("scheduler.tasks.scheduled",
		metric.WithDescription("Tasks submitted to a scheduler"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scheduler.tasks.scheduled counter: %w", err)
	}

	completed, err := meter.Int64Counter("scheduler.tasks.completed",
		metric.WithDescription("Tasks that ran to completion"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scheduler.tasks.completed counter: %w", err)
	}

	panicked, err := meter.Int64Counter("scheduler.tasks.panicked",
		metric.WithDescription("Tasks that panicked while running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scheduler.tasks.panicked counter: %w", err)
	}

	duration, err := meter.Float64Histogram(MetricTaskDuration,
		metric.WithDescription("Run time of scheduled tasks in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scheduler.task.duration histogram: %w", err)
	}

	return &SchedulerMetrics{
		scheduled: scheduled,
		completed: completed,
		panicked:  panicked,
		duration:  duration,
	}, nil
}

// RecordScheduled counts a submitted task.
func (m *SchedulerMetrics) RecordScheduled(ctx context.Context, scheduler string) {
	if m == nil {
		return
	}
	m.scheduled.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrScheduler, scheduler)))
}

// RecordCompleted counts a finished task and its run time.
func (m *SchedulerMetrics) RecordCompleted(ctx context.Context, scheduler string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrScheduler, scheduler))
	m.completed.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}

// RecordPanic counts a task that panicked.
func (m *SchedulerMetrics) RecordPanic(ctx context.Context, scheduler string) {
	if m == nil {
		return
	}
	m.panicked.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrScheduler, scheduler)))
}

// StreamMetrics holds instruments for traced stream subscriptions.
// A nil *StreamMetrics records nothing.
type StreamMetrics struct {
	subscriptions metric.Int64Counter
	active        metric.Int64UpDownCounter
	items         metric.Int64Counter
	terminals     metric.Int64Counter
	duration      metric.Float64Histogram
}

// NewStreamMetrics creates stream instruments on the given meter.
func NewStreamMetrics(meter metric.Meter) (*StreamMetrics, error) {
	subscriptions, err := meter.Int64Counter("flow.subscriptions",
		metric.WithDescription("Subscriptions started"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flow.subscriptions counter: %w", err)
	}

	active, err := meter.Int64UpDownCounter("flow.subscriptions.active",
		metric.WithDescription("Subscriptions that have not terminated"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flow.subscriptions.active gauge: %w", err)
	}

	items, err := meter.Int64Counter("flow.items",
		metric.WithDescription("Items delivered downstream"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flow.items counter: %w", err)
	}

	terminals, err := meter.Int64Counter("flow.terminals",
		metric.WithDescription("Terminal events by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flow.terminals counter: %w", err)
	}

	duration, err := meter.Float64Histogram(MetricSubscriptionDuration,
		metric.WithDescription("Time from subscribe to terminal event in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flow.subscription.duration histogram: %w", err)
	}

	return &StreamMetrics{
		subscriptions: subscriptions,
		active:        active,
		items:         items,
		terminals:     terminals,
		duration:      duration,
	}, nil
}

// RecordSubscribe counts a new subscription.
func (m *StreamMetrics) RecordSubscribe(ctx context.Context, stream string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrStream, stream))
	m.subscriptions.Add(ctx, 1, attrs)
	m.active.Add(ctx, 1, attrs)
}

// RecordItem counts one delivered item.
func (m *StreamMetrics) RecordItem(ctx context.Context, stream string) {
	if m == nil {
		return
	}
	m.items.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStream, stream)))
}

// RecordTerminal records how and when a subscription ended.
func (m *StreamMetrics) RecordTerminal(ctx context.Context, stream, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.active.Add(ctx, -1, metric.WithAttributes(attribute.String(AttrStream, stream)))
	m.terminals.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStream, stream),
		attribute.String(AttrStatus, status),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(AttrStream, stream)))
}
