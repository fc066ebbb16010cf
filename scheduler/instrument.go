package scheduler

import (
	"context"
	"time"

	"github.com/kbukum/flowkit/observability"
)

// Instrument records scheduled, completed and panicked task counts and run
// durations for s under name. A nil metrics value returns s unchanged.
func Instrument(s Scheduler, name string, metrics *observability.SchedulerMetrics) Scheduler {
	if s == nil || metrics == nil {
		return s
	}
	return Func(func(task func()) {
		ctx := context.Background()
		metrics.RecordScheduled(ctx, name)
		s.Schedule(func() {
			start := time.Now()
			panicking := true
			defer func() {
				if panicking {
					metrics.RecordPanic(ctx, name)
				}
			}()
			task()
			panicking = false
			metrics.RecordCompleted(ctx, name, time.Since(start))
		})
	})
}
