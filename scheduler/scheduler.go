package scheduler

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/kbukum/flowkit/logger"
)

// Scheduler accepts a unit of work for eventual execution.
// There is no way to cancel a task once scheduled; stream operators check
// their cancelled flag inside the task body instead.
type Scheduler interface {
	Schedule(task func())
}

// Func adapts a plain function to the Scheduler interface.
type Func func(task func())

// Schedule calls f(task).
func (f Func) Schedule(task func()) { f(task) }

// Immediate runs every task inline on the calling goroutine.
var Immediate Scheduler = Func(func(task func()) { task() })

// Executor is a caller-supplied task runner.
type Executor interface {
	Execute(task func())
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(task func())

// Execute calls f(task).
func (f ExecutorFunc) Execute(task func()) { f(task) }

type executorScheduler struct {
	executor Executor
}

// FromExecutor wraps an executor verbatim. A nil executor yields nil.
func FromExecutor(e Executor) Scheduler {
	if e == nil {
		return nil
	}
	return &executorScheduler{executor: e}
}

func (s *executorScheduler) Schedule(task func()) {
	s.executor.Execute(task)
}

// runTask runs task and recovers a panic so the worker survives.
// It reports whether the task returned normally.
func runTask(name string, panics *atomic.Int64, task func()) (ok bool) {
	defer func() {
		if ok {
			return
		}
		if r := recover(); r != nil {
			if panics != nil {
				panics.Add(1)
			}
			logger.Get("scheduler").Error("scheduled task panicked", logger.Fields(
				logger.FieldScheduler, name,
				"panic", fmt.Sprint(r),
				logger.FieldStack, string(debug.Stack()),
			))
		}
	}()
	task()
	return true
}
