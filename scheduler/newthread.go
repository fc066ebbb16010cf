package scheduler

import "sync/atomic"

// NewThread starts a brand-new goroutine for every task.
type NewThread struct {
	panics atomic.Int64
}

// Schedule runs task on a fresh goroutine.
func (s *NewThread) Schedule(task func()) {
	go runTask(string(KindNewThread), &s.panics, task)
}

// Panics returns the number of tasks that panicked.
func (s *NewThread) Panics() int64 { return s.panics.Load() }
