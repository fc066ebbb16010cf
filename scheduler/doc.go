// Package scheduler decides where stream work runs.
//
// A Scheduler accepts a task and guarantees it eventually runs under a
// specific policy:
//
//   - MainLoop: runs inline on the host's loop goroutine, otherwise posts to it
//   - NewThread: a fresh goroutine per task
//   - Single: one worker goroutine, tasks run in submission order
//   - Parallel: a worker pool, no ordering across tasks
//   - FromExecutor: whatever a caller-supplied Executor does
//
// Built-in instances are process-wide singletons created lazily on first
// use and never torn down (Main, NewThreadScheduler, SingleScheduler,
// ParallelScheduler). They are global on purpose: hosts embed one stream
// runtime per process. Library code should accept a Scheduler value
// instead of reaching for the singletons, so tests can inject their own.
//
// Caller-scoped pools built with NewSingle and NewParallel implement
// component.Component and can be stopped.
package scheduler
