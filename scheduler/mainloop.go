package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
)

// MainLoop is an event loop owned by the host application. The host
// calls Run on the goroutine it designates as "main"; tasks scheduled
// from that goroutine run inline, tasks scheduled from anywhere else are
// queued and run by Run in submission order.
type MainLoop struct {
	name   string
	mu     sync.Mutex
	queue  []func()
	signal chan struct{}
	owner  atomic.Uint64
	panics atomic.Int64
}

// NewMainLoop creates an idle loop. Nothing runs until Run is called.
func NewMainLoop(name string) *MainLoop {
	if name == "" {
		name = string(KindMain)
	}
	return &MainLoop{
		name:   name,
		signal: make(chan struct{}, 1),
	}
}

// Name returns the loop name used in logs and metrics.
func (l *MainLoop) Name() string { return l.name }

// Schedule runs task inline when called from the loop goroutine, otherwise
// posts it to the loop queue.
func (l *MainLoop) Schedule(task func()) {
	if l.OnLoop() {
		runTask(l.name, &l.panics, task)
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// OnLoop reports whether the caller is running on the loop goroutine.
func (l *MainLoop) OnLoop() bool {
	owner := l.owner.Load()
	return owner != 0 && owner == curGoroutineID()
}

// Run drains queued tasks on the calling goroutine until ctx is done.
// Only one goroutine may run the loop at a time.
func (l *MainLoop) Run(ctx context.Context) error {
	id := curGoroutineID()
	if !l.owner.CompareAndSwap(0, id) {
		return errors.New(errors.ErrCodeInvalidArgument, "main loop is already running").WithOp(l.name)
	}
	defer l.owner.Store(0)

	log := logger.Get("scheduler")
	log.Debug("main loop started", logger.Fields(logger.FieldScheduler, l.name))
	defer log.Debug("main loop stopped", logger.Fields(logger.FieldScheduler, l.name))

	for {
		l.drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.signal:
		}
	}
}

// RunPending runs the tasks queued so far on the calling goroutine, treating
// it as the loop goroutine for the duration, and returns how many ran.
// Hosts with their own event loop call it once per frame.
func (l *MainLoop) RunPending() int {
	id := curGoroutineID()
	if !l.owner.CompareAndSwap(0, id) {
		if l.owner.Load() != id {
			return 0
		}
		return l.drain()
	}
	defer l.owner.Store(0)
	return l.drain()
}

// Pending returns the number of queued tasks.
func (l *MainLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Panics returns the number of tasks that panicked on this loop.
func (l *MainLoop) Panics() int64 { return l.panics.Load() }

func (l *MainLoop) drain() int {
	ran := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return ran
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		runTask(l.name, &l.panics, task)
		ran++
	}
}
