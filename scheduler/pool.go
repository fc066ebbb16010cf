package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kbukum/flowkit/component"
	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
)

// Pool runs tasks on goroutines it owns. With a fixed number of workers
// tasks share one FIFO queue; a single worker therefore preserves
// submission order. With no worker limit every task gets its own
// goroutine.
type Pool struct {
	name    string
	workers int

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	stopped bool

	wg      sync.WaitGroup
	running atomic.Int64
	panics  atomic.Int64
}

var (
	_ Scheduler           = (*Pool)(nil)
	_ component.Component = (*Pool)(nil)
)

// NewSingle creates a pool with one worker goroutine. Tasks run serially in
// submission order.
func NewSingle(name string) *Pool {
	if name == "" {
		name = string(KindSingle)
	}
	return newPool(name, 1)
}

// NewParallel creates a pool sized by size: size <= 0 is unbounded (one
// goroutine per task), 1 degenerates to a single FIFO worker and larger
// values start that many workers. Ordering across tasks is not guaranteed
// unless size is 1.
func NewParallel(name string, size int) *Pool {
	if name == "" {
		name = string(KindParallel)
	}
	if size < 0 {
		size = 0
	}
	return newPool(name, size)
}

func newPool(name string, workers int) *Pool {
	p := &Pool{name: name, workers: workers}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	logger.Get("scheduler").Debug("scheduler started", logger.Fields(
		logger.FieldScheduler, name,
		"workers", workers,
	))
	return p
}

// Schedule enqueues task. Tasks submitted after Stop are dropped and
// logged.
func (p *Pool) Schedule(task func()) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		err := errors.SchedulerStopped(p.name)
		logger.Get("scheduler").Error("task dropped", logger.ErrorFields("schedule", err))
		return
	}
	if p.workers == 0 {
		p.wg.Add(1)
		p.mu.Unlock()
		go func() {
			defer p.wg.Done()
			p.run(task)
		}()
		return
	}
	p.queue = append(p.queue, task)
	p.mu.Unlock()
	p.cond.Signal()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	p.running.Add(1)
	defer p.running.Add(-1)
	runTask(p.name, &p.panics, task)
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Start reports whether the pool can accept work. Workers start at
// construction, so Start only fails after Stop.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return errors.SchedulerStopped(p.name)
	}
	return nil
}

// Stop refuses new tasks, lets queued tasks finish and waits for the
// workers until ctx is done.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.cond.Broadcast()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Get("scheduler").Debug("scheduler stopped", logger.Fields(logger.FieldScheduler, p.name))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health reports degraded once any task has panicked.
func (p *Pool) Health(ctx context.Context) component.Health {
	h := component.Health{Name: p.name, Status: component.StatusHealthy}
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	switch {
	case stopped:
		h.Status = component.StatusUnhealthy
		h.Message = "stopped"
	case p.panics.Load() > 0:
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("%d task(s) panicked", p.panics.Load())
	}
	return h
}

// Describe implements component.Describable.
func (p *Pool) Describe() component.Description {
	workers := fmt.Sprint(p.workers)
	if p.workers == 0 {
		workers = "unbounded"
	}
	return component.Description{
		Type:    "scheduler",
		Details: fmt.Sprintf("workers=%s queued=%d running=%d", workers, p.Pending(), p.running.Load()),
	}
}

// Pending returns the number of queued tasks not yet picked up by a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Panics returns the number of tasks that panicked.
func (p *Pool) Panics() int64 { return p.panics.Load() }
