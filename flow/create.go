package flow

import (
	"context"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/scheduler"
)

// --- Empty / Error ---

type emptyPublisher[T any] struct{}

// Empty completes on the first Request without emitting.
func Empty[T any]() Publisher[T] { return emptyPublisher[T]{} }

func (emptyPublisher[T]) Subscribe(s Subscriber[T]) {
	s.OnSubscribe(&signal[T]{actual: s})
}

type errorPublisher[T any] struct {
	err error
}

// Error fails with err on the first Request without emitting.
func Error[T any](err error) Publisher[T] { return &errorPublisher[T]{err: err} }

func (p *errorPublisher[T]) Subscribe(s Subscriber[T]) {
	s.OnSubscribe(&signal[T]{actual: s, err: p.err})
}

// --- Slice ---

type slicePublisher[T any] struct {
	items []T
}

// Just emits items in order, then completes.
func Just[T any](items ...T) Publisher[T] {
	return FromSlice(items)
}

// FromSlice emits a copy of items in order, then completes. An empty slice
// is Empty.
func FromSlice[T any](items []T) Publisher[T] {
	if len(items) == 0 {
		return Empty[T]()
	}
	return &slicePublisher[T]{items: slices.Clone(items)}
}

func (p *slicePublisher[T]) Subscribe(s Subscriber[T]) {
	i := 0
	s.OnSubscribe(newEmitter(s, func() (T, bool, error) {
		if i == len(p.items) {
			var zero T
			return zero, false, nil
		}
		item := p.items[i]
		i++
		return item, true, nil
	}))
}

// --- Iterables ---

type seqPublisher[T any] struct {
	seq iter.Seq[T]
}

// FromSeq emits the values of seq. The sequence is pulled lazily and
// stopped as soon as the run ends. A nil seq is Empty.
func FromSeq[T any](seq iter.Seq[T]) Publisher[T] {
	if seq == nil {
		return Empty[T]()
	}
	return &seqPublisher[T]{seq: seq}
}

func (p *seqPublisher[T]) Subscribe(s Subscriber[T]) {
	var (
		next func() (T, bool)
		stop func()
	)
	e := newEmitter(s, func() (T, bool, error) {
		if next == nil {
			next, stop = iter.Pull(p.seq)
		}
		v, ok := next()
		return v, ok, nil
	})
	e.release = func() {
		if stop != nil {
			stop()
		}
	}
	s.OnSubscribe(e)
}

// Iterator provides pull-based sequential access to an external source.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// Iterable yields a fresh Iterator for every subscription.
type Iterable[T any] interface {
	Iterator() Iterator[T]
}

// IterableFunc adapts a plain function to the Iterable interface.
type IterableFunc[T any] func() Iterator[T]

// Iterator calls f().
func (f IterableFunc[T]) Iterator() Iterator[T] { return f() }

type iterablePublisher[T any] struct {
	source Iterable[T]
}

// FromIterable emits the values of a fresh iterator per subscription.
// The context passed to Next is cancelled when the subscription is, and the
// iterator is closed once the run ends. A nil source is Empty.
func FromIterable[T any](source Iterable[T]) Publisher[T] {
	if source == nil {
		return Empty[T]()
	}
	return &iterablePublisher[T]{source: source}
}

func (p *iterablePublisher[T]) Subscribe(s Subscriber[T]) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	var it Iterator[T]

	e := newEmitter(s, func() (T, bool, error) {
		if it == nil {
			it = p.source.Iterator()
			if it == nil {
				var zero T
				return zero, false, nil
			}
		}
		v, ok, err := it.Next(ctx)
		if err != nil {
			return v, false, errors.IteratorFailed("flow.FromIterable", err)
		}
		return v, ok, nil
	})
	e.interrupt = cancelCtx
	e.release = func() {
		cancelCtx()
		if it == nil {
			return
		}
		if err := it.Close(); err != nil {
			logger.Get("flow").Warn("iterator close failed", logger.ErrorFields("flow.FromIterable", err))
		}
	}
	s.OnSubscribe(e)
}

// --- Timer ---

type timerPublisher struct {
	interval  time.Duration
	scheduler scheduler.Scheduler
}

// Timer emits 0, 1, 2, ... spaced by interval, blocking the goroutine that
// runs the emission loop between items. With a scheduler the loop runs as a
// task on it; with nil it runs on whichever goroutine calls Request.
//
// The loop stops when the emission index reaches the requested ceiling or
// the subscription is cancelled. It delivers OnComplete only when it exits
// in the cancelled state; reaching the ceiling leaves the run idle until a
// higher Request resumes it.
func Timer(interval time.Duration, s scheduler.Scheduler) Publisher[int64] {
	if interval <= 0 {
		panic(errors.InvalidArgument("flow.Timer", "interval", "must be positive"))
	}
	return &timerPublisher{interval: interval, scheduler: s}
}

func (p *timerPublisher) Subscribe(s Subscriber[int64]) {
	s.OnSubscribe(&timerSubscription{
		actual:    s,
		interval:  p.interval,
		scheduler: p.scheduler,
		stop:      make(chan struct{}),
	})
}

type timerSubscription struct {
	FlowSubscription
	actual    Subscriber[int64]
	interval  time.Duration
	scheduler scheduler.Scheduler

	ceiling  atomic.Int64
	wip      atomic.Int64
	done     atomic.Bool
	index    int64
	stop     chan struct{}
	stopOnce sync.Once
}

func (t *timerSubscription) Request(n int64) {
	if n <= 0 || t.done.Load() {
		return
	}
	for {
		cur := t.ceiling.Load()
		if n <= cur || t.ceiling.CompareAndSwap(cur, n) {
			break
		}
	}
	if t.wip.Add(1) != 1 {
		return
	}
	if t.scheduler != nil {
		t.scheduler.Schedule(t.drain)
		return
	}
	t.drain()
}

func (t *timerSubscription) Cancel() {
	t.FlowSubscription.Cancel()
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *timerSubscription) drain() {
	missed := int64(1)
	for {
		for !t.IsCancelled() && t.index < t.ceiling.Load() {
			tick := t.index
			t.index++
			if err := try(func() { t.actual.OnNext(tick) }); err != nil {
				t.done.Store(true)
				t.Cancel()
				if perr := try(func() { t.actual.OnError(err) }); perr != nil {
					uncaught(perr)
				}
				return
			}
			t.wait()
		}

		if t.IsCancelled() {
			t.done.Store(true)
			if err := try(t.actual.OnComplete); err != nil {
				uncaught(err)
			}
			return
		}

		missed = t.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

func (t *timerSubscription) wait() {
	timer := time.NewTimer(t.interval)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-t.stop:
	}
}
