package flow

import (
	"sync/atomic"
)

// emitter drives a pull-based source under the absolute request ceiling.
//
// Request and Cancel both enter the drain loop through the wip counter, so
// only one goroutine emits at a time and a Request made from inside OnNext
// raises the ceiling of the running loop instead of recursing.
type emitter[T any] struct {
	FlowSubscription
	actual Subscriber[T]

	// pull returns the next item, or ok == false once the source is exhausted.
	pull func() (item T, ok bool, err error)
	// release frees source resources. It runs once, on the drain goroutine.
	release func()
	// interrupt is called from Cancel to unblock a pull in progress.
	interrupt func()

	ceiling atomic.Int64
	wip     atomic.Int64
	done    atomic.Bool
	index   int64
}

func newEmitter[T any](actual Subscriber[T], pull func() (T, bool, error)) *emitter[T] {
	return &emitter[T]{actual: actual, pull: pull}
}

func (e *emitter[T]) Request(n int64) {
	if n <= 0 || e.done.Load() {
		return
	}
	for {
		cur := e.ceiling.Load()
		if n <= cur || e.ceiling.CompareAndSwap(cur, n) {
			break
		}
	}
	e.enter()
}

func (e *emitter[T]) Cancel() {
	e.FlowSubscription.Cancel()
	if e.interrupt != nil {
		e.interrupt()
	}
	e.enter()
}

func (e *emitter[T]) enter() {
	if e.wip.Add(1) == 1 {
		e.drain()
	}
}

func (e *emitter[T]) drain() {
	missed := int64(1)
	for {
		for {
			if e.IsCancelled() {
				e.finish()
				return
			}
			if e.index >= e.ceiling.Load() {
				break
			}

			item, ok, err := e.safePull()
			if err != nil {
				if e.IsCancelled() {
					e.finish()
					return
				}
				e.fail(err)
				return
			}
			if !ok {
				e.complete()
				return
			}

			e.index++
			if err := try(func() { e.actual.OnNext(item) }); err != nil {
				e.fail(err)
				return
			}
		}

		// Ceiling reached. Complete unless another Request or Cancel arrived
		// while we were emitting.
		if e.wip.Load() == missed {
			e.complete()
			return
		}
		missed = e.wip.Add(-missed)
	}
}

func (e *emitter[T]) safePull() (item T, ok bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = newPanicError(v)
		}
	}()
	return e.pull()
}

func (e *emitter[T]) finish() {
	e.done.Store(true)
	if e.release != nil {
		e.release()
	}
}

func (e *emitter[T]) complete() {
	e.finish()
	if e.IsCancelled() {
		return
	}
	if err := try(e.actual.OnComplete); err != nil {
		uncaught(err)
	}
}

func (e *emitter[T]) fail(err error) {
	e.FlowSubscription.Cancel()
	e.finish()
	if perr := try(func() { e.actual.OnError(err) }); perr != nil {
		uncaught(perr)
	}
}

// signal delivers a single terminal event on the first positive Request.
type signal[T any] struct {
	FlowSubscription
	actual Subscriber[T]
	err    error
	done   atomic.Bool
}

func (s *signal[T]) Request(n int64) {
	if n <= 0 || s.IsCancelled() || !s.done.CompareAndSwap(false, true) {
		return
	}
	var perr error
	if s.err != nil {
		perr = try(func() { s.actual.OnError(s.err) })
	} else {
		perr = try(s.actual.OnComplete)
	}
	if perr != nil {
		uncaught(perr)
	}
}
