package flow

import (
	"sync/atomic"

	"github.com/kbukum/flowkit/scheduler"
)

// --- SubscribeOn ---

type subscribeOnPublisher[T any] struct {
	source    Publisher[T]
	scheduler scheduler.Scheduler
}

// SubscribeOn subscribes to p from a task on s, so OnSubscribe and the
// whole upstream production loop run where s runs them. A nil scheduler
// returns p unchanged.
func SubscribeOn[T any](p Publisher[T], s scheduler.Scheduler) Publisher[T] {
	if s == nil {
		return p
	}
	return &subscribeOnPublisher[T]{source: p, scheduler: s}
}

func (p *subscribeOnPublisher[T]) Subscribe(s Subscriber[T]) {
	p.scheduler.Schedule(func() {
		p.source.Subscribe(s)
	})
}

// --- ObserveOn ---

type observeOnPublisher[T any] struct {
	source    Publisher[T]
	scheduler scheduler.Scheduler
}

// ObserveOn delivers OnNext, OnComplete and OnError to downstream as
// individual tasks on s. OnSubscribe still runs on the subscribing
// goroutine. On a pool scheduler consecutive OnNext events may run
// concurrently and out of order. A terminal event is scheduled only after
// every OnNext task already handed to s has finished. A nil scheduler
// returns p unchanged.
func ObserveOn[T any](p Publisher[T], s scheduler.Scheduler) Publisher[T] {
	if s == nil {
		return p
	}
	return &observeOnPublisher[T]{source: p, scheduler: s}
}

func (p *observeOnPublisher[T]) Subscribe(s Subscriber[T]) {
	o := &observeOnSubscriber[T]{actual: s, scheduler: p.scheduler}
	o.pending.Store(1)
	p.source.Subscribe(o)
}

type observeOnSubscriber[T any] struct {
	actual    Subscriber[T]
	scheduler scheduler.Scheduler
	upstream  upstreamRef

	// pending counts OnNext tasks in flight plus one while upstream is open.
	pending    atomic.Int64
	err        error
	terminated atomic.Bool
}

func (o *observeOnSubscriber[T]) cancelled() bool {
	return isCancelled(o.upstream.get())
}

func (o *observeOnSubscriber[T]) OnSubscribe(s Subscription) {
	o.upstream.set(s)
	o.actual.OnSubscribe(s)
}

func (o *observeOnSubscriber[T]) OnNext(item T) {
	if o.cancelled() {
		return
	}
	o.pending.Add(1)
	o.scheduler.Schedule(func() {
		defer o.release()
		if o.cancelled() {
			return
		}
		if err := try(func() { o.actual.OnNext(item) }); err != nil {
			cancel(o.upstream.get())
			o.fail(err)
		}
	})
}

func (o *observeOnSubscriber[T]) OnComplete() {
	o.release()
}

func (o *observeOnSubscriber[T]) OnError(err error) {
	o.err = err
	o.release()
}

// release drops one pending reference and schedules the upstream terminal
// event once nothing is left in flight.
func (o *observeOnSubscriber[T]) release() {
	if o.pending.Add(-1) != 0 {
		return
	}
	if o.err != nil {
		o.fail(o.err)
		return
	}
	if !o.terminated.CompareAndSwap(false, true) {
		return
	}
	o.scheduler.Schedule(func() {
		if o.cancelled() {
			return
		}
		o.actual.OnComplete()
	})
}

func (o *observeOnSubscriber[T]) fail(err error) {
	if !o.terminated.CompareAndSwap(false, true) {
		return
	}
	o.scheduler.Schedule(func() {
		o.actual.OnError(err)
	})
}
