package flow

import (
	"sync/atomic"
)

// LambdaSubscriber composes up to three callbacks into a Subscriber that
// requests everything. It is also the Subscription handle returned by
// SubscribeFunc, so it can be cancelled before upstream has subscribed.
type LambdaSubscriber[T any] struct {
	FlowSubscription
	onNext     Consumer[T]
	onError    Consumer[error]
	onComplete Action
	upstream   upstreamRef
	done       atomic.Bool
}

var _ Subscription = (*LambdaSubscriber[int])(nil)

// NewLambdaSubscriber builds a LambdaSubscriber. Nil callbacks are no-ops,
// except a nil onError, which sends errors to the uncaught handler.
func NewLambdaSubscriber[T any](onNext Consumer[T], onError Consumer[error], onComplete Action) *LambdaSubscriber[T] {
	return &LambdaSubscriber[T]{onNext: onNext, onError: onError, onComplete: onComplete}
}

// SubscribeFunc subscribes the callbacks to p with unbounded demand and
// returns the handle used to cancel the run.
func SubscribeFunc[T any](p Publisher[T], onNext Consumer[T], onError Consumer[error], onComplete Action) Subscription {
	l := NewLambdaSubscriber(onNext, onError, onComplete)
	p.Subscribe(l)
	return l
}

func (l *LambdaSubscriber[T]) cancelled() bool {
	return l.IsCancelled() || isCancelled(l.upstream.get())
}

func (l *LambdaSubscriber[T]) OnSubscribe(s Subscription) {
	l.upstream.set(s)
	if l.IsCancelled() {
		s.Cancel()
		return
	}
	s.Request(Unbounded)
}

func (l *LambdaSubscriber[T]) OnNext(item T) {
	if l.onNext == nil || l.done.Load() || l.cancelled() {
		return
	}
	if err := try(func() { l.onNext(item) }); err != nil {
		l.Cancel()
		l.deliverError(err)
	}
}

func (l *LambdaSubscriber[T]) OnComplete() {
	if l.cancelled() || !l.done.CompareAndSwap(false, true) {
		return
	}
	if l.onComplete == nil {
		return
	}
	if err := try(l.onComplete); err != nil {
		uncaught(err)
	}
}

func (l *LambdaSubscriber[T]) OnError(err error) {
	if l.IsCancelled() {
		return
	}
	l.deliverError(err)
}

func (l *LambdaSubscriber[T]) deliverError(err error) {
	if !l.done.CompareAndSwap(false, true) {
		return
	}
	if l.onError == nil {
		uncaught(err)
		return
	}
	if perr := try(func() { l.onError(err) }); perr != nil {
		uncaught(perr)
	}
}

// Request forwards n upstream once subscribed.
func (l *LambdaSubscriber[T]) Request(n int64) {
	if s := l.upstream.get(); s != nil {
		s.Request(n)
	}
}

// Cancel stops the run. Cancelling before upstream subscribes cancels the
// subscription as soon as it arrives.
func (l *LambdaSubscriber[T]) Cancel() {
	l.FlowSubscription.Cancel()
	cancel(l.upstream.get())
}

// DemandSubscriber is an embeddable base for hand-written subscribers. It
// requests RequestCount items on subscribe (everything when zero), ignores
// terminal events and exposes CancelTask. Embedders override OnNext and
// whichever terminal callbacks they need.
type DemandSubscriber[T any] struct {
	RequestCount int64
	upstream     upstreamRef
}

func (d *DemandSubscriber[T]) OnSubscribe(s Subscription) {
	d.upstream.set(s)
	n := d.RequestCount
	if n <= 0 {
		n = Unbounded
	}
	s.Request(n)
}

func (d *DemandSubscriber[T]) OnNext(T) {}

func (d *DemandSubscriber[T]) OnError(error) {}

func (d *DemandSubscriber[T]) OnComplete() {}

// Subscription returns the upstream subscription, or nil before
// OnSubscribe.
func (d *DemandSubscriber[T]) Subscription() Subscription {
	return d.upstream.get()
}

// CancelTask cancels the upstream subscription if there is one.
func (d *DemandSubscriber[T]) CancelTask() {
	cancel(d.upstream.get())
}
