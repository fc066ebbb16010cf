package flow

import (
	"math"
	"sync/atomic"
)

// Unbounded requests every item a source can produce.
const Unbounded int64 = math.MaxInt64

// Publisher produces items for each Subscriber that subscribes to it.
type Publisher[T any] interface {
	Subscribe(s Subscriber[T])
}

// PublisherFunc adapts a plain function to the Publisher interface.
type PublisherFunc[T any] func(s Subscriber[T])

// Subscribe calls f(s).
func (f PublisherFunc[T]) Subscribe(s Subscriber[T]) { f(s) }

// Subscriber consumes the items of one subscription.
//
// OnSubscribe is called exactly once, before anything else. OnNext is
// called zero or more times, followed by at most one of OnError or
// OnComplete.
type Subscriber[T any] interface {
	OnSubscribe(s Subscription)
	OnNext(item T)
	OnError(err error)
	OnComplete()
}

// Subscription is the per-run handle for demand and cancellation.
type Subscription interface {
	// Request raises the emission ceiling to n. See the package docs.
	Request(n int64)
	// Cancel asks the producer to stop. It is safe to call from any
	// goroutine and more than once.
	Cancel()
}

// Cancellable is a Subscription whose cancelled flag can be observed.
type Cancellable interface {
	Subscription
	IsCancelled() bool
}

// FlowSubscription carries the atomic cancelled flag shared by producers
// and intermediate stages. Embed it to get Cancel and IsCancelled.
type FlowSubscription struct {
	cancelled atomic.Bool
}

// Cancel sets the cancelled flag.
func (s *FlowSubscription) Cancel() { s.cancelled.Store(true) }

// IsCancelled reports whether Cancel has been called.
func (s *FlowSubscription) IsCancelled() bool { return s.cancelled.Load() }

// isCancelled reports whether s is known to be cancelled. Subscriptions
// that do not expose their flag are assumed live.
func isCancelled(s Subscription) bool {
	if c, ok := s.(Cancellable); ok {
		return c.IsCancelled()
	}
	return false
}

// cancel cancels s if it is set.
func cancel(s Subscription) {
	if s != nil {
		s.Cancel()
	}
}

// Subscribe subscribes s to p. It exists so call sites read left to right
// in the same style as the other package functions.
func Subscribe[T any](p Publisher[T], s Subscriber[T]) {
	p.Subscribe(s)
}

// upstreamRef holds a subscription that is set in OnSubscribe and read
// from other goroutines.
type upstreamRef struct {
	p atomic.Pointer[Subscription]
}

func (r *upstreamRef) set(s Subscription) { r.p.Store(&s) }

func (r *upstreamRef) get() Subscription {
	if p := r.p.Load(); p != nil {
		return *p
	}
	return nil
}
