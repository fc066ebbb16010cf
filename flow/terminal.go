package flow

import (
	"context"
	"sync"
)

// ForEach subscribes to p with unbounded demand, calls fn for every item
// and blocks until the run terminates. An error from fn cancels the run and
// is returned. If ctx is done first the run is cancelled and ctx.Err() is
// returned.
//
// Sources without a scheduler run on the calling goroutine, so calling
// ForEach from a MainLoop task on a stream that observes on the same loop
// deadlocks.
func ForEach[T any](ctx context.Context, p Publisher[T], fn func(T) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sub := &blockingSubscriber[T]{fn: fn, done: make(chan error, 1)}
	stop := context.AfterFunc(ctx, sub.Cancel)
	defer stop()

	p.Subscribe(sub)

	select {
	case err := <-sub.done:
		// A run cancelled through ctx may still terminate before we notice.
		if cerr := ctx.Err(); cerr != nil && sub.IsCancelled() && err == nil {
			return cerr
		}
		return err
	case <-ctx.Done():
		sub.Cancel()
		return ctx.Err()
	}
}

// Collect gathers every item of p. On a stream error it returns the items
// received before the failure together with the error.
func Collect[T any](ctx context.Context, p Publisher[T]) ([]T, error) {
	var items []T
	err := ForEach(ctx, p, func(item T) error {
		items = append(items, item)
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return nil, err
	}
	return items, err
}

type blockingSubscriber[T any] struct {
	FlowSubscription
	fn       func(T) error
	upstream upstreamRef
	done     chan error
	once     sync.Once
}

func (b *blockingSubscriber[T]) OnSubscribe(s Subscription) {
	b.upstream.set(s)
	if b.IsCancelled() {
		s.Cancel()
		return
	}
	s.Request(Unbounded)
}

func (b *blockingSubscriber[T]) OnNext(item T) {
	if b.IsCancelled() {
		return
	}
	if err := callErr(b.fn, item); err != nil {
		b.Cancel()
		b.finish(err)
	}
}

func (b *blockingSubscriber[T]) OnError(err error) { b.finish(err) }

func (b *blockingSubscriber[T]) OnComplete() { b.finish(nil) }

func (b *blockingSubscriber[T]) Request(n int64) {
	if s := b.upstream.get(); s != nil {
		s.Request(n)
	}
}

func (b *blockingSubscriber[T]) Cancel() {
	b.FlowSubscription.Cancel()
	cancel(b.upstream.get())
}

func (b *blockingSubscriber[T]) finish(err error) {
	b.once.Do(func() { b.done <- err })
}

func callErr[T any](fn func(T) error, v T) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = newPanicError(p)
		}
	}()
	return fn(v)
}
