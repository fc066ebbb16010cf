package flow

import (
	"sync"
	"sync/atomic"

	"github.com/kbukum/flowkit/errors"
)

// stage holds the upstream subscription of an intermediate subscriber and
// whether the stage has already failed or terminated. done is atomic since
// a pool-backed ObserveOn upstream calls OnNext from several workers.
type stage struct {
	upstream Subscription
	done     atomic.Bool
}

// live reports whether the stage may still forward items.
func (s *stage) live() bool {
	return !s.done.Load() && !isCancelled(s.upstream)
}

// finish marks the stage terminated and reports whether this call did it.
func (s *stage) finish() bool {
	return s.done.CompareAndSwap(false, true)
}

// abort cancels upstream and marks the stage done. It reports false when
// the stage had already terminated.
func (s *stage) abort() bool {
	if !s.finish() {
		return false
	}
	cancel(s.upstream)
	return true
}

// --- Map ---

type mapPublisher[T, R any] struct {
	source Publisher[T]
	fn     Function[T, R]
}

// Map applies fn to every item. If fn fails the upstream is cancelled and
// the error is forwarded with OnError.
func Map[T, R any](p Publisher[T], fn Function[T, R]) Publisher[R] {
	if fn == nil {
		panic(errors.InvalidArgument("flow.Map", "fn", "must not be nil"))
	}
	return &mapPublisher[T, R]{source: p, fn: fn}
}

func (p *mapPublisher[T, R]) Subscribe(s Subscriber[R]) {
	p.source.Subscribe(&mapSubscriber[T, R]{actual: s, fn: p.fn})
}

type mapSubscriber[T, R any] struct {
	stage
	actual Subscriber[R]
	fn     Function[T, R]
}

func (m *mapSubscriber[T, R]) OnSubscribe(s Subscription) {
	m.upstream = s
	m.actual.OnSubscribe(s)
}

func (m *mapSubscriber[T, R]) OnNext(item T) {
	if !m.live() {
		return
	}
	r, err := apply(m.fn, item)
	if err != nil {
		if m.abort() {
			m.actual.OnError(err)
		}
		return
	}
	m.actual.OnNext(r)
}

func (m *mapSubscriber[T, R]) OnError(err error) {
	if !m.finish() {
		return
	}
	m.actual.OnError(err)
}

func (m *mapSubscriber[T, R]) OnComplete() {
	if isCancelled(m.upstream) || !m.finish() {
		return
	}
	m.actual.OnComplete()
}

// --- Select / Filter ---

type selectPublisher[T any] struct {
	source    Publisher[T]
	predicate Predicate[T]
}

// Select forwards only the items for which predicate holds. Dropped items
// are not re-requested. A nil predicate returns p unchanged.
func Select[T any](p Publisher[T], predicate Predicate[T]) Publisher[T] {
	if predicate == nil {
		return p
	}
	return &selectPublisher[T]{source: p, predicate: predicate}
}

// Filter is an alias of Select.
func Filter[T any](p Publisher[T], predicate Predicate[T]) Publisher[T] {
	return Select(p, predicate)
}

func (p *selectPublisher[T]) Subscribe(s Subscriber[T]) {
	p.source.Subscribe(&selectSubscriber[T]{actual: s, predicate: p.predicate})
}

type selectSubscriber[T any] struct {
	stage
	actual    Subscriber[T]
	predicate Predicate[T]
}

func (f *selectSubscriber[T]) OnSubscribe(s Subscription) {
	f.upstream = s
	f.actual.OnSubscribe(s)
}

func (f *selectSubscriber[T]) OnNext(item T) {
	if !f.live() {
		return
	}
	keep, err := apply(f.predicate, item)
	if err != nil {
		if f.abort() {
			f.actual.OnError(err)
		}
		return
	}
	if keep {
		f.actual.OnNext(item)
	}
}

func (f *selectSubscriber[T]) OnError(err error) {
	if !f.finish() {
		return
	}
	f.actual.OnError(err)
}

func (f *selectSubscriber[T]) OnComplete() {
	if isCancelled(f.upstream) || !f.finish() {
		return
	}
	f.actual.OnComplete()
}

// --- Buffer ---

type bufferPublisher[T any] struct {
	source Publisher[T]
	size   int
}

// Buffer groups items into batches of size. A batch is forwarded as soon as
// it is full; a partial batch is forwarded before OnComplete. The partial
// batch is dropped on error. size must be positive. Behind a pool-backed
// ObserveOn, batches hold items in arrival order rather than source order.
func Buffer[T any](p Publisher[T], size int) Publisher[[]T] {
	if size <= 0 {
		panic(errors.InvalidArgument("flow.Buffer", "size", "must be positive"))
	}
	return &bufferPublisher[T]{source: p, size: size}
}

func (p *bufferPublisher[T]) Subscribe(s Subscriber[[]T]) {
	p.source.Subscribe(&bufferSubscriber[T]{actual: s, size: p.size})
}

type bufferSubscriber[T any] struct {
	stage
	actual Subscriber[[]T]
	size   int

	mu    sync.Mutex
	batch []T
}

func (b *bufferSubscriber[T]) OnSubscribe(s Subscription) {
	b.upstream = s
	b.actual.OnSubscribe(s)
}

func (b *bufferSubscriber[T]) OnNext(item T) {
	if !b.live() {
		return
	}
	var full []T
	b.mu.Lock()
	if b.batch == nil {
		b.batch = make([]T, 0, b.size)
	}
	b.batch = append(b.batch, item)
	if len(b.batch) == b.size {
		full = b.batch
		b.batch = nil
	}
	b.mu.Unlock()
	if full != nil {
		b.actual.OnNext(full)
	}
}

// take removes and returns the partial batch.
func (b *bufferSubscriber[T]) take() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	rest := b.batch
	b.batch = nil
	return rest
}

func (b *bufferSubscriber[T]) OnError(err error) {
	if !b.finish() {
		return
	}
	b.take()
	b.actual.OnError(err)
}

func (b *bufferSubscriber[T]) OnComplete() {
	if isCancelled(b.upstream) || !b.finish() {
		return
	}
	if rest := b.take(); len(rest) > 0 {
		b.actual.OnNext(rest)
		if isCancelled(b.upstream) {
			return
		}
	}
	b.actual.OnComplete()
}

// --- Tap ---

type tapPublisher[T any] struct {
	source Publisher[T]
	fn     func(T) error
}

// Tap calls fn for every item as a side effect and forwards the item
// unchanged. A failing fn is handled like a failing Map function. A nil fn
// returns p unchanged.
func Tap[T any](p Publisher[T], fn func(T) error) Publisher[T] {
	if fn == nil {
		return p
	}
	return &tapPublisher[T]{source: p, fn: fn}
}

func (p *tapPublisher[T]) Subscribe(s Subscriber[T]) {
	p.source.Subscribe(&mapSubscriber[T, T]{
		actual: s,
		fn: func(item T) (T, error) {
			return item, p.fn(item)
		},
	})
}
