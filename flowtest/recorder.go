package flowtest

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/flowkit/flow"
)

// Option configures a Recorder.
type Option[T any] func(*Recorder[T])

// WithRequest sets the ceiling requested in OnSubscribe. Zero or a
// negative value requests nothing; the test calls Request itself.
func WithRequest[T any](n int64) Option[T] {
	return func(r *Recorder[T]) { r.request = n }
}

// WithOnSubscribe runs fn inside OnSubscribe, before the initial request.
func WithOnSubscribe[T any](fn func(r *Recorder[T], s flow.Subscription)) Option[T] {
	return func(r *Recorder[T]) { r.onSubscribe = fn }
}

// WithOnNext runs fn inside OnNext after the item is recorded.
func WithOnNext[T any](fn func(r *Recorder[T], item T)) Option[T] {
	return func(r *Recorder[T]) { r.onNext = fn }
}

// WithOnTerminal runs fn inside OnComplete and OnError after recording.
func WithOnTerminal[T any](fn func(r *Recorder[T])) Option[T] {
	return func(r *Recorder[T]) { r.onTerminal = fn }
}

// Recorder records the callbacks of one subscription.
type Recorder[T any] struct {
	request     int64
	onSubscribe func(*Recorder[T], flow.Subscription)
	onNext      func(*Recorder[T], T)
	onTerminal  func(*Recorder[T])

	mu          sync.Mutex
	sub         flow.Subscription
	subscribes  int
	items       []T
	errs        []error
	completions int
	violations  []string

	itemSignal chan struct{}
	done       chan struct{}
	doneOnce   sync.Once
}

// NewRecorder creates a recorder that requests flow.Unbounded unless
// configured otherwise.
func NewRecorder[T any](opts ...Option[T]) *Recorder[T] {
	r := &Recorder[T]{
		request:    flow.Unbounded,
		itemSignal: make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder[T]) OnSubscribe(s flow.Subscription) {
	r.mu.Lock()
	r.subscribes++
	if r.subscribes > 1 {
		r.violations = append(r.violations, "OnSubscribe called more than once")
	}
	r.sub = s
	r.mu.Unlock()

	if r.onSubscribe != nil {
		r.onSubscribe(r, s)
	}
	if r.request > 0 {
		s.Request(r.request)
	}
}

func (r *Recorder[T]) OnNext(item T) {
	r.mu.Lock()
	if r.subscribes == 0 {
		r.violations = append(r.violations, "OnNext before OnSubscribe")
	}
	if r.terminatedLocked() {
		r.violations = append(r.violations, fmt.Sprintf("OnNext(%v) after terminal event", item))
	}
	r.items = append(r.items, item)
	r.mu.Unlock()

	select {
	case r.itemSignal <- struct{}{}:
	default:
	}
	if r.onNext != nil {
		r.onNext(r, item)
	}
}

func (r *Recorder[T]) OnError(err error) {
	r.mu.Lock()
	if r.terminatedLocked() {
		r.violations = append(r.violations, fmt.Sprintf("OnError(%v) after terminal event", err))
	}
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.terminate()
}

func (r *Recorder[T]) OnComplete() {
	r.mu.Lock()
	if r.terminatedLocked() {
		r.violations = append(r.violations, "OnComplete after terminal event")
	}
	r.completions++
	r.mu.Unlock()
	r.terminate()
}

func (r *Recorder[T]) terminate() {
	if r.onTerminal != nil {
		r.onTerminal(r)
	}
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *Recorder[T]) terminatedLocked() bool {
	return len(r.errs) > 0 || r.completions > 0
}

// Subscription returns the subscription received in OnSubscribe.
func (r *Recorder[T]) Subscription() flow.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sub
}

// Request forwards n to the recorded subscription.
func (r *Recorder[T]) Request(n int64) {
	if s := r.Subscription(); s != nil {
		s.Request(n)
	}
}

// Cancel cancels the recorded subscription.
func (r *Recorder[T]) Cancel() {
	if s := r.Subscription(); s != nil {
		s.Cancel()
	}
}

// Items returns a copy of the items received so far.
func (r *Recorder[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.items...)
}

// Errors returns the errors received so far.
func (r *Recorder[T]) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// Completions returns how many times OnComplete was called.
func (r *Recorder[T]) Completions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completions
}

// Subscribes returns how many times OnSubscribe was called.
func (r *Recorder[T]) Subscribes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscribes
}

// Terminated reports whether a terminal event arrived.
func (r *Recorder[T]) Terminated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.terminatedLocked()
}

// Violations returns the protocol violations observed so far.
func (r *Recorder[T]) Violations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.violations...)
}

// Done is closed on the first terminal event.
func (r *Recorder[T]) Done() <-chan struct{} { return r.done }

// AwaitTerminal waits for a terminal event or fails the test.
func (r *Recorder[T]) AwaitTerminal(t testing.TB, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(timeout):
		t.Fatalf("no terminal event after %v (items=%d)", timeout, len(r.Items()))
	}
}

// AwaitItems waits until at least n items arrived or fails the test.
func (r *Recorder[T]) AwaitItems(t testing.TB, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if len(r.Items()) >= n {
			return
		}
		select {
		case <-r.itemSignal:
		case <-r.done:
			if got := len(r.Items()); got < n {
				t.Fatalf("terminated with %d items, want at least %d", got, n)
			}
			return
		case <-deadline.C:
			t.Fatalf("got %d items after %v, want at least %d", len(r.Items()), timeout, n)
		}
	}
}

// AssertValues checks the received items in order.
func (r *Recorder[T]) AssertValues(t testing.TB, want ...T) {
	t.Helper()
	got := r.Items()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
}

// AssertComplete checks for exactly one OnComplete, no OnError and no
// protocol violations.
func (r *Recorder[T]) AssertComplete(t testing.TB) {
	t.Helper()
	if c := r.Completions(); c != 1 {
		t.Errorf("OnComplete called %d times, want 1", c)
	}
	if errs := r.Errors(); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	r.AssertNoViolations(t)
}

// AssertError checks for exactly one OnError matching target, no
// OnComplete and no protocol violations. A nil target matches any error.
func (r *Recorder[T]) AssertError(t testing.TB, target error) {
	t.Helper()
	errs := r.Errors()
	if len(errs) != 1 {
		t.Fatalf("OnError called %d times, want 1: %v", len(errs), errs)
	}
	if target != nil && !errors.Is(errs[0], target) {
		t.Errorf("error = %v, want %v", errs[0], target)
	}
	if c := r.Completions(); c != 0 {
		t.Errorf("OnComplete called %d times, want 0", c)
	}
	r.AssertNoViolations(t)
}

// AssertNotTerminated checks that neither OnComplete nor OnError arrived.
func (r *Recorder[T]) AssertNotTerminated(t testing.TB) {
	t.Helper()
	if r.Terminated() {
		t.Errorf("unexpected terminal event: completions=%d errors=%v", r.Completions(), r.Errors())
	}
}

// AssertNoViolations checks the protocol was respected.
func (r *Recorder[T]) AssertNoViolations(t testing.TB) {
	t.Helper()
	for _, v := range r.Violations() {
		t.Errorf("protocol violation: %s", v)
	}
}
