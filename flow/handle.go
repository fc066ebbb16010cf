package flow

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/resilience"
	"github.com/kbukum/flowkit/scheduler"
)

// --- Retry ---

// RetryConfig configures RetryWith.
type RetryConfig struct {
	// Times is the number of resubscriptions allowed after the first attempt.
	Times int
	// RetryIf decides whether an error is worth another attempt.
	// Defaults to DefaultRetryIf.
	RetryIf func(error) bool
	// Backoff delays each resubscription. The zero value resubscribes at once.
	Backoff resilience.BackoffConfig
	// Scheduler runs the resubscription. Nil resubscribes on the goroutine
	// that delivered the error, or on the backoff timer goroutine.
	Scheduler scheduler.Scheduler
	// OnRetry is called before each resubscription.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryIf retries every error except context cancellation and
// invalid arguments.
func DefaultRetryIf(err error) bool {
	return resilience.DefaultRetryIf(err) && !errors.HasCode(err, errors.ErrCodeInvalidArgument)
}

// Retry resubscribes to p from scratch when it fails, up to times more
// attempts, then forwards the last error. Items delivered by a failed
// attempt are not deduplicated: downstream sees the retried prefix again.
//
// Each attempt gets its own intermediate subscriber. Downstream sees a
// single OnSubscribe and a stable Subscription whose ceiling is replayed on
// every new attempt. A failed attempt must not deliver callbacks after it
// has failed; sources that hand items to other goroutines without
// observing cancellation break that and are the caller's responsibility.
func Retry[T any](p Publisher[T], times int) Publisher[T] {
	if times <= 0 {
		panic(errors.InvalidArgument("flow.Retry", "times", "must be positive"))
	}
	return &retryPublisher[T]{
		source: p,
		cfg:    RetryConfig{Times: times, RetryIf: func(error) bool { return true }},
	}
}

// RetryWith is Retry with an error filter, backoff and a resubscription
// scheduler.
func RetryWith[T any](p Publisher[T], cfg RetryConfig) Publisher[T] {
	if cfg.Times <= 0 {
		panic(errors.InvalidArgument("flow.RetryWith", "times", "must be positive"))
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
	cfg.Backoff.ApplyDefaults()
	return &retryPublisher[T]{source: p, cfg: cfg}
}

type retryPublisher[T any] struct {
	source Publisher[T]
	cfg    RetryConfig
}

func (p *retryPublisher[T]) Subscribe(s Subscriber[T]) {
	run := &retryRun[T]{
		source:    p.source,
		actual:    s,
		cfg:       p.cfg,
		remaining: p.cfg.Times,
	}
	run.subscribeAttempt()
}

// retryRun is the downstream-facing side of a retried subscription. It
// outlives every attempt.
type retryRun[T any] struct {
	FlowSubscription
	source Publisher[T]
	actual Subscriber[T]
	cfg    RetryConfig

	mu         sync.Mutex
	current    Subscription
	ceiling    int64
	subscribed bool

	// owned by the attempt that is failing
	attempt   int
	remaining int
}

func (r *retryRun[T]) subscribeAttempt() {
	r.source.Subscribe(&retryAttempt[T]{run: r})
}

// attach makes s the live attempt. The first attempt hands the run to
// downstream; later ones replay the ceiling requested so far.
func (r *retryRun[T]) attach(s Subscription) {
	r.mu.Lock()
	r.current = s
	first := !r.subscribed
	r.subscribed = true
	ceiling := r.ceiling
	r.mu.Unlock()

	if first {
		r.actual.OnSubscribe(r)
		return
	}
	if r.IsCancelled() {
		s.Cancel()
		return
	}
	if ceiling > 0 {
		s.Request(ceiling)
	}
}

func (r *retryRun[T]) Request(n int64) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	if n > r.ceiling {
		r.ceiling = n
	}
	cur := r.current
	r.mu.Unlock()
	if cur != nil {
		cur.Request(n)
	}
}

func (r *retryRun[T]) Cancel() {
	r.FlowSubscription.Cancel()
	r.mu.Lock()
	cur := r.current
	r.mu.Unlock()
	cancel(cur)
}

func (r *retryRun[T]) retry(err error) {
	retryable := false
	if perr := try(func() { retryable = r.cfg.RetryIf(err) }); perr != nil {
		r.actual.OnError(perr)
		return
	}
	if r.remaining <= 0 || !retryable {
		r.actual.OnError(err)
		return
	}

	r.remaining--
	r.attempt++
	delay := r.cfg.Backoff.Delay(r.attempt)

	logger.Get("flow").Debug("resubscribing after error", logger.Fields(
		logger.FieldOperator, "retry",
		logger.FieldAttempt, r.attempt,
		"remaining", r.remaining,
		"delay", delay.String(),
		logger.FieldError, err,
	))
	if r.cfg.OnRetry != nil {
		r.cfg.OnRetry(r.attempt, err, delay)
	}

	resubscribe := func() {
		if r.IsCancelled() {
			return
		}
		r.subscribeAttempt()
	}

	switch {
	case delay > 0:
		time.AfterFunc(delay, func() {
			if r.cfg.Scheduler != nil {
				r.cfg.Scheduler.Schedule(resubscribe)
				return
			}
			resubscribe()
		})
	case r.cfg.Scheduler != nil:
		r.cfg.Scheduler.Schedule(resubscribe)
	default:
		resubscribe()
	}
}

// retryAttempt is the intermediate subscriber of one attempt.
type retryAttempt[T any] struct {
	run      *retryRun[T]
	upstream Subscription
	done     atomic.Bool
}

func (a *retryAttempt[T]) live() bool {
	return !a.done.Load() && !a.run.IsCancelled() && !isCancelled(a.upstream)
}

func (a *retryAttempt[T]) OnSubscribe(s Subscription) {
	a.upstream = s
	a.run.attach(s)
}

func (a *retryAttempt[T]) OnNext(item T) {
	if !a.live() {
		return
	}
	a.run.actual.OnNext(item)
}

func (a *retryAttempt[T]) OnComplete() {
	if !a.live() || !a.done.CompareAndSwap(false, true) {
		return
	}
	a.run.actual.OnComplete()
}

func (a *retryAttempt[T]) OnError(err error) {
	if a.run.IsCancelled() || !a.done.CompareAndSwap(false, true) {
		return
	}
	a.run.retry(err)
}

// --- ErrorReturn ---

type errorReturnPublisher[T any] struct {
	source Publisher[T]
	fn     Function[error, T]
}

// ErrorReturn turns a failure into one substitute item followed by
// OnComplete. If fn fails too, its error is forwarded with OnError and the
// upstream is cancelled. A nil fn returns p unchanged.
func ErrorReturn[T any](p Publisher[T], fn Function[error, T]) Publisher[T] {
	if fn == nil {
		return p
	}
	return &errorReturnPublisher[T]{source: p, fn: fn}
}

func (p *errorReturnPublisher[T]) Subscribe(s Subscriber[T]) {
	p.source.Subscribe(&errorReturnSubscriber[T]{actual: s, fn: p.fn})
}

// errorReturnSubscriber stands between upstream and downstream as both
// subscriber and subscription so downstream cancellation is visible here.
type errorReturnSubscriber[T any] struct {
	FlowSubscription
	stage
	actual Subscriber[T]
	fn     Function[error, T]
}

func (e *errorReturnSubscriber[T]) OnSubscribe(s Subscription) {
	e.upstream = s
	e.actual.OnSubscribe(e)
}

func (e *errorReturnSubscriber[T]) Request(n int64) {
	e.upstream.Request(n)
}

func (e *errorReturnSubscriber[T]) Cancel() {
	e.FlowSubscription.Cancel()
	cancel(e.upstream)
}

func (e *errorReturnSubscriber[T]) OnNext(item T) {
	if e.IsCancelled() || !e.live() {
		return
	}
	e.actual.OnNext(item)
}

func (e *errorReturnSubscriber[T]) OnComplete() {
	if e.IsCancelled() || isCancelled(e.upstream) || !e.finish() {
		return
	}
	e.actual.OnComplete()
}

func (e *errorReturnSubscriber[T]) OnError(err error) {
	if e.IsCancelled() || !e.finish() {
		return
	}
	fallback, ferr := apply(e.fn, err)
	if ferr != nil {
		e.Cancel()
		e.actual.OnError(ferr)
		return
	}
	e.actual.OnNext(fallback)
	if e.IsCancelled() {
		return
	}
	e.actual.OnComplete()
}
