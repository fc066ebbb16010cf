package flow

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
)

const tracerName = "github.com/kbukum/flowkit/flow"

type traceConfig struct {
	ctx     context.Context
	tracer  trace.Tracer
	metrics *observability.StreamMetrics
}

// TraceOption configures Trace.
type TraceOption func(*traceConfig)

// WithTracer sets the tracer. Defaults to the global provider's tracer.
func WithTracer(t trace.Tracer) TraceOption {
	return func(c *traceConfig) { c.tracer = t }
}

// WithParent sets the context that parents every subscription span.
func WithParent(ctx context.Context) TraceOption {
	return func(c *traceConfig) { c.ctx = ctx }
}

// WithStreamMetrics records subscription, item and terminal metrics.
func WithStreamMetrics(m *observability.StreamMetrics) TraceOption {
	return func(c *traceConfig) { c.metrics = m }
}

type tracePublisher[T any] struct {
	source Publisher[T]
	name   string
	cfg    traceConfig
}

// Trace opens one span per subscription to p, named name. The span carries
// a subscription id, the number of items delivered and the terminal status
// (completed, error or cancelled).
func Trace[T any](p Publisher[T], name string, opts ...TraceOption) Publisher[T] {
	cfg := traceConfig{ctx: context.Background()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tracer == nil {
		cfg.tracer = observability.Tracer(tracerName)
	}
	return &tracePublisher[T]{source: p, name: name, cfg: cfg}
}

func (p *tracePublisher[T]) Subscribe(s Subscriber[T]) {
	id := uuid.NewString()
	ctx, span := p.cfg.tracer.Start(p.cfg.ctx, p.name, trace.WithAttributes(
		attribute.String(observability.AttrStream, p.name),
		attribute.String(observability.AttrSubscriptionID, id),
	))
	p.cfg.metrics.RecordSubscribe(ctx, p.name)

	logger.Get("flow").Debug("subscribed", logger.Fields(
		"stream", p.name,
		logger.FieldSubscriptionID, id,
	))

	p.source.Subscribe(&traceSubscriber[T]{
		actual:  s,
		name:    p.name,
		id:      id,
		ctx:     ctx,
		span:    span,
		metrics: p.cfg.metrics,
		start:   time.Now(),
	})
}

type traceSubscriber[T any] struct {
	actual  Subscriber[T]
	name    string
	id      string
	ctx     context.Context
	span    trace.Span
	metrics *observability.StreamMetrics
	start   time.Time
	items   atomic.Int64
	endOnce sync.Once
}

func (t *traceSubscriber[T]) OnSubscribe(s Subscription) {
	t.actual.OnSubscribe(&traceSubscription[T]{Subscription: s, owner: t})
}

func (t *traceSubscriber[T]) OnNext(item T) {
	t.items.Add(1)
	t.metrics.RecordItem(t.ctx, t.name)
	t.actual.OnNext(item)
}

func (t *traceSubscriber[T]) OnError(err error) {
	t.end(observability.StatusError, err)
	t.actual.OnError(err)
}

func (t *traceSubscriber[T]) OnComplete() {
	t.end(observability.StatusCompleted, nil)
	t.actual.OnComplete()
}

func (t *traceSubscriber[T]) end(status string, err error) {
	t.endOnce.Do(func() {
		items := t.items.Load()
		t.span.SetAttributes(
			attribute.Int64(observability.AttrItems, items),
			attribute.String(observability.AttrStatus, status),
		)
		if err != nil {
			t.span.RecordError(err)
			t.span.SetStatus(codes.Error, err.Error())
		} else {
			t.span.SetStatus(codes.Ok, "")
		}
		t.span.End()
		t.metrics.RecordTerminal(t.ctx, t.name, status, time.Since(t.start))

		logger.Get("flow").Debug("terminated", logger.Fields(
			"stream", t.name,
			logger.FieldSubscriptionID, t.id,
			logger.FieldStatus, status,
			"items", items,
		))
	})
}

// traceSubscription ends the span when downstream cancels. It keeps the
// cancelled flag of the wrapped subscription visible to later stages.
type traceSubscription[T any] struct {
	Subscription
	owner *traceSubscriber[T]
}

func (s *traceSubscription[T]) Cancel() {
	s.Subscription.Cancel()
	s.owner.end(observability.StatusCancelled, nil)
}

func (s *traceSubscription[T]) IsCancelled() bool {
	return isCancelled(s.Subscription)
}
