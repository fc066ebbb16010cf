package flow_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/flowkit/flow"
	"github.com/kbukum/flowkit/flowtest"
	"github.com/kbukum/flowkit/observability"
)

func newTracer(t *testing.T) (*tracetest.SpanRecorder, flow.TraceOption) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, flow.WithTracer(tp.Tracer("flow-test"))
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func onlySpan(t *testing.T, sr *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended %d spans, want 1", len(spans))
	}
	return spans[0]
}

func TestTraceCompleted(t *testing.T) {
	sr, opt := newTracer(t)
	r := flowtest.NewRecorder[int]()
	flow.Trace(flow.Just(1, 2, 3), "numbers", opt).Subscribe(r)

	r.AssertValues(t, 1, 2, 3)
	r.AssertComplete(t)

	span := onlySpan(t, sr)
	if span.Name() != "numbers" {
		t.Errorf("span name = %q", span.Name())
	}
	a := attrs(span)
	if got := a[observability.AttrItems].AsInt64(); got != 3 {
		t.Errorf("items = %d, want 3", got)
	}
	if got := a[observability.AttrStatus].AsString(); got != observability.StatusCompleted {
		t.Errorf("status = %q", got)
	}
	if got := a[observability.AttrStream].AsString(); got != "numbers" {
		t.Errorf("stream = %q", got)
	}
	if _, err := uuid.Parse(a[observability.AttrSubscriptionID].AsString()); err != nil {
		t.Errorf("subscription id: %v", err)
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("span status = %v", span.Status())
	}
}

func TestTraceError(t *testing.T) {
	sr, opt := newTracer(t)
	r := flowtest.NewRecorder[int]()
	flow.Trace(failOn(3, 2, errBoom), "failing", opt).Subscribe(r)
	r.AssertError(t, errBoom)

	span := onlySpan(t, sr)
	if span.Status().Code != codes.Error || span.Status().Description != errBoom.Error() {
		t.Errorf("span status = %v", span.Status())
	}
	a := attrs(span)
	if a[observability.AttrStatus].AsString() != observability.StatusError || a[observability.AttrItems].AsInt64() != 1 {
		t.Errorf("attributes = %v", a)
	}
	if len(span.Events()) == 0 {
		t.Error("error was not recorded on the span")
	}
}

func TestTraceCancelled(t *testing.T) {
	sr, opt := newTracer(t)
	r := flowtest.NewRecorder[int](flowtest.WithOnNext(func(r *flowtest.Recorder[int], v int) {
		if v == 2 {
			r.Cancel()
		}
	}))
	flow.Trace(flow.FromSlice(ints(5)), "cancelled", opt).Subscribe(r)

	r.AssertValues(t, 1, 2)
	r.AssertNotTerminated(t)
	if got := attrs(onlySpan(t, sr))[observability.AttrStatus].AsString(); got != observability.StatusCancelled {
		t.Errorf("status = %q", got)
	}
}

func TestTraceSpanPerSubscription(t *testing.T) {
	sr, opt := newTracer(t)
	p := flow.Trace(flow.Just("x"), "reused", opt)
	for range 3 {
		p.Subscribe(flowtest.NewRecorder[string]())
	}

	spans := sr.Ended()
	if len(spans) != 3 {
		t.Fatalf("ended %d spans, want 3", len(spans))
	}
	ids := make(map[string]bool)
	for _, s := range spans {
		ids[attrs(s)[observability.AttrSubscriptionID].AsString()] = true
	}
	if len(ids) != 3 {
		t.Errorf("subscription ids are not unique: %v", ids)
	}
}

func TestTraceParent(t *testing.T) {
	sr, opt := newTracer(t)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	ctx, parent := tp.Tracer("parent").Start(context.Background(), "request")

	flow.Trace(flow.Just(1), "child", opt, flow.WithParent(ctx)).Subscribe(flowtest.NewRecorder[int]())
	parent.End()

	for _, s := range sr.Ended() {
		if s.Name() == "child" && s.Parent().SpanID() != parent.SpanContext().SpanID() {
			t.Errorf("child parent = %v, want %v", s.Parent().SpanID(), parent.SpanContext().SpanID())
		}
	}
}

func TestTraceStreamMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observability.NewStreamMetrics(mp.Meter("flow-test"))
	if err != nil {
		t.Fatalf("NewStreamMetrics: %v", err)
	}
	_, opt := newTracer(t)

	p := flow.Trace(flow.Just(1, 2, 3), "metered", opt, flow.WithStreamMetrics(m))
	p.Subscribe(flowtest.NewRecorder[int]())
	p.Subscribe(flowtest.NewRecorder[int]())

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if sum, ok := metric.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[metric.Name] += dp.Value
				}
			}
		}
	}

	want := map[string]int64{
		"flow.subscriptions":        2,
		"flow.subscriptions.active": 0,
		"flow.items":                6,
		"flow.terminals":            2,
	}
	for name, v := range want {
		if sums[name] != v {
			t.Errorf("%s = %d, want %d", name, sums[name], v)
		}
	}
}
