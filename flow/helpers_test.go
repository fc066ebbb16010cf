package flow_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/flow"
)

const wait = 5 * time.Second

var errBoom = fmt.Errorf("boom")

// failOn emits 1..n and fails when it reaches bad.
func failOn(n, bad int, err error) flow.Publisher[int] {
	return flow.Map(flow.FromSlice(ints(n)), func(v int) (int, error) {
		if v == bad {
			return 0, err
		}
		return v, nil
	})
}

// counted wraps p and counts subscriptions.
func counted[T any](p flow.Publisher[T]) (flow.Publisher[T], *atomic.Int32) {
	var n atomic.Int32
	return flow.PublisherFunc[T](func(s flow.Subscriber[T]) {
		n.Add(1)
		p.Subscribe(s)
	}), &n
}

func ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// expectPanicCode runs f and checks it panics with an AppError of code.
func expectPanicCode(t *testing.T, code errors.ErrorCode, f func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic with %s", code)
		}
		err, ok := r.(error)
		if !ok || !errors.HasCode(err, code) {
			t.Fatalf("panic = %v, want code %s", r, code)
		}
	}()
	f()
}

// captureUncaught installs an uncaught handler for the test.
func captureUncaught(t *testing.T) <-chan error {
	t.Helper()
	ch := make(chan error, 16)
	flow.SetUncaughtHandler(func(err error) { ch <- err })
	t.Cleanup(func() { flow.SetUncaughtHandler(nil) })
	return ch
}

func ctxWithTimeout(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}
