package flowtest

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/flowkit/scheduler"
)

// Loop starts a MainLoop on its own goroutine and stops it when the test
// ends. Use loop.OnLoop() inside callbacks to assert where they ran.
func Loop(t testing.TB) *scheduler.MainLoop {
	t.Helper()
	loop := scheduler.NewMainLoop("test-loop")
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		// The first task proves Run owns the loop before the test proceeds.
		loop.Schedule(func() { close(started) })
		_ = loop.Run(ctx)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("main loop did not start")
	}

	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return loop
}

// Pool creates a parallel pool stopped when the test ends.
func Pool(t testing.TB, size int) *scheduler.Pool {
	t.Helper()
	p := scheduler.NewParallel("test-pool", size)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Stop(ctx); err != nil {
			t.Errorf("stopping test pool: %v", err)
		}
	})
	return p
}
