package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/flow"
	"github.com/kbukum/flowkit/scheduler"
)

const placeholderName = "placeholder.png"

var errEnoughTicks = stderrors.New("enough ticks")

// Image is a decoded demo image.
type Image struct {
	Name    string
	Bytes   int
	Attempt int
	// Err is set on the placeholder substituted for a failed load.
	Err string
}

// loader pretends to decode images. Flaky names fail on their first
// attempt, broken names on every attempt.
type loader struct {
	delay  time.Duration
	flaky  map[string]bool
	broken map[string]bool

	mu       sync.Mutex
	attempts map[string]int
}

func newLoader(d DemoSettings) *loader {
	return &loader{
		delay:    d.LoadDelay,
		flaky:    toSet(d.Flaky),
		broken:   toSet(d.Broken),
		attempts: make(map[string]int),
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// Load blocks for the configured delay and returns the image.
func (l *loader) Load(name string) (Image, error) {
	l.mu.Lock()
	l.attempts[name]++
	attempt := l.attempts[name]
	l.mu.Unlock()

	time.Sleep(l.delay)

	switch {
	case l.broken[name]:
		return Image{}, errors.New(errors.ErrCodeIteratorFailed, "corrupt image").WithOp("load " + name)
	case l.flaky[name] && attempt == 1:
		return Image{}, errors.Timeout("load " + name)
	}
	return Image{Name: name, Bytes: 1024 * len(name), Attempt: attempt}, nil
}

// Attempts returns how many times name was loaded.
func (l *loader) Attempts(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts[name]
}

// loadChain decodes names on worker and delivers the images on main. A
// failed run is retried from the first name; once retries are exhausted a
// placeholder ends the stream.
func loadChain(l *loader, names []string, worker, main scheduler.Scheduler, retry flow.RetryConfig, opts ...flow.TraceOption) flow.Publisher[Image] {
	loaded := flow.Map(flow.Just(names...), l.Load)
	observed := flow.ObserveOn(flow.SubscribeOn(loaded, worker), main)
	retried := flow.RetryWith(flow.Trace(observed, "images.load", opts...), retry)
	return flow.ErrorReturn(retried, func(err error) (Image, error) {
		return Image{Name: placeholderName, Err: err.Error()}, nil
	})
}

// tickChain batches timer ticks produced on pool and delivers the batches
// on main.
func tickChain(interval time.Duration, batch int, pool, main scheduler.Scheduler, opts ...flow.TraceOption) flow.Publisher[[]int64] {
	ticks := flow.Trace(flow.Timer(interval, pool), "ticks", opts...)
	return flow.ObserveOn(flow.Buffer(ticks, batch), main)
}

// showImages prints every image of the load chain. Printing happens on
// the main loop.
func showImages(ctx context.Context, src flow.Publisher[Image], loop *scheduler.MainLoop, out io.Writer) (int, error) {
	shown := 0
	err := flow.ForEach(ctx, src, func(img Image) error {
		shown++
		if img.Err != "" {
			fmt.Fprintf(out, "  %-16s failed: %s (on loop: %v)\n", img.Name, img.Err, loop.OnLoop())
			return nil
		}
		fmt.Fprintf(out, "  %-16s %6d bytes, attempt %d (on loop: %v)\n", img.Name, img.Bytes, img.Attempt, loop.OnLoop())
		return nil
	})
	return shown, err
}

// showTicks prints up to limit batches, then cancels the ticker.
func showTicks(ctx context.Context, src flow.Publisher[[]int64], limit int, loop *scheduler.MainLoop, out io.Writer) (int, error) {
	shown := 0
	err := flow.ForEach(ctx, src, func(batch []int64) error {
		shown++
		fmt.Fprintf(out, "  ticks %v (on loop: %v)\n", batch, loop.OnLoop())
		if shown >= limit {
			return errEnoughTicks
		}
		return nil
	})
	if stderrors.Is(err, errEnoughTicks) {
		err = nil
	}
	return shown, err
}
