package flow_test

import (
	"fmt"
	"testing"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/flow"
	"github.com/kbukum/flowkit/flowtest"
)

func TestMap(t *testing.T) {
	t.Run("constant", func(t *testing.T) {
		r := flowtest.NewRecorder[string]()
		flow.Map(flow.Just(1, 2, 3), func(int) (string, error) { return "a", nil }).Subscribe(r)

		r.AssertValues(t, "a", "a", "a")
		r.AssertComplete(t)
	})

	t.Run("format", func(t *testing.T) {
		r := flowtest.NewRecorder[string]()
		flow.Map(flow.Just(1, 2), func(v int) (string, error) { return fmt.Sprintf("#%d", v), nil }).Subscribe(r)
		r.AssertValues(t, "#1", "#2")
		r.AssertComplete(t)
	})

	t.Run("function error cancels upstream", func(t *testing.T) {
		src, subs := counted(flow.Just(1, 2, 3))
		var seen []int
		r := flowtest.NewRecorder[int]()
		flow.Map(src, func(v int) (int, error) {
			seen = append(seen, v)
			if v == 2 {
				return 0, errBoom
			}
			return v * 10, nil
		}).Subscribe(r)

		r.AssertValues(t, 10)
		r.AssertError(t, errBoom)
		if len(seen) != 2 {
			t.Errorf("fn saw %v after failing", seen)
		}
		if subs.Load() != 1 {
			t.Errorf("subscribed %d times", subs.Load())
		}
	})

	t.Run("function panic", func(t *testing.T) {
		r := flowtest.NewRecorder[int]()
		flow.Map(flow.Just(1), func(int) (int, error) { panic("oops") }).Subscribe(r)
		r.AssertError(t, errors.New(errors.ErrCodePanic, ""))
	})

	t.Run("upstream error passes through", func(t *testing.T) {
		r := flowtest.NewRecorder[int]()
		flow.Map(flow.Error[int](errBoom), func(v int) (int, error) { return v, nil }).Subscribe(r)
		r.AssertError(t, errBoom)
	})

	t.Run("nil function", func(t *testing.T) {
		expectPanicCode(t, errors.ErrCodeInvalidArgument, func() {
			flow.Map[int, int](flow.Just(1), nil)
		})
	})
}

func TestBuffer(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
		want [][]int
	}{
		{"partial tail", 8, 3, [][]int{{1, 2, 3}, {4, 5, 6}, {7, 8}}},
		{"exact fit", 4, 2, [][]int{{1, 2}, {3, 4}}},
		{"single batch", 2, 5, [][]int{{1, 2}}},
		{"size one", 3, 1, [][]int{{1}, {2}, {3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := flowtest.NewRecorder[[]int]()
			flow.Buffer(flow.FromSlice(ints(tt.n)), tt.size).Subscribe(r)

			r.AssertValues(t, tt.want...)
			r.AssertComplete(t)
		})
	}
}

func TestBufferAfterParallelObserveOn(t *testing.T) {
	pool := flowtest.Pool(t, 8)
	for run := range 20 {
		r := flowtest.NewRecorder[[]int]()
		flow.Buffer(flow.ObserveOn(flow.FromSlice(ints(2000)), pool), 10).Subscribe(r)
		r.AwaitTerminal(t, wait)
		r.AssertComplete(t)
		r.AssertNoViolations(t)

		seen := make(map[int]bool, 2000)
		batches := r.Items()
		for _, b := range batches {
			if len(b) != 10 {
				t.Fatalf("run %d: batch of %d items, want 10", run, len(b))
			}
			for _, v := range b {
				if seen[v] {
					t.Fatalf("run %d: item %d delivered twice", run, v)
				}
				seen[v] = true
			}
		}
		if len(batches) != 200 || len(seen) != 2000 {
			t.Fatalf("run %d: %d items in %d batches, want 2000 in 200", run, len(seen), len(batches))
		}
	}
}

func TestBufferEmptySource(t *testing.T) {
	r := flowtest.NewRecorder[[]int]()
	flow.Buffer(flow.Empty[int](), 3).Subscribe(r)
	r.AssertValues(t)
	r.AssertComplete(t)
}

func TestBufferDropsPartialBatchOnError(t *testing.T) {
	r := flowtest.NewRecorder[[]int]()
	flow.Buffer(failOn(5, 5, errBoom), 3).Subscribe(r)

	r.AssertValues(t, []int{1, 2, 3})
	r.AssertError(t, errBoom)
}

func TestBufferBatchesAreIndependent(t *testing.T) {
	r := flowtest.NewRecorder[[]int]()
	flow.Buffer(flow.FromSlice(ints(4)), 2).Subscribe(r)

	items := r.Items()
	items[0][0] = 99
	if items[1][0] != 3 {
		t.Errorf("batches share storage: %v", items)
	}
}

func TestBufferInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		expectPanicCode(t, errors.ErrCodeInvalidArgument, func() {
			flow.Buffer(flow.Just(1), size)
		})
	}
}

func TestSelect(t *testing.T) {
	t.Run("keeps matching items", func(t *testing.T) {
		r := flowtest.NewRecorder[int]()
		flow.Select(flow.Just(1, 2, 3), func(v int) (bool, error) { return v >= 2, nil }).Subscribe(r)

		r.AssertValues(t, 2, 3)
		r.AssertComplete(t)
	})

	t.Run("filter alias", func(t *testing.T) {
		r := flowtest.NewRecorder[int]()
		flow.Filter(flow.FromSlice(ints(6)), func(v int) (bool, error) { return v%2 == 0, nil }).Subscribe(r)
		r.AssertValues(t, 2, 4, 6)
		r.AssertComplete(t)
	})

	t.Run("dropped items count against the ceiling", func(t *testing.T) {
		r := flowtest.NewRecorder[int](flowtest.WithRequest[int](3))
		flow.Select(flow.FromSlice(ints(10)), func(v int) (bool, error) { return v > 2, nil }).Subscribe(r)
		r.AssertValues(t, 3)
		r.AssertComplete(t)
	})

	t.Run("predicate error", func(t *testing.T) {
		r := flowtest.NewRecorder[int]()
		flow.Select(flow.Just(1, 2, 3), func(v int) (bool, error) {
			if v == 2 {
				return false, errBoom
			}
			return true, nil
		}).Subscribe(r)
		r.AssertValues(t, 1)
		r.AssertError(t, errBoom)
	})

	t.Run("nil predicate", func(t *testing.T) {
		src := flow.Just(1)
		if flow.Select(src, nil) != src {
			t.Error("nil predicate should return the source")
		}
	})
}

func TestTap(t *testing.T) {
	t.Run("side effect", func(t *testing.T) {
		var seen []int
		r := flowtest.NewRecorder[int]()
		flow.Tap(flow.Just(1, 2), func(v int) error {
			seen = append(seen, v)
			return nil
		}).Subscribe(r)

		r.AssertValues(t, 1, 2)
		r.AssertComplete(t)
		if len(seen) != 2 {
			t.Errorf("tap saw %v", seen)
		}
	})

	t.Run("error", func(t *testing.T) {
		r := flowtest.NewRecorder[int]()
		flow.Tap(flow.Just(1, 2), func(v int) error {
			if v == 2 {
				return errBoom
			}
			return nil
		}).Subscribe(r)
		r.AssertValues(t, 1)
		r.AssertError(t, errBoom)
	})
}

func TestOperatorsCompose(t *testing.T) {
	r := flowtest.NewRecorder[[]string]()
	p := flow.Buffer(
		flow.Map(
			flow.Select(flow.FromSlice(ints(10)), func(v int) (bool, error) { return v%3 == 0, nil }),
			func(v int) (string, error) { return fmt.Sprint(v), nil },
		),
		2,
	)
	p.Subscribe(r)

	r.AssertValues(t, []string{"3", "6"}, []string{"9"})
	r.AssertComplete(t)
}

func TestOperatorsAreReusable(t *testing.T) {
	p := flow.Map(flow.Just(1, 2), func(v int) (int, error) { return v + 1, nil })
	for range 3 {
		r := flowtest.NewRecorder[int]()
		p.Subscribe(r)
		r.AssertValues(t, 2, 3)
		r.AssertComplete(t)
	}
}
