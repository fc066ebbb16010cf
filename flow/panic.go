package flow

import (
	"fmt"
	"runtime/debug"

	"github.com/kbukum/flowkit/errors"
)

// PanicError is a recovered panic from a user function or a subscriber
// callback.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Is matches the PANIC error code so errors.Is(err, errors.New(errors.ErrCodePanic, ""))
// holds for recovered panics.
func (e *PanicError) Is(target error) bool {
	t, ok := target.(*errors.AppError)
	return ok && t.Code == errors.ErrCodePanic
}

// try runs f and converts a panic into a *PanicError.
func try(f func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = newPanicError(v)
		}
	}()
	f()
	return nil
}

// apply calls fn(v), converting a panic into a *PanicError.
func apply[T, R any](fn func(T) (R, error), v T) (r R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = newPanicError(p)
		}
	}()
	return fn(v)
}
