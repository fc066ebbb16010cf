package flow

import (
	"errors"
	"sync/atomic"

	"github.com/kbukum/flowkit/logger"
)

var uncaughtHandler atomic.Pointer[func(error)]

// SetUncaughtHandler installs the handler for failures that have no
// downstream left to notify: a terminal subscriber whose own callback
// fails, or an error that reaches a subscriber without an error callback.
// A nil handler restores the default, which logs the error and keeps the
// process running.
func SetUncaughtHandler(h func(error)) {
	if h == nil {
		uncaughtHandler.Store(nil)
		return
	}
	uncaughtHandler.Store(&h)
}

// uncaught reports err on the uncaught path. A panicking handler falls back
// to the default.
func uncaught(err error) {
	if h := uncaughtHandler.Load(); h != nil {
		if perr := try(func() { (*h)(err) }); perr == nil {
			return
		}
	}
	logUncaught(err)
}

func logUncaught(err error) {
	fields := logger.Fields(logger.FieldError, err)
	var p *PanicError
	if errors.As(err, &p) {
		fields[logger.FieldStack] = string(p.Stack)
	}
	logger.Get("flow").Error("uncaught stream error", fields)
}
