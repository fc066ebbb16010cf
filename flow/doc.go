// Package flow is a lazy, pull-based stream runtime.
//
// A Publisher is a reusable blueprint: nothing happens until Subscribe is
// called, and every Subscribe starts an independent run bound to one
// Subscriber and one Subscription. The subscriber must call Request on the
// subscription it receives in OnSubscribe to start the flow of items.
//
// # Demand
//
// Request(n) sets an absolute ceiling on the zero-based emission index
// rather than adding n to an outstanding demand. Sources emit while their
// index is below the ceiling, then complete. Unbounded means "everything".
// The ceiling only grows: a lower value, zero or a negative value is
// ignored, and so is any Request after the terminal event.
//
// # Operators
//
// Operators are package functions that wrap an upstream Publisher:
//
//	p := flow.Just("a.png", "b.png")
//	p = flow.SubscribeOn(p, scheduler.NewThreadScheduler())
//	images := flow.Map(p, decode)
//	images = flow.ObserveOn(images, scheduler.Main())
//	flow.SubscribeFunc(images, show, report, nil)
//
// # Failures
//
// User functions report failure by returning an error. Panics inside user
// functions or downstream callbacks are recovered into *PanicError and
// handled the same way: the stage cancels its upstream and forwards the
// error with OnError. A failure inside a terminal callback has no
// downstream left to notify and goes to the uncaught handler (see
// SetUncaughtHandler).
//
// # Cancellation
//
// Cancellation is cooperative. Every stage checks the cancelled flag before
// forwarding an item; a cancelled run delivers neither OnComplete nor
// OnError. Callbacks already handed to another scheduler may still start,
// but they re-check the flag before touching the subscriber.
package flow
