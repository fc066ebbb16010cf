// Package flowtest provides test helpers for flow publishers.
//
// Recorder is a Subscriber that records every callback, flags protocol
// violations (a second OnSubscribe, events after a terminal event) and
// offers blocking waits for asynchronous streams:
//
//	func TestLoad(t *testing.T) {
//	    rec := flowtest.NewRecorder[string]()
//	    flow.ObserveOn(p, pool).Subscribe(rec)
//	    rec.AwaitTerminal(t, time.Second)
//	    rec.AssertValues(t, "a", "b")
//	    rec.AssertComplete(t)
//	}
package flowtest
