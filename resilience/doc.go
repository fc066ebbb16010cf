// Package resilience provides the backoff policy used when a failed stream
// is resubscribed after a delay.
//
//	cfg := resilience.DefaultBackoffConfig()
//	for attempt := 1; attempt <= 3; attempt++ {
//	    time.Sleep(cfg.Delay(attempt))
//	}
package resilience
