package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// BackoffConfig configures the delay between retry attempts.
// A zero value means "no delay".
type BackoffConfig struct {
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff" validate:"gte=0"`
	// MaxBackoff caps the computed delay.
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff" validate:"gte=0"`
	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64 `yaml:"backoff_factor" mapstructure:"backoff_factor" validate:"gte=0"`
	// Jitter adds randomness to backoff (0.0 to 1.0).
	Jitter float64 `yaml:"jitter" mapstructure:"jitter" validate:"gte=0,lte=1"`
}

// DefaultBackoffConfig returns sensible defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
	}
}

// Enabled reports whether the config produces any delay at all.
func (c BackoffConfig) Enabled() bool {
	return c.InitialBackoff > 0
}

// ApplyDefaults fills the factor and cap when a delay is configured.
func (c *BackoffConfig) ApplyDefaults() {
	if !c.Enabled() {
		return
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 2.0
	}
}

// Delay returns the backoff duration before the given retry attempt
// (1 for the first retry). Disabled configs return 0.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	if !c.Enabled() {
		return 0
	}
	c.ApplyDefaults()
	if attempt < 1 {
		attempt = 1
	}

	// Exponential backoff: initial * factor^(attempt-1)
	backoffFloat := float64(c.InitialBackoff) * math.Pow(c.BackoffFactor, float64(attempt-1))

	if c.Jitter > 0 {
		jitterRange := backoffFloat * c.Jitter
		backoffFloat += (rand.Float64()*2 - 1) * jitterRange
	}

	if backoffFloat > float64(c.MaxBackoff) {
		backoffFloat = float64(c.MaxBackoff)
	}
	if backoffFloat < 0 {
		backoffFloat = float64(c.InitialBackoff)
	}

	return time.Duration(backoffFloat)
}

// DefaultRetryIf retries all errors except context cancellation.
func DefaultRetryIf(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
