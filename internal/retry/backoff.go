package retry

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff doubles (by default) the delay between attempts, caps it
// at a maximum, and spreads it with a small jitter factor.
type ExponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	maxAttempts  int

	// jitter is the fraction of the delay randomized in both directions.
	// 0.1 means each delay lands within +/- 10% of its nominal value.
	jitter float64

	// random yields values in [0, 1). Tests inject a deterministic source.
	random func() float64
}

// BackoffOption configures an ExponentialBackoff.
type BackoffOption func(*ExponentialBackoff)

// WithInitialDelay sets the delay before the first retry attempt.
func WithInitialDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.initialDelay = d }
}

// WithMaxDelay caps the delay between retry attempts.
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.maxDelay = d }
}

// WithMultiplier sets the growth factor between attempts.
func WithMultiplier(m float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.multiplier = m }
}

// WithJitter sets the jitter fraction (0 disables jitter).
func WithJitter(j float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.jitter = j }
}

// WithRandom replaces the jitter's randomness source.
func WithRandom(f func() float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.random = f }
}

// NewExponentialBackoff creates a backoff strategy allowing maxAttempts
// retries (-1 for unlimited, 0 for none). Defaults: 100ms initial delay,
// 30s cap, doubling, 10% jitter.
func NewExponentialBackoff(maxAttempts int, opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initialDelay: 100 * time.Millisecond,
		maxDelay:     30 * time.Second,
		multiplier:   2.0,
		maxAttempts:  maxAttempts,
		jitter:       0.1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NextDelay returns the delay before retry number attempt (zero-indexed).
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt))
	if limit := float64(b.maxDelay); delay > limit {
		delay = limit
	}

	if b.jitter > 0 {
		random := b.random
		if random == nil {
			random = rand.Float64
		}
		// Map [0,1) onto [-1,1) and scale by the jitter fraction.
		delay *= 1 + b.jitter*(2*random()-1)
	}

	return time.Duration(delay)
}

// MaxAttempts returns the configured retry limit.
func (b *ExponentialBackoff) MaxAttempts() int {
	return b.maxAttempts
}
