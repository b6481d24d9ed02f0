package recovery

import (
	"math"
	"time"
)

// RetryStrategy defines how recovery re-invocations are spaced.
type RetryStrategy interface {
	// GetDelay returns the delay for the given attempt (0-indexed).
	GetDelay(attempt int) time.Duration

	// ShouldRetry checks if another whole-recipe run is allowed.
	ShouldRetry(attempt int) bool
}

// ExponentialBackoff implements a standard backoff strategy.
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}

// DefaultBackoff returns sensible defaults for recovery retries.
// 2s, 4s, 8s, 16s, 32s (Max 60s)
func DefaultBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		MaxAttempts:  5,
	}
}

// GetDelay calculates delay: InitialDelay * 2^attempt
func (s *ExponentialBackoff) GetDelay(attempt int) time.Duration {
	delay := float64(s.InitialDelay) * math.Pow(2, float64(attempt))
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// ShouldRetry checks that the attempt budget is not exhausted.
func (s *ExponentialBackoff) ShouldRetry(attempt int) bool {
	return attempt < s.MaxAttempts
}
