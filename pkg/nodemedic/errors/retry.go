package errors

import (
	"context"
	"time"
)

// RetryConfig configures retry behavior for backend calls.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Total attempts never exceed MaxRetries + 1.
	MaxRetries int

	// InitialBackoff is the delay before the first retry.
	// The delay doubles after each attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration. Zero means uncapped.
	MaxBackoff time.Duration

	// RetryableFunc optionally overrides the default retryability check.
	RetryableFunc func(error) bool
}

// DefaultRetry is the standard retry configuration for backend calls.
var DefaultRetry = RetryConfig{
	MaxRetries:     3,
	InitialBackoff: 2 * time.Second,
	MaxBackoff:     30 * time.Second,
}

// NoRetry disables retries.
var NoRetry = RetryConfig{MaxRetries: 0}

// RetryResult contains the result of a retried operation.
type RetryResult[T any] struct {
	// Value is the result if successful.
	Value T

	// Err is the final error if all attempts failed.
	Err error

	// Attempts is the number of attempts made.
	Attempts int

	// Duration is the total time spent including backoff.
	Duration time.Duration
}

// WithRetryContext executes fn with retries, doubling the backoff after
// each failed attempt and respecting context cancellation both between
// and before attempts.
//
// Non-retryable errors (anything not CategoryTransient unless overridden)
// stop the loop immediately and are returned as-is.
func WithRetryContext[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func(context.Context) (T, error),
) RetryResult[T] {
	start := time.Now()
	backoff := cfg.InitialBackoff
	var lastErr error

	isRetryable := cfg.RetryableFunc
	if isRetryable == nil {
		isRetryable = IsRetryable
	}

	maxAttempts := cfg.MaxRetries + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return RetryResult[T]{
				Err:      &CategorizedError{Err: err, Category: CategoryPermanent, Context: "context cancelled", Attempts: attempt - 1},
				Attempts: attempt - 1,
				Duration: time.Since(start),
			}
		}

		value, err := fn(ctx)
		if err == nil {
			return RetryResult[T]{
				Value:    value,
				Attempts: attempt,
				Duration: time.Since(start),
			}
		}
		lastErr = err

		if !isRetryable(err) || attempt == maxAttempts {
			return RetryResult[T]{
				Err:      err,
				Attempts: attempt,
				Duration: time.Since(start),
			}
		}

		select {
		case <-ctx.Done():
			return RetryResult[T]{
				Err:      &CategorizedError{Err: ctx.Err(), Category: CategoryPermanent, Context: "context cancelled during backoff", Attempts: attempt},
				Attempts: attempt,
				Duration: time.Since(start),
			}
		case <-time.After(backoff):
		}

		backoff *= 2
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return RetryResult[T]{
		Err:      lastErr,
		Attempts: maxAttempts,
		Duration: time.Since(start),
	}
}
