package inference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// RetryPolicy bounds how model calls are retried. MaxAttempts counts the
// first call.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy returns three attempts with a one second base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
	}
}

// Backoff is the wait after failed attempt n (zero based): base * 2^n.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(attempt)))
}

// RetryableError wraps an error to indicate it should be retried.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError marks err as retryable.
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable checks if an error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryable *RetryableError
	return errors.As(err, &retryable)
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// policy's attempts are used up. It returns the number of attempts made.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context, attempt int) error) (int, error) {
	attempts := max(policy.MaxAttempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return attempt + 1, nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return attempt + 1, err
		}

		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(policy.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt + 1, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return attempts, fmt.Errorf("max attempts exceeded (%d): %w", attempts, lastErr)
}
