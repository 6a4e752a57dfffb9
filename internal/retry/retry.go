// Package retry provides pluggable backoff policies for outbound delivery.
package retry

import (
	"context"
	"math"
	"time"

	berrors "github.com/tutordesk/tutordesk-agent/internal/errors"
)

// DelayFunc computes the wait before retry attempt n (n starts at 1).
type DelayFunc func(attempt int) time.Duration

// Policy describes how a failed operation is retried. MaxRetries is the
// number of retries after the initial attempt, so an always-failing
// operation runs MaxRetries+1 times in total.
type Policy struct {
	MaxRetries int
	Delay      DelayFunc
}

// Linear returns a policy waiting base*attempt between attempts.
func Linear(maxRetries int, base time.Duration) Policy {
	return Policy{
		MaxRetries: maxRetries,
		Delay: func(attempt int) time.Duration {
			return base * time.Duration(attempt)
		},
	}
}

// Exponential returns a policy waiting base*2^(attempt-1), capped at max.
func Exponential(maxRetries int, base, max time.Duration) Policy {
	return Policy{
		MaxRetries: maxRetries,
		Delay: func(attempt int) time.Duration {
			d := time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
			if d > max {
				d = max
			}
			return d
		},
	}
}

// Default is the reference behavior: three retries, linear backoff,
// 30 second base.
func Default() Policy {
	return Linear(3, 30*time.Second)
}

// Do executes fn, retrying per the policy. Only retryable errors are
// retried; the last error is returned once the policy is exhausted.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !berrors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay(attempt + 1)):
		}
	}
	return lastErr
}
