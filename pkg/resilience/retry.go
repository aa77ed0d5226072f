// Package resilience implements the RetryPolicy and CircuitBreaker building
// blocks spec §4.9 layers around tool invocations and outbound calls.
//
// Grounded on the teacher's testcontainers-transitive dependency on
// cenkalti/backoff (promoted here to a direct dependency, the way the
// itsneelabh-gomind pack uses it directly for its own retry helpers) for
// the exponential-backoff schedule, wrapped in the teacher's own
// context-aware retry-loop style (see pkg/queue/worker.go's polling loop).
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
)

// RetryPolicy describes an exponential backoff schedule with jitter and a
// maximum attempt count (spec §4.9).
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy is a conservative default: 3 attempts, 500ms initial
// backoff doubling up to 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
	}
}

func (p RetryPolicy) backoffFor() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.Multiplier = p.Multiplier
	eb.MaxElapsedTime = 0 // bounded by MaxAttempts via backoff.WithMaxRetries instead
	return backoff.WithMaxRetries(eb, uint64(maxInt(p.MaxAttempts-1, 0)))
}

// Do runs fn under the policy's backoff schedule. An *apierr.Error whose
// kind is not Retryable (or success) stops the loop immediately; every other
// error, including one outside the apierr taxonomy, is retried.
func (p RetryPolicy) Do(ctx context.Context, component, id string, fn func(ctx context.Context) error) error {
	var lastErr error
	op := func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		var ae *apierr.Error
		if errors.As(err, &ae) && !ae.Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(p.backoffFor(), ctx))
	if err == nil {
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return err
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
