package services

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// RetryPolicy is the single retry mechanism used at every external call
// site: a bounded number of attempts with a fixed backoff and a predicate
// deciding which errors are worth retrying.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	Retryable   func(error) bool
}

// Do runs op until it succeeds, the attempts are exhausted, or the context
// ends. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}

		if attempt < attempts-1 && p.Backoff > 0 {
			select {
			case <-time.After(p.Backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// IsTransient classifies an error as transient-network: timeouts,
// connection failures, and server-side (5xx) responses. Client errors
// (4xx) and parse failures are not retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"status 5",
		"status 429",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
