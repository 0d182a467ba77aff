package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRetryPolicySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := RetryPolicy{MaxAttempts: 3}.Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestRetryPolicyRetriesThenSucceeds(t *testing.T) {
	calls := 0
	err := RetryPolicy{MaxAttempts: 3, Retryable: IsTransient}.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
}

func TestRetryPolicyExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("connection reset by peer")
	err := RetryPolicy{MaxAttempts: 2, Retryable: IsTransient}.Do(context.Background(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("got error %v, want %v", err, wantErr)
	}
	if calls != 2 {
		t.Errorf("op called %d times, want 2", calls)
	}
}

func TestRetryPolicyStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := RetryPolicy{MaxAttempts: 3, Retryable: IsTransient}.Do(context.Background(), func() error {
		calls++
		return errors.New("status 404 for url")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("permanent error retried: op called %d times, want 1", calls)
	}
}

func TestRetryPolicyHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryPolicy{MaxAttempts: 3}.Do(ctx, func() error {
		calls++
		return errors.New("should not run")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got error %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("op ran %d times after cancel, want 0", calls)
	}
}

func TestRetryPolicyCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- RetryPolicy{MaxAttempts: 3, Backoff: time.Minute, Retryable: IsTransient}.Do(ctx, func() error {
			calls++
			return errors.New("timeout")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got error %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after context cancel")
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"timeout string", errors.New("request timeout"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"server error", fmt.Errorf("fetch returned status 503"), true},
		{"rate limited", fmt.Errorf("fetch returned status 429"), true},
		{"not found", fmt.Errorf("fetch returned status 404"), false},
		{"bad request", fmt.Errorf("fetch returned status 400"), false},
		{"dns failure", errors.New("lookup example.invalid: no such host"), false},
		{"parse failure", errors.New("unexpected end of JSON input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
