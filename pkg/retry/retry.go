// Package retry provides the single retry combinator every outbound call
// site uses uniformly: a fallible function, number of attempts, initial
// delay, and backoff multiplier.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy configures a retry combinator.
type Policy struct {
	MaxAttempts  int           // total attempts including the first, e.g. 3
	InitialDelay time.Duration // e.g. 1.5s for the spreadsheet client
	Multiplier   float64       // exponential backoff multiplier, e.g. 2.0
	MaxDelay     time.Duration // cap on any single backoff
	Jitter       float64       // fraction of the delay to randomize, e.g. 0.2
}

// DefaultPolicy matches the spreadsheet backend's retry contract: up to 3
// attempts, exponential backoff starting at 1.5s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 1500 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     15 * time.Second,
		Jitter:       0.2,
	}
}

// Retryable reports whether an error should be retried. Callers supply this
// to distinguish transient/rate-limit failures from permanent ones.
type Retryable func(err error) bool

// AlwaysRetry retries on any non-nil error.
func AlwaysRetry(error) bool { return true }

// Do runs fn, retrying per policy while retryable(err) is true. It returns
// the last error once attempts are exhausted or ctx is cancelled.
func Do(ctx context.Context, policy Policy, retryable Retryable, fn func(ctx context.Context) error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if retryable == nil {
		retryable = AlwaysRetry
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}

		sleep := withJitter(delay, policy.Jitter)
		if policy.MaxDelay > 0 && sleep > policy.MaxDelay {
			sleep = policy.MaxDelay
		}

		timer := time.NewTimer(sleep)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}

		if policy.Multiplier > 0 {
			delay = time.Duration(float64(delay) * policy.Multiplier)
		}
	}

	return lastErr
}

func withJitter(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return d
	}
	delta := float64(d) * jitter
	offset := (rand.Float64()*2 - 1) * delta
	result := float64(d) + offset
	if result < 0 {
		return 0
	}
	return time.Duration(result)
}

// ErrExhausted is returned by callers that want a sentinel distinguishing
// "retries used up" from other errors when wrapping Do's result.
var ErrExhausted = errors.New("retry attempts exhausted")
