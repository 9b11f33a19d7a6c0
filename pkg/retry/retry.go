// Package retry implements the backoff loop stagerunner.RunAll retries
// model calls through. Every ModelClient adapter must not retry
// internally (spec.md §4.1: "No retry inside the client") — StageRunner is
// the pipeline's single retry owner, so this package exposes only the
// full-jitter formula and the backoff loop it drives, not a general-purpose
// retry helper adapters could reach for on their own.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// FullJitterBackoff returns a per-attempt delay function implementing the
// AWS-style "full jitter" formula: min(cap, base*2^(attempt-1)) scaled by a
// uniform random factor in [0, 1). Attempt 1 is the delay before the second
// try.
func FullJitterBackoff(base, cap time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		shift := attempt - 1
		if shift > 30 {
			shift = 30 // guard against duration overflow for pathological MaxAttempts
		}
		capped := base * time.Duration(uint64(1)<<uint(shift))
		if cap > 0 && capped > cap {
			capped = cap
		}
		if capped <= 0 {
			return 0
		}
		return time.Duration(rand.Float64() * float64(capped))
	}
}

// DoWithBackoff executes fn, retrying while retryable(err) reports true,
// up to maxAttempts, waiting backoffFn(attempt) between tries. It stops
// early on ctx cancellation, returning ctx.Err().
func DoWithBackoff(ctx context.Context, maxAttempts int, backoffFn func(attempt int) time.Duration, retryable func(error) bool, fn func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt >= maxAttempts {
			return err
		}

		delay := time.Duration(0)
		if backoffFn != nil {
			delay = backoffFn(attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
