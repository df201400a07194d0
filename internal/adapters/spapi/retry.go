package spapi

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy retries transient failures with capped exponential backoff.
//
// The wait before attempt n+1 is Multiplier * 2^(n-1), clamped to
// [MinWait, MaxWait]. Errors not accepted by Retryable end the call at once.
type RetryPolicy struct {
	MaxAttempts int
	Multiplier  time.Duration
	MinWait     time.Duration
	MaxWait     time.Duration
	// Retryable classifies errors. Defaults to IsTransient.
	Retryable func(error) bool
}

// OffersRetryPolicy is the default policy for the offers endpoint
func OffersRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Multiplier: time.Second, MinWait: 2 * time.Second, MaxWait: 10 * time.Second}
}

// CatalogRetryPolicy is the default policy for the catalog endpoint
func CatalogRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Multiplier: time.Second, MinWait: time.Second, MaxWait: 5 * time.Second}
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// attempts run out. attempt starts at 1. The last error is returned on
// exhaustion, ctx.Err() if ctx ends during a backoff wait.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	attempt := 0
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (p RetryPolicy) backoff() retry.Backoff {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = time.Second
	}

	var b retry.Backoff = retry.NewExponential(multiplier)
	b = withMinimum(p.MinWait, b)
	if p.MaxWait > 0 {
		b = retry.WithCappedDuration(p.MaxWait, b)
	}
	return retry.WithMaxRetries(uint64(maxAttempts-1), b)
}

// withMinimum raises every wait to at least min
func withMinimum(min time.Duration, next retry.Backoff) retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		val, stop := next.Next()
		if stop {
			return 0, true
		}
		if val < min {
			val = min
		}
		return val, false
	})
}
