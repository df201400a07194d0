package spapi

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket guarding one SP-API endpoint class.
// The bucket starts full, so the first burst calls pass without waiting.
// A single instance must be shared by every caller of its endpoint.
type RateLimiter struct {
	limiter     *rate.Limiter
	minInterval time.Duration
}

// NewRateLimiter creates a bucket refilled at requestsPerSecond holding at
// most burst tokens
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter:     rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		minInterval: time.Duration(float64(time.Second) / requestsPerSecond),
	}
}

// Acquire blocks until a token is available and consumes it.
// It returns early with an error if ctx is done first.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// MinInterval is the steady-state spacing between calls
func (r *RateLimiter) MinInterval() time.Duration {
	return r.minInterval
}

// Burst is the bucket capacity
func (r *RateLimiter) Burst() int {
	return r.limiter.Burst()
}
