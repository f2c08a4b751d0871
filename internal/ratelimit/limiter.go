package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter gates outbound requests to third-party APIs.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket wraps a token-bucket limiter with a fixed refill rate.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows requestsPerSecond sustained with a burst of the
// same size, minimum 1.
func NewTokenBucket(requestsPerSecond float64) (*TokenBucket, error) {
	if requestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be > 0")
	}
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}, nil
}

func (b *TokenBucket) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// Noop never blocks. Useful in tests and against self-hosted endpoints.
type Noop struct{}

func (Noop) Wait(ctx context.Context) error {
	return ctx.Err()
}
