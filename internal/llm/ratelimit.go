package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited throttles a TextGenerator to a fixed number of requests per
// minute. Callers block in Complete until a token is available or ctx ends.
type RateLimited struct {
	next    TextGenerator
	limiter *rate.Limiter
}

// NewRateLimited wraps next. A non-positive rpm returns next unchanged.
func NewRateLimited(next TextGenerator, rpm int) TextGenerator {
	if rpm <= 0 {
		return next
	}
	// Burst of one keeps a cold start from firing a minute's quota at once.
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

// Complete waits for the limiter, then delegates.
func (r *RateLimited) Complete(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return r.next.Complete(ctx, prompt)
}

// GetModel returns the wrapped generator's model.
func (r *RateLimited) GetModel() string {
	return r.next.GetModel()
}

// HealthCheck forwards to the wrapped generator when it supports one.
func (r *RateLimited) HealthCheck(ctx context.Context) error {
	if hc, ok := r.next.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
