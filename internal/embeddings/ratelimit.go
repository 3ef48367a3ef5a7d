package embeddings

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/time/rate"
)

// newLimiter returns nil when rps is zero, meaning unlimited.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(math.Ceil(rps))
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// waitLimiter blocks until the limiter admits one request or ctx ends.
func waitLimiter(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return nil
}
