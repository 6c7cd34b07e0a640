package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/alfredjeanlab/linkgraph/internal/traverse"
)

// RateLimit allows at most perSecond fetches per second with the given
// burst. A non-positive perSecond disables limiting.
func RateLimit(perSecond float64, burst int) Decorator {
	if perSecond <= 0 {
		return nil
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	return func(next traverse.Fetcher) traverse.Fetcher {
		return traverse.FetcherFunc(func(ctx context.Context, key string) (*traverse.RawLinks, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, &traverse.FetchError{Key: key, Err: fmt.Errorf("rate limit: %w", err)}
			}
			return next.FetchLinks(ctx, key)
		})
	}
}
