// Package middleware wraps a traverse.Fetcher with caching, metrics, rate
// limiting and logging. Each decorator is itself a Fetcher, so they compose
// in any order with Chain.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/linkgraph/internal/traverse"
)

// Decorator wraps a Fetcher.
type Decorator func(traverse.Fetcher) traverse.Fetcher

// Chain applies decorators so that the first one listed is the outermost.
func Chain(f traverse.Fetcher, ds ...Decorator) traverse.Fetcher {
	for i := len(ds) - 1; i >= 0; i-- {
		if ds[i] != nil {
			f = ds[i](f)
		}
	}
	return f
}

// Logging logs every fetch at debug level and failures at warn.
func Logging(logger *slog.Logger) Decorator {
	return func(next traverse.Fetcher) traverse.Fetcher {
		return traverse.FetcherFunc(func(ctx context.Context, key string) (*traverse.RawLinks, error) {
			start := time.Now()
			raw, err := next.FetchLinks(ctx, key)
			if err != nil {
				logger.Warn("fetch failed", "key", key, "duration", time.Since(start), "err", err)
				return nil, err
			}
			links := 0
			if raw != nil {
				links = len(raw.Links)
			}
			logger.Debug("fetched issue", "key", key, "links", links, "duration", time.Since(start))
			return raw, nil
		})
	}
}
