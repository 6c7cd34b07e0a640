package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alfredjeanlab/linkgraph/internal/client"
	"github.com/alfredjeanlab/linkgraph/internal/config"
	"github.com/alfredjeanlab/linkgraph/internal/middleware"
	"github.com/alfredjeanlab/linkgraph/internal/model"
	"github.com/alfredjeanlab/linkgraph/internal/traverse"
)

// stack is a traversal engine together with the tracker client and cache it
// was built on.
type stack struct {
	engine  *traverse.Engine
	tracker *client.HTTPClient
	cache   *middleware.Cache
}

// newStack connects to the tracker described by c and wraps the client in
// the cache, metrics, rate limit and logging decorators.
func newStack(c *config.Config) (*stack, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	opts := []client.Option{
		client.WithAPIVersion(c.APIVersion),
		client.WithTimeout(time.Duration(c.Timeout)),
	}
	if c.User != "" {
		opts = append(opts, client.WithBasicAuth(c.User))
	}
	if c.EpicField != "" {
		opts = append(opts, client.WithEpicField(c.EpicField))
	}
	if len(c.LinkTypes) > 0 {
		opts = append(opts, client.WithLinkTypes(c.LinkTypes))
	}
	tracker := client.NewHTTPClient(c.TrackerURL, c.Token, opts...)

	s := &stack{tracker: tracker}
	var decorators []middleware.Decorator
	if c.CacheTTL > 0 {
		cache, err := middleware.NewCache(middleware.CacheConfig{
			Path:   c.CacheDir,
			TTL:    time.Duration(c.CacheTTL),
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		s.cache = cache
		decorators = append(decorators, cache.Decorator())
	}
	decorators = append(decorators,
		middleware.Metrics(),
		middleware.RateLimit(c.RateLimit, c.RateBurst),
		middleware.Logging(logger),
	)

	s.engine = traverse.NewEngine(
		middleware.Chain(tracker, decorators...),
		traverse.WithLogger(logger),
		traverse.WithConcurrency(c.Concurrency),
		traverse.WithBulkLimit(c.BulkLimit),
	)
	return s, nil
}

// Close releases the cache and the tracker client.
func (s *stack) Close() error {
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	errs = append(errs, s.tracker.Close())
	return errors.Join(errs...)
}

// build traverses from a single seed, or extracts the direct links of every
// seed when more than one is given.
func (s *stack) build(ctx context.Context, seeds []string, depth int, opts *model.GraphOptions) (*model.Graph, error) {
	switch len(seeds) {
	case 0:
		return nil, fmt.Errorf("no issue keys given: %w", traverse.ErrEmptySeedSet)
	case 1:
		return s.engine.GetRelationshipGraph(ctx, seeds[0], depth, opts)
	default:
		return s.engine.GetBulkRelationships(ctx, seeds, opts)
	}
}
