package traverse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/linkgraph/internal/idgen"
	"github.com/alfredjeanlab/linkgraph/internal/model"
)

// DefaultConcurrency bounds the fetches issued for one BFS level.
const DefaultConcurrency = 8

var (
	// ErrInvalidDepth is returned for a negative max depth.
	ErrInvalidDepth = errors.New("max depth must not be negative")
	// ErrEmptySeedSet is returned by bulk extraction when no keys are given.
	ErrEmptySeedSet = errors.New("at least one issue key is required")
	// ErrEmptySeed is returned for a blank issue key.
	ErrEmptySeed = errors.New("issue key must not be empty")
)

// Engine builds relationship graphs from a Fetcher. Fetch failures are logged
// and skipped: a graph with partial data is returned instead of an error.
type Engine struct {
	fetcher     Fetcher
	logger      *slog.Logger
	concurrency int
	bulkLimit   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for fetch failures and run summaries.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithConcurrency bounds the concurrent fetches within one BFS level.
// Values below 1 make traversal fully sequential.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = max(n, 1) }
}

// WithBulkLimit bounds the concurrent fetches of a bulk extraction. Zero
// (the default) issues every seed fetch at once.
func WithBulkLimit(n int) Option {
	return func(e *Engine) { e.bulkLimit = max(n, 0) }
}

// NewEngine returns an Engine reading links through f.
func NewEngine(f Fetcher, opts ...Option) *Engine {
	e := &Engine{
		fetcher:     f,
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runStats summarizes one traversal or bulk extraction for logging.
type runStats struct {
	fetched int
	failed  int
}

// GetRelationshipGraph walks the links reachable from rootKey breadth-first,
// fetching each issue at most once and expanding no further than maxDepth
// levels from the root. A nil opts uses model.DefaultGraphOptions.
func (e *Engine) GetRelationshipGraph(ctx context.Context, rootKey string, maxDepth int, opts *model.GraphOptions) (*model.Graph, error) {
	if strings.TrimSpace(rootKey) == "" {
		return nil, ErrEmptySeed
	}
	if maxDepth < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, maxDepth)
	}
	o := resolveOptions(opts)

	runID := idgen.RunID()
	start := time.Now()
	log := e.logger.With("run", runID, "root", rootKey)

	g := model.NewGraph(model.SourceSingle)
	g.Metadata.RootIssue = rootKey
	g.Metadata.MaxDepth = maxDepth

	visited := map[string]bool{rootKey: true}
	frontier := []string{rootKey}
	var pending []inferredEdge
	var stats runStats

	for depth := 0; len(frontier) > 0; depth++ {
		results := e.fetchAll(ctx, log, frontier, e.concurrency)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var next []string
		for i, key := range frontier {
			raw := results[i]
			if raw == nil {
				stats.failed++
				continue
			}
			stats.fetched++

			rec, inferred := buildRecord(key, raw, o)
			pending = append(pending, inferred...)
			g.AddIssue(key, rec)

			if depth >= maxDepth {
				continue
			}
			for _, neighbor := range rec.AllRelated() {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				next = append(next, neighbor)
			}
		}
		log.Debug("traversal level complete", "depth", depth, "fetched", len(frontier), "queued", len(next))
		frontier = next
	}

	applyInferred(g, pending)

	log.Info("relationship graph built",
		"max_depth", maxDepth,
		"issues", g.Metadata.IssueCount,
		"relationships", g.Metadata.RelationshipCount,
		"fetched", stats.fetched,
		"failed", stats.failed,
		"duration", time.Since(start),
	)
	return g, nil
}

// GetBulkRelationships fetches every key concurrently and returns one graph
// holding each seed's own links. Seeds are not expanded. A seed whose fetch
// fails is left out; when a key is given twice the later result wins.
func (e *Engine) GetBulkRelationships(ctx context.Context, keys []string, opts *model.GraphOptions) (*model.Graph, error) {
	if len(keys) == 0 {
		return nil, ErrEmptySeedSet
	}
	for i, k := range keys {
		if strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: position %d", ErrEmptySeed, i)
		}
	}
	o := resolveOptions(opts)

	runID := idgen.RunID()
	start := time.Now()
	log := e.logger.With("run", runID, "seeds", len(keys))

	results := e.fetchAll(ctx, log, keys, e.bulkLimit)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := model.NewGraph(model.SourceBulk)
	var pending []inferredEdge
	var stats runStats
	for i, key := range keys {
		raw := results[i]
		if raw == nil {
			stats.failed++
			continue
		}
		stats.fetched++
		rec, inferred := buildRecord(key, raw, o)
		pending = append(pending, inferred...)
		g.AddIssue(key, rec)
	}
	applyInferred(g, pending)

	log.Info("bulk relationships extracted",
		"issues", g.Metadata.IssueCount,
		"relationships", g.Metadata.RelationshipCount,
		"fetched", stats.fetched,
		"failed", stats.failed,
		"duration", time.Since(start),
	)
	return g, nil
}

// fetchAll fetches keys concurrently, at most limit at a time (unbounded when
// limit is zero). The result slice is aligned with keys; failed fetches leave
// a nil entry. Failures never cancel the remaining fetches.
func (e *Engine) fetchAll(ctx context.Context, log *slog.Logger, keys []string, limit int) []*RawLinks {
	results := make([]*RawLinks, len(keys))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, key := range keys {
		g.Go(func() error {
			raw, err := e.fetcher.FetchLinks(ctx, key)
			if err != nil {
				var fe *FetchError
				if !errors.As(err, &fe) {
					err = &FetchError{Key: key, Err: err}
				}
				log.Warn("skipping issue", "key", key, "err", err)
				return nil
			}
			if raw == nil {
				raw = &RawLinks{Key: key}
			}
			results[i] = raw
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func resolveOptions(opts *model.GraphOptions) model.GraphOptions {
	if opts == nil {
		return model.DefaultGraphOptions()
	}
	return *opts
}
