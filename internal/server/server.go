// Package server exposes the traversal engine over an HTTP JSON API and a
// gRPC health endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/linkgraph/internal/events"
	"github.com/alfredjeanlab/linkgraph/internal/idgen"
	"github.com/alfredjeanlab/linkgraph/internal/model"
	"github.com/alfredjeanlab/linkgraph/internal/traverse"
)

// DefaultMaxDepth caps the depth a request may ask for.
const DefaultMaxDepth = 10

// Builder builds relationship graphs. *traverse.Engine satisfies it.
type Builder interface {
	GetRelationshipGraph(ctx context.Context, rootKey string, maxDepth int, opts *model.GraphOptions) (*model.Graph, error)
	GetBulkRelationships(ctx context.Context, keys []string, opts *model.GraphOptions) (*model.Graph, error)
}

// GraphServer serves graph requests and announces every built graph.
type GraphServer struct {
	builder      Builder
	publisher    events.Publisher
	logger       *slog.Logger
	defaultDepth int
	maxDepth     int
	hub          *sseHub
}

// Option configures a GraphServer.
type Option func(*GraphServer)

// WithDefaultDepth sets the depth used when a request names none.
func WithDefaultDepth(d int) Option {
	return func(s *GraphServer) { s.defaultDepth = d }
}

// WithMaxDepth caps the depth a request may ask for.
func WithMaxDepth(d int) Option {
	return func(s *GraphServer) { s.maxDepth = d }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *GraphServer) { s.logger = l }
}

// NewGraphServer returns a GraphServer building graphs with b and
// publishing to p. A nil p disables events.
func NewGraphServer(b Builder, p events.Publisher, opts ...Option) *GraphServer {
	if p == nil {
		p = &events.NoopPublisher{}
	}
	s := &GraphServer{
		builder:      b,
		publisher:    p,
		logger:       slog.Default(),
		defaultDepth: 2,
		maxDepth:     DefaultMaxDepth,
		hub:          newSSEHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultDepth > s.maxDepth {
		s.defaultDepth = s.maxDepth
	}
	return s
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// isInputError reports errors caused by the request rather than the server.
func isInputError(err error) bool {
	var ie inputError
	return errors.As(err, &ie) ||
		errors.Is(err, traverse.ErrInvalidDepth) ||
		errors.Is(err, traverse.ErrEmptySeed) ||
		errors.Is(err, traverse.ErrEmptySeedSet)
}

func (s *GraphServer) checkDepth(depth int) error {
	if depth > s.maxDepth {
		return inputError(fmt.Sprintf("depth %d exceeds the maximum of %d", depth, s.maxDepth))
	}
	return nil
}

// BuildGraph traverses from root and publishes the result.
func (s *GraphServer) BuildGraph(ctx context.Context, root string, depth int, opts *model.GraphOptions) (*model.Graph, error) {
	if err := s.checkDepth(depth); err != nil {
		return nil, err
	}
	g, err := s.builder.GetRelationshipGraph(ctx, root, depth, opts)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, g, nil)
	return g, nil
}

// BuildBulk extracts the direct links of keys and publishes the result.
func (s *GraphServer) BuildBulk(ctx context.Context, keys []string, opts *model.GraphOptions) (*model.Graph, error) {
	g, err := s.builder.GetBulkRelationships(ctx, keys, opts)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, g, keys)
	return g, nil
}

// announce publishes a GraphBuilt event and fans it out to stream clients.
// Failures are logged but do not fail the request.
func (s *GraphServer) announce(ctx context.Context, g *model.Graph, seeds []string) {
	ev := events.NewGraphBuilt(idgen.EventID(), g, seeds)
	topic := events.TopicFor(g.Metadata.Source)
	if err := s.publisher.Publish(ctx, topic, ev); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "err", err)
	}
	if data, err := json.Marshal(ev); err == nil {
		s.hub.broadcast(topic, data)
	}
}
