package export

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/linkgraph/internal/events"
	"github.com/alfredjeanlab/linkgraph/internal/idgen"
	"github.com/alfredjeanlab/linkgraph/internal/model"
)

// BuildFunc produces the graph to export on each run.
type BuildFunc func(ctx context.Context) (*model.Graph, error)

// Scheduler rebuilds a graph periodically and writes it to one or more
// destinations.
type Scheduler struct {
	build        BuildFunc
	format       Format
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger
	publisher    events.Publisher

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports the graph returned by build
// to the given destinations at the specified interval.
func NewScheduler(build BuildFunc, f Format, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		build:        build,
		format:       f,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
		publisher:    &events.NoopPublisher{},
	}
}

// WithPublisher announces every successful destination write on p.
func (s *Scheduler) WithPublisher(p events.Publisher) *Scheduler {
	if p != nil {
		s.publisher = p
	}
	return s
}

// Start begins periodic export. It runs an initial export immediately, then
// on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current export (if any) to
// finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	_ = s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.RunOnce(ctx)
		}
	}
}

// RunOnce builds, encodes and writes the graph once. A failing destination
// does not stop the others; the first write error is returned after all
// destinations were tried.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	runID := idgen.RunID()
	log := s.logger.With("run", runID)

	g, err := s.build(ctx)
	if err != nil {
		log.Error("export build failed", "err", err)
		return fmt.Errorf("build graph: %w", err)
	}
	data, err := Marshal(g, s.format, true)
	if err != nil {
		log.Error("export encode failed", "err", err)
		return err
	}

	var firstErr error
	for _, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			log.Error("export destination write failed", "destination", dest.Name(), "err", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", dest.Name(), err)
			}
			continue
		}
		ev := events.Exported{
			RunID:       runID,
			Destination: dest.Name(),
			IssueCount:  g.Metadata.IssueCount,
			Bytes:       len(data),
			Timestamp:   time.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, events.TopicExported, ev); err != nil {
			log.Warn("publishing export event", "err", err)
		}
	}

	log.Info("export completed",
		"destinations", len(s.destinations),
		"issues", g.Metadata.IssueCount,
		"bytes", len(data),
	)
	return firstErr
}
