package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/linkgraph/internal/events"
	"github.com/alfredjeanlab/linkgraph/internal/model"
)

// mockDestination records calls to Write.
type mockDestination struct {
	name   string
	err    error
	writes atomic.Int64
	last   atomic.Value // []byte
}

func (d *mockDestination) Name() string { return d.name }

func (d *mockDestination) Write(_ context.Context, data []byte) error {
	d.writes.Add(1)
	if d.err != nil {
		return d.err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	d.last.Store(cp)
	return nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staticBuild(g *model.Graph) BuildFunc {
	return func(context.Context) (*model.Graph, error) { return g, nil }
}

func TestSchedulerStartStop(t *testing.T) {
	dest := &mockDestination{name: "mock"}
	sched := NewScheduler(staticBuild(testGraph()), FormatJSON, []Destination{dest}, 50*time.Millisecond, discardLogger())
	sched.Start()

	// Wait for at least the initial export + one tick.
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if writes := dest.writes.Load(); writes < 2 {
		t.Fatalf("expected at least 2 writes, got %d", writes)
	}

	data, ok := dest.last.Load().([]byte)
	if !ok || len(data) == 0 {
		t.Fatal("expected non-empty data")
	}
	var doc struct {
		Issues map[string]json.RawMessage `json:"issues"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("written data is not a graph document: %v", err)
	}
	if len(doc.Issues) != 3 {
		t.Errorf("issues = %d, want 3", len(doc.Issues))
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(staticBuild(testGraph()), FormatJSON, nil, time.Minute, discardLogger())
	// Stop without Start should not panic.
	sched.Stop()
}

func TestSchedulerMultipleDestinations(t *testing.T) {
	dest1 := &mockDestination{name: "one"}
	dest2 := &mockDestination{name: "two"}
	sched := NewScheduler(staticBuild(testGraph()), FormatJSONL, []Destination{dest1, dest2}, time.Second, discardLogger())
	sched.Start()

	time.Sleep(50 * time.Millisecond)
	sched.Stop()

	if dest1.writes.Load() < 1 {
		t.Fatal("dest1 expected at least 1 write")
	}
	if dest2.writes.Load() < 1 {
		t.Fatal("dest2 expected at least 1 write")
	}
}

func TestRunOnce_FailingDestinationDoesNotStopOthers(t *testing.T) {
	bad := &mockDestination{name: "bad", err: errors.New("disk full")}
	good := &mockDestination{name: "good"}
	pub := &recordingPublisher{}
	sched := NewScheduler(staticBuild(testGraph()), FormatJSON, []Destination{bad, good}, time.Minute, discardLogger()).
		WithPublisher(pub)

	err := sched.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected error from failing destination")
	}
	if good.writes.Load() != 1 {
		t.Errorf("good writes = %d, want 1", good.writes.Load())
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	if pub.topics[0] != events.TopicExported {
		t.Errorf("topic = %q", pub.topics[0])
	}
	ev, ok := pub.events[0].(events.Exported)
	if !ok {
		t.Fatalf("event type = %T", pub.events[0])
	}
	if ev.Destination != "good" || ev.IssueCount != 3 || ev.Bytes == 0 || ev.RunID == "" {
		t.Errorf("event = %+v", ev)
	}
}

func TestRunOnce_BuildError(t *testing.T) {
	dest := &mockDestination{name: "mock"}
	build := func(context.Context) (*model.Graph, error) { return nil, errors.New("tracker down") }
	sched := NewScheduler(build, FormatJSON, []Destination{dest}, time.Minute, discardLogger())

	if err := sched.RunOnce(context.Background()); err == nil {
		t.Fatal("expected build error")
	}
	if dest.writes.Load() != 0 {
		t.Errorf("writes = %d, want 0 after failed build", dest.writes.Load())
	}
}
