package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/linkgraph/internal/model"
)

func testGraph(source string) *model.Graph {
	g := model.NewGraph(source)
	rec := model.NewRecord()
	rec.AddRelationship("blocks", "B")
	g.AddIssue("A", rec)
	if source == model.SourceSingle {
		g.Metadata.RootIssue = "A"
		g.Metadata.MaxDepth = 2
	}
	return g
}

func TestNoopPublisher_Publish(t *testing.T) {
	pub := &NoopPublisher{}
	err := pub.Publish(context.Background(), TopicGraphBuilt, GraphBuilt{})
	if err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
}

func TestNoopPublisher_Close(t *testing.T) {
	pub := &NoopPublisher{}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestNoopPublisher_ImplementsPublisher(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
}

func TestNATSPublisher_ImplementsPublisher(t *testing.T) {
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestNewGraphBuilt(t *testing.T) {
	g := testGraph(model.SourceSingle)
	ev := NewGraphBuilt("evt-abc", g, nil)
	if ev.ID != "evt-abc" || ev.Source != "single" || ev.RootIssue != "A" {
		t.Errorf("event = %+v", ev)
	}
	if ev.IssueCount != 1 || ev.RelationshipCount != 1 || ev.MaxDepth != 2 {
		t.Errorf("counts = %d/%d/%d, want 1/1/2", ev.IssueCount, ev.RelationshipCount, ev.MaxDepth)
	}
	if !ev.Timestamp.Equal(g.Metadata.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, g.Metadata.Timestamp)
	}
}

func TestTopicFor(t *testing.T) {
	if got := TopicFor(model.SourceSingle); got != TopicGraphBuilt {
		t.Errorf("TopicFor(single) = %q", got)
	}
	if got := TopicFor(model.SourceBulk); got != TopicBulkBuilt {
		t.Errorf("TopicFor(bulk) = %q", got)
	}
}

func TestDecodeGraphBuilt(t *testing.T) {
	data, err := json.Marshal(NewGraphBuilt("run-1", testGraph(model.SourceBulk), []string{"A"}))
	if err != nil {
		t.Fatal(err)
	}
	ev, err := DecodeGraphBuilt(data)
	if err != nil {
		t.Fatalf("DecodeGraphBuilt: %v", err)
	}
	if ev.Source != "bulk" || len(ev.Seeds) != 1 || ev.Seeds[0] != "A" || ev.RootIssue != "" {
		t.Errorf("event = %+v", ev)
	}
	if _, err := DecodeGraphBuilt([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicGraphBuilt, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	event := NewGraphBuilt("evt-pub1", testGraph(model.SourceSingle), nil)
	if err := pub.Publish(context.Background(), TopicGraphBuilt, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	select {
	case msg := <-ch:
		got, err := DecodeGraphBuilt(msg.Data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != "evt-pub1" || got.RootIssue != "A" {
			t.Errorf("got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_PublishWithDeadline(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pub.Publish(ctx, TopicExported, Exported{RunID: "run-1", Destination: "file"}); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
}

func TestNATSPublisher_PublishMultipleTopics(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 3)
	sub, err := nc.ChanSubscribe(TopicAll, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	for _, tc := range []struct {
		topic string
		event any
	}{
		{TopicGraphBuilt, NewGraphBuilt("run-1", testGraph(model.SourceSingle), nil)},
		{TopicBulkBuilt, NewGraphBuilt("run-2", testGraph(model.SourceBulk), []string{"A"})},
		{TopicExported, Exported{RunID: "run-3", Destination: "s3"}},
	} {
		if err := pub.Publish(context.Background(), tc.topic, tc.event); err != nil {
			t.Fatalf("Publish(%s): %v", tc.topic, err)
		}
	}

	for i := 0; i < 3; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if err := pub.Publish(context.Background(), TopicGraphBuilt, GraphBuilt{}); err == nil {
		t.Error("expected error publishing after close")
	}
}
