package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/linkgraph/internal/events"
)

// sseEventParsed represents a single parsed SSE event from the stream.
type sseEventParsed struct {
	ID    string
	Event string
	Data  string
}

// sseReader reads SSE events from an HTTP response body using a bufio.Scanner.
// It sends parsed events to the returned channel and stops when the context is cancelled
// or the body is closed.
func sseReader(ctx context.Context, resp *http.Response) <-chan sseEventParsed {
	ch := make(chan sseEventParsed, 32)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(resp.Body)
		var current sseEventParsed
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "id:"):
				current.ID = strings.TrimPrefix(line, "id:")
			case strings.HasPrefix(line, "event:"):
				current.Event = strings.TrimPrefix(line, "event:")
			case strings.HasPrefix(line, "data:"):
				current.Data = strings.TrimPrefix(line, "data:")
			case line == "":
				// Empty line marks end of SSE event block.
				if current.Event != "" || current.Data != "" {
					ch <- current
					current = sseEventParsed{}
				}
			}
		}
	}()
	return ch
}

// waitForEvent reads from the SSE event channel until an event with the given
// topic is received, or the timeout expires.
func waitForEvent(t *testing.T, ch <-chan sseEventParsed, topic string, timeout time.Duration) sseEventParsed {
	t.Helper()
	timer := time.After(timeout)
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				t.Fatalf("SSE channel closed before receiving event %q", topic)
			}
			if evt.Event == topic {
				return evt
			}
			// Keep reading; may receive other events first.
		case <-timer:
			t.Fatalf("timed out waiting for SSE event %q", topic)
		}
	}
}

// startSSEClient opens an SSE connection to the test server and returns a channel
// of parsed events plus a cancel function. The caller must call cancel when done.
func startSSEClient(t *testing.T, serverURL string, queryParams string) (<-chan sseEventParsed, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	url := serverURL + "/v1/events/stream"
	if queryParams != "" {
		url += "?" + queryParams
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		cancel()
		t.Fatalf("failed to create SSE request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("failed to connect to SSE stream: %v", err)
	}

	if resp.Header.Get("Content-Type") != "text/event-stream" {
		resp.Body.Close()
		cancel()
		t.Fatalf("expected Content-Type=text/event-stream, got %q", resp.Header.Get("Content-Type"))
	}

	ch := sseReader(ctx, resp)

	// Return a wrapped cancel that also closes the body.
	cleanup := func() {
		cancel()
		resp.Body.Close()
	}

	return ch, cleanup
}

// startIntegrationServer creates a test server with a real TCP listener for
// integration tests, returning the server URL and HTTP handler for direct calls.
func startIntegrationServer(t *testing.T) (string, http.Handler, func()) {
	t.Helper()
	_, _, handler := newTestServer()
	ts := httptest.NewServer(handler)
	return ts.URL, handler, ts.Close
}

// doHTTPJSON performs an HTTP request with an optional JSON body against a real server URL.
func doHTTPJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		b, _ := json.Marshal(body)
		req, err = http.NewRequest(method, url, strings.NewReader(string(b)))
		if err != nil {
			t.Fatalf("failed to create request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, url, nil)
		if err != nil {
			t.Fatalf("failed to create request: %v", err)
		}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("HTTP request failed: %v", err)
	}
	return resp
}

// requireHTTPStatus asserts the response has the expected status code.
func requireHTTPStatus(t *testing.T, resp *http.Response, code int) {
	t.Helper()
	if resp.StatusCode != code {
		t.Fatalf("expected status %d, got %d", code, resp.StatusCode)
	}
}

// --- Integration Tests ---

func TestSSEIntegration_GraphTriggersEvent(t *testing.T) {
	serverURL, _, cleanup := startIntegrationServer(t)
	defer cleanup()

	sseEvents, sseCancel := startSSEClient(t, serverURL, "")
	defer sseCancel()

	// Give the SSE subscription time to register.
	time.Sleep(50 * time.Millisecond)

	resp := doHTTPJSON(t, "GET", serverURL+"/v1/graph/PROJ-1?depth=1", nil)
	requireHTTPStatus(t, resp, 200)
	resp.Body.Close()

	evt := waitForEvent(t, sseEvents, events.TopicGraphBuilt, 2*time.Second)
	ev, err := events.DecodeGraphBuilt([]byte(evt.Data))
	if err != nil {
		t.Fatalf("failed to parse SSE data: %v", err)
	}
	if ev.RootIssue != "PROJ-1" || ev.IssueCount != 3 {
		t.Fatalf("unexpected event payload: %+v", ev)
	}
	if evt.ID == "" {
		t.Fatal("expected SSE event to have a non-empty ID")
	}
}

func TestSSEIntegration_TopicFilterOnlyReceivesMatching(t *testing.T) {
	serverURL, _, cleanup := startIntegrationServer(t)
	defer cleanup()

	sseEvents, sseCancel := startSSEClient(t, serverURL, "topics=linkgraph.bulk.*")
	defer sseCancel()
	time.Sleep(50 * time.Millisecond)

	resp := doHTTPJSON(t, "GET", serverURL+"/v1/graph/PROJ-1", nil)
	requireHTTPStatus(t, resp, 200)
	resp.Body.Close()

	resp = doHTTPJSON(t, "POST", serverURL+"/v1/graph/bulk", map[string]any{"keys": []string{"PROJ-5"}})
	requireHTTPStatus(t, resp, 200)
	resp.Body.Close()

	// The first event delivered must be the bulk one; the single-root
	// graph was filtered out.
	select {
	case evt := <-sseEvents:
		if evt.Event != events.TopicBulkBuilt {
			t.Fatalf("expected %s, got %s", events.TopicBulkBuilt, evt.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bulk event")
	}
}

func TestSSEIntegration_MultipleClientsReceiveSameEvents(t *testing.T) {
	serverURL, _, cleanup := startIntegrationServer(t)
	defer cleanup()

	first, cancel1 := startSSEClient(t, serverURL, "")
	defer cancel1()
	second, cancel2 := startSSEClient(t, serverURL, "")
	defer cancel2()
	time.Sleep(50 * time.Millisecond)

	resp := doHTTPJSON(t, "POST", serverURL+"/v1/graph/bulk", map[string]any{"keys": []string{"PROJ-1", "PROJ-2"}})
	requireHTTPStatus(t, resp, 200)
	resp.Body.Close()

	a := waitForEvent(t, first, events.TopicBulkBuilt, 2*time.Second)
	b := waitForEvent(t, second, events.TopicBulkBuilt, 2*time.Second)
	if a.ID != b.ID || a.Data != b.Data {
		t.Fatalf("clients saw different events: %+v vs %+v", a, b)
	}
}

func TestSSEIntegration_FailedRequestPublishesNothing(t *testing.T) {
	serverURL, _, cleanup := startIntegrationServer(t)
	defer cleanup()

	sseEvents, sseCancel := startSSEClient(t, serverURL, "")
	defer sseCancel()
	time.Sleep(50 * time.Millisecond)

	resp := doHTTPJSON(t, "GET", serverURL+"/v1/graph/PROJ-1?depth=-3", nil)
	requireHTTPStatus(t, resp, 400)
	resp.Body.Close()

	select {
	case evt := <-sseEvents:
		t.Fatalf("unexpected event %+v", evt)
	case <-time.After(200 * time.Millisecond):
	}
}

// --- Hub tests ---

func TestSSEHub_BroadcastAndReceive(t *testing.T) {
	hub := newSSEHub()
	client, _ := hub.subscribe(nil, 0)
	defer hub.unsubscribe(client)

	hub.broadcast(events.TopicGraphBuilt, []byte(`{"root_issue":"PROJ-1"}`))

	select {
	case evt := <-client.ch:
		if evt.Topic != events.TopicGraphBuilt || evt.ID != 1 {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSSEHub_ReplaySinceLastID(t *testing.T) {
	hub := newSSEHub()
	for range 3 {
		hub.broadcast(events.TopicGraphBuilt, []byte(`{}`))
	}
	hub.broadcast(events.TopicBulkBuilt, []byte(`{}`))

	client, replay := hub.subscribe([]string{"linkgraph.graph.*"}, 1)
	defer hub.unsubscribe(client)
	if len(replay) != 2 || replay[0].ID != 2 || replay[1].ID != 3 {
		t.Fatalf("expected events 2 and 3 replayed, got %+v", replay)
	}
}

func TestSSEHub_ReplayBufferBounded(t *testing.T) {
	hub := newSSEHub()
	for range sseReplaySize + 10 {
		hub.broadcast(events.TopicGraphBuilt, []byte(`{}`))
	}
	if len(hub.recent) != sseReplaySize {
		t.Fatalf("expected %d buffered events, got %d", sseReplaySize, len(hub.recent))
	}
	if hub.recent[0].ID != 11 {
		t.Fatalf("expected oldest kept event id 11, got %d", hub.recent[0].ID)
	}
}

func TestMatchTopicPattern(t *testing.T) {
	tests := []struct {
		pattern, topic string
		want           bool
	}{
		{"linkgraph.graph.built", "linkgraph.graph.built", true},
		{"linkgraph.graph.*", "linkgraph.graph.built", true},
		{"linkgraph.*", "linkgraph.graph.built", false},
		{"linkgraph.>", "linkgraph.graph.built", true},
		{"linkgraph.>", "linkgraph", false},
		{"linkgraph.bulk.*", "linkgraph.graph.built", false},
		{"*.graph.built", "linkgraph.graph.built", true},
	}
	for _, tt := range tests {
		if got := matchTopicPattern(tt.pattern, tt.topic); got != tt.want {
			t.Errorf("matchTopicPattern(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
		}
	}
}

func TestHandleEventStream_Headers(t *testing.T) {
	_, _, h := newTestServer()
	ts := httptest.NewServer(h)
	defer ts.Close()

	_, cancel := startSSEClient(t, ts.URL, "topics=linkgraph.>")
	cancel()
}
