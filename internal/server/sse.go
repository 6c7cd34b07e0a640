package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// sseReplaySize is how many recent events are kept for Last-Event-ID
	// reconnection.
	sseReplaySize = 256

	// sseKeepaliveInterval is how often keepalive comments are sent to
	// prevent connection timeouts.
	sseKeepaliveInterval = 15 * time.Second
)

// sseEvent is one event sent to stream clients.
type sseEvent struct {
	ID    uint64 // monotonically increasing sequence number
	Topic string
	Data  []byte // JSON-encoded payload
}

// sseHub fans out graph events to connected stream clients and keeps the
// most recent ones for replay.
type sseHub struct {
	mu      sync.Mutex
	clients map[*sseClient]struct{}
	nextID  uint64
	recent  []*sseEvent // oldest first, at most sseReplaySize
}

// sseClient is a single connected stream consumer.
type sseClient struct {
	topics []string // topic patterns to match (empty = all)
	ch     chan *sseEvent
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*sseClient]struct{})}
}

// broadcast records an event and delivers it to every matching client.
// Slow clients miss events rather than block the caller.
func (h *sseHub) broadcast(topic string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	evt := &sseEvent{ID: h.nextID, Topic: topic, Data: payload}
	h.recent = append(h.recent, evt)
	if len(h.recent) > sseReplaySize {
		h.recent = h.recent[len(h.recent)-sseReplaySize:]
	}

	for c := range h.clients {
		if c.matches(topic) {
			select {
			case c.ch <- evt:
			default:
			}
		}
	}
}

// subscribe registers a client and returns it along with the buffered events
// newer than lastID that it should replay first.
func (h *sseHub) subscribe(topics []string, lastID uint64) (*sseClient, []*sseEvent) {
	c := &sseClient{topics: topics, ch: make(chan *sseEvent, 64)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}

	var replay []*sseEvent
	if lastID > 0 {
		for _, evt := range h.recent {
			if evt.ID > lastID && c.matches(evt.Topic) {
				replay = append(replay, evt)
			}
		}
	}
	return c, replay
}

func (h *sseHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (c *sseClient) matches(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, pattern := range c.topics {
		if matchTopicPattern(pattern, topic) {
			return true
		}
	}
	return false
}

// matchTopicPattern matches a dot-separated topic against a pattern.
// "*" matches one segment; a trailing ">" matches one or more (NATS-style).
func matchTopicPattern(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	patParts := strings.Split(pattern, ".")
	topParts := strings.Split(topic, ".")
	for i, pp := range patParts {
		if pp == ">" {
			return i < len(topParts)
		}
		if i >= len(topParts) || (pp != "*" && pp != topParts[i]) {
			return false
		}
	}
	return len(patParts) == len(topParts)
}

// handleEventStream handles GET /v1/events/stream, a server-sent event
// stream of graph-built notifications. ?topics=a,b filters by topic pattern.
func (s *GraphServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var lastID uint64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		lastID, _ = strconv.ParseUint(v, 10, 64)
	}
	client, replay := s.hub.subscribe(splitList(r.URL.Query().Get("topics")), lastID)
	defer s.hub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	for _, evt := range replay {
		writeSSEEvent(w, evt)
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			writeSSEEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, evt *sseEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}
