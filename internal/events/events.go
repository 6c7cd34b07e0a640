// Package events publishes notifications about built relationship graphs to
// an event bus so downstream tools can react without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alfredjeanlab/linkgraph/internal/model"
)

// Event topic constants
const (
	TopicAll        = "linkgraph.>"
	TopicGraphBuilt = "linkgraph.graph.built"
	TopicBulkBuilt  = "linkgraph.bulk.built"
	TopicExported   = "linkgraph.export.written"
)

// GraphBuilt announces a finished traversal or bulk extraction. It carries
// the metadata only; subscribers fetch the graph itself if they need it.
type GraphBuilt struct {
	ID                string    `json:"id"`
	Source            string    `json:"source"`
	RootIssue         string    `json:"root_issue,omitempty"`
	Seeds             []string  `json:"seeds,omitempty"`
	IssueCount        int       `json:"issue_count"`
	RelationshipCount int       `json:"relationship_count"`
	MaxDepth          int       `json:"max_depth"`
	Timestamp         time.Time `json:"timestamp"`
}

// Exported announces a graph document written to a destination.
type Exported struct {
	RunID       string    `json:"run_id"`
	Destination string    `json:"destination"`
	IssueCount  int       `json:"issue_count"`
	Bytes       int       `json:"bytes"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewGraphBuilt summarizes g for publication under event id.
func NewGraphBuilt(id string, g *model.Graph, seeds []string) GraphBuilt {
	return GraphBuilt{
		ID:                id,
		Source:            g.Metadata.Source,
		RootIssue:         g.Metadata.RootIssue,
		Seeds:             seeds,
		IssueCount:        g.Metadata.IssueCount,
		RelationshipCount: g.Metadata.RelationshipCount,
		MaxDepth:          g.Metadata.MaxDepth,
		Timestamp:         g.Metadata.Timestamp,
	}
}

// TopicFor returns the topic a graph with the given source is published on.
func TopicFor(source string) string {
	if source == model.SourceBulk {
		return TopicBulkBuilt
	}
	return TopicGraphBuilt
}

// DecodeGraphBuilt parses a GraphBuilt payload received from a Subscriber.
func DecodeGraphBuilt(data []byte) (GraphBuilt, error) {
	var ev GraphBuilt
	if err := json.Unmarshal(data, &ev); err != nil {
		return GraphBuilt{}, fmt.Errorf("decoding graph event: %w", err)
	}
	return ev, nil
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
