package model

import (
	"encoding/json"
	"sort"
	"time"
)

// Graph sources recorded in Metadata.Source by the traversal engine.
const (
	SourceSingle = "single"
	SourceBulk   = "bulk"
)

// Metadata describes how a graph was built. IssueCount and
// RelationshipCount are derived from the graph's records.
type Metadata struct {
	Source            string    `json:"source"`
	IssueCount        int       `json:"issue_count"`
	RelationshipCount int       `json:"relationship_count"`
	MaxDepth          int       `json:"max_depth"`
	Timestamp         time.Time `json:"timestamp"`
	RootIssue         string    `json:"root_issue,omitempty"`
}

// Graph maps issue keys to their relationship records. Issues reference each
// other by key only.
type Graph struct {
	Metadata Metadata           `json:"metadata"`
	Issues   map[string]*Record `json:"issues"`
}

// NewGraph returns an empty graph tagged with source and the current time.
func NewGraph(source string) *Graph {
	return &Graph{
		Metadata: Metadata{
			Source:    source,
			Timestamp: time.Now().UTC(),
		},
		Issues: make(map[string]*Record),
	}
}

// AddIssue stores rec under key, replacing any record already there, and
// recomputes the metadata counters.
func (g *Graph) AddIssue(key string, rec *Record) {
	if g.Issues == nil {
		g.Issues = make(map[string]*Record)
	}
	if rec == nil {
		rec = NewRecord()
	}
	g.Issues[key] = rec
	g.updateMetadata()
}

// MergeIssue unions rec into the record already stored under key (see
// Record.Merge), or stores a copy of rec when key is new.
func (g *Graph) MergeIssue(key string, rec *Record) {
	existing, ok := g.Issues[key]
	if !ok {
		if rec == nil {
			g.AddIssue(key, NewRecord())
			return
		}
		g.AddIssue(key, rec.Clone())
		return
	}
	existing.Merge(rec)
	g.updateMetadata()
}

// ContainsIssue reports whether key has a record in the graph.
func (g *Graph) ContainsIssue(key string) bool {
	_, ok := g.Issues[key]
	return ok
}

// GetRelationships returns the record stored for key.
func (g *Graph) GetRelationships(key string) (*Record, bool) {
	rec, ok := g.Issues[key]
	return rec, ok
}

// IssueKeys returns the graph's keys in map iteration order.
func (g *Graph) IssueKeys() []string {
	keys := make([]string, 0, len(g.Issues))
	for k := range g.Issues {
		keys = append(keys, k)
	}
	return keys
}

// SortedIssueKeys returns the graph's keys in lexical order.
func (g *Graph) SortedIssueKeys() []string {
	keys := g.IssueKeys()
	sort.Strings(keys)
	return keys
}

// Equal reports whether both graphs carry the same metadata and records.
func (g *Graph) Equal(other *Graph) bool {
	if g == nil || other == nil {
		return g == other
	}
	a, b := g.Metadata, other.Metadata
	if a.Source != b.Source ||
		a.IssueCount != b.IssueCount ||
		a.RelationshipCount != b.RelationshipCount ||
		a.MaxDepth != b.MaxDepth ||
		a.RootIssue != b.RootIssue ||
		!a.Timestamp.Equal(b.Timestamp) {
		return false
	}
	if len(g.Issues) != len(other.Issues) {
		return false
	}
	for key, rec := range g.Issues {
		otherRec, ok := other.Issues[key]
		if !ok || !rec.Equal(otherRec) {
			return false
		}
	}
	return true
}

// UnmarshalJSON reads a graph document. Metadata is taken as written; null or
// missing records decode as empty ones.
func (g *Graph) UnmarshalJSON(data []byte) error {
	type graphDoc Graph
	var doc graphDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Issues == nil {
		doc.Issues = make(map[string]*Record)
	}
	for key, rec := range doc.Issues {
		if rec == nil {
			doc.Issues[key] = NewRecord()
		}
	}
	*g = Graph(doc)
	return nil
}

func (g *Graph) updateMetadata() {
	g.Metadata.IssueCount = len(g.Issues)
	total := 0
	for _, rec := range g.Issues {
		total += rec.Count()
	}
	g.Metadata.RelationshipCount = total
}
