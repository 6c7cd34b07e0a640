package model

import (
	"encoding/json"
	"slices"
	"testing"
)

func record(pairs ...string) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.AddRelationship(pairs[i], pairs[i+1])
	}
	return r
}

func TestNewGraph(t *testing.T) {
	g := NewGraph("test")
	if g.Metadata.Source != "test" {
		t.Errorf("Source = %q, want test", g.Metadata.Source)
	}
	if g.Metadata.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if g.Metadata.IssueCount != 0 || g.Metadata.RelationshipCount != 0 {
		t.Errorf("counters = %+v, want zero", g.Metadata)
	}
}

func TestGraph_AddIssue(t *testing.T) {
	g := NewGraph("test")
	rec := record("blocks", "B", "blocks", "C", "parent", "P", "clones", "D")
	g.AddIssue("A", rec)

	if !g.ContainsIssue("A") {
		t.Fatal("ContainsIssue(A) = false")
	}
	got, ok := g.GetRelationships("A")
	if !ok || got != rec {
		t.Fatalf("GetRelationships(A) = %v, %v; want inserted record", got, ok)
	}
	if g.Metadata.IssueCount != 1 {
		t.Errorf("IssueCount = %d, want 1", g.Metadata.IssueCount)
	}
	if g.Metadata.RelationshipCount != 4 {
		t.Errorf("RelationshipCount = %d, want 4", g.Metadata.RelationshipCount)
	}
	if _, ok := g.GetRelationships("missing"); ok {
		t.Error("GetRelationships(missing) should report false")
	}
}

func TestGraph_AddIssueOverwrites(t *testing.T) {
	g := NewGraph("test")
	g.AddIssue("A", record("blocks", "B", "blocks", "C"))
	g.AddIssue("B", record("relates_to", "A"))
	g.AddIssue("A", record("epic", "E"))

	if g.Metadata.IssueCount != 2 {
		t.Errorf("IssueCount = %d, want 2", g.Metadata.IssueCount)
	}
	if g.Metadata.RelationshipCount != 2 {
		t.Errorf("RelationshipCount = %d, want 2 (latest A record only)", g.Metadata.RelationshipCount)
	}
	rec, _ := g.GetRelationships("A")
	if len(rec.Blocks) != 0 || rec.Epic != "E" {
		t.Errorf("A = %+v, want only epic E", rec)
	}
}

func TestGraph_MergeIssue(t *testing.T) {
	g := NewGraph("test")
	g.MergeIssue("A", record("blocks", "B"))
	g.MergeIssue("A", record("blocks", "B", "blocks", "C", "parent", "P"))
	g.MergeIssue("A", record("parent", "Q"))

	rec, _ := g.GetRelationships("A")
	if !slices.Equal(rec.Blocks, []string{"B", "C"}) {
		t.Errorf("Blocks = %v, want [B C]", rec.Blocks)
	}
	if rec.Parent != "P" {
		t.Errorf("Parent = %q, want P", rec.Parent)
	}
	if g.Metadata.RelationshipCount != 3 {
		t.Errorf("RelationshipCount = %d, want 3", g.Metadata.RelationshipCount)
	}
}

func TestGraph_SortedIssueKeys(t *testing.T) {
	g := NewGraph("test")
	for _, k := range []string{"C", "A", "B"} {
		g.AddIssue(k, nil)
	}
	if got := g.SortedIssueKeys(); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Errorf("SortedIssueKeys() = %v", got)
	}
	if got := g.IssueKeys(); len(got) != 3 {
		t.Errorf("IssueKeys() = %v, want 3 keys", got)
	}
}

func TestGraph_JSONRoundTrip(t *testing.T) {
	g := NewGraph("single")
	g.Metadata.RootIssue = "PROJ-123"
	g.Metadata.MaxDepth = 2
	g.AddIssue("PROJ-123", record("blocks", "PROJ-124", "blocked_by", "PROJ-122", "parent", "PROJ-100"))
	g.AddIssue("PROJ-124", record("relates_to", "PROJ-125", "clones", "PROJ-9"))
	g.AddIssue("PROJ-125", nil)

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Graph
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Equal(g) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, g)
	}

	var doc map[string]map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal doc: %v", err)
	}
	issue := doc["issues"]["PROJ-124"].(map[string]any)
	if _, ok := issue["clones"]; !ok {
		t.Error("custom type should be flattened next to the built-in fields")
	}
	if issue["parent"] != nil {
		t.Errorf("parent = %v, want null", issue["parent"])
	}
}

func TestGraph_UnmarshalNullRecord(t *testing.T) {
	var g Graph
	if err := json.Unmarshal([]byte(`{"issues":{"A":{"blocks":["B"]},"B":null}}`), &g); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	rec, ok := g.GetRelationships("B")
	if !ok || rec == nil || !rec.IsEmpty() {
		t.Fatalf("B = %+v, %v; want an empty record", rec, ok)
	}
	path, ok := g.GetPath("A", "B")
	if !ok || !slices.Equal(path, []string{"A", "B"}) {
		t.Errorf("GetPath(A, B) = %v, %v", path, ok)
	}

	var empty Graph
	if err := json.Unmarshal([]byte(`{"metadata":{"source":"bulk"}}`), &empty); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if empty.Issues == nil || empty.Metadata.Source != SourceBulk {
		t.Errorf("graph without issues = %+v", empty)
	}
}

func TestGraph_RoundTripEmptyCustomType(t *testing.T) {
	g := NewGraph("test")
	g.AddIssue("A", &Record{Custom: map[string][]string{"clones": {}}})

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Graph
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Equal(g) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got.Issues["A"], g.Issues["A"])
	}
}

func TestGraph_Equal(t *testing.T) {
	a := NewGraph("test")
	a.AddIssue("A", record("blocks", "B"))
	b := &Graph{Metadata: a.Metadata, Issues: map[string]*Record{"A": record("blocks", "B")}}
	if !a.Equal(b) {
		t.Error("graphs with same content should be equal")
	}
	b.Issues["A"].AddRelationship("blocks", "C")
	if a.Equal(b) {
		t.Error("graphs with different records should differ")
	}
	if a.Equal(nil) {
		t.Error("graph should not equal nil")
	}
}

func TestGraphOptions_Allows(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts GraphOptions
		typ  string
		want bool
	}{
		{"default builtin", DefaultGraphOptions(), "blocks", true},
		{"default custom", DefaultGraphOptions(), "clones", true},
		{"include hit", GraphOptions{IncludeTypes: []string{"blocks"}, IncludeCustom: true}, "blocks", true},
		{"include miss", GraphOptions{IncludeTypes: []string{"blocks"}, IncludeCustom: true}, "relates_to", false},
		{"empty include allows nothing", GraphOptions{IncludeTypes: []string{}, IncludeCustom: true}, "blocks", false},
		{"exclude after include", GraphOptions{IncludeTypes: []string{"blocks"}, ExcludeTypes: []string{"blocks"}, IncludeCustom: true}, "blocks", false},
		{"exclude miss", GraphOptions{ExcludeTypes: []string{"relates_to"}, IncludeCustom: true}, "blocks", true},
		{"no custom", GraphOptions{}, "clones", false},
		{"no custom builtin", GraphOptions{}, "epic", true},
		{"include custom name without custom", GraphOptions{IncludeTypes: []string{"clones"}}, "clones", false},
	} {
		if got := tc.opts.Allows(tc.typ); got != tc.want {
			t.Errorf("%s: Allows(%q) = %v, want %v", tc.name, tc.typ, got, tc.want)
		}
	}
}
