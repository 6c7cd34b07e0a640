package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/linkgraph/internal/events"
	"github.com/alfredjeanlab/linkgraph/internal/model"
	"github.com/alfredjeanlab/linkgraph/internal/ui"
)

func init() {
	ui.SetColor(false)
}

// chainGraph: A blocks B and C, C blocks A, D records blocked_by C.
func chainGraph() *model.Graph {
	g := model.NewGraph(model.SourceSingle)
	g.Metadata.RootIssue = "A"
	g.Metadata.MaxDepth = 2

	a := model.NewRecord()
	a.AddRelationship(model.TypeBlocks, "B")
	a.AddRelationship(model.TypeBlocks, "C")
	a.AddRelationship(model.TypeRelatesTo, "X")
	g.AddIssue("A", a)

	g.AddIssue("B", model.NewRecord())

	c := model.NewRecord()
	c.AddRelationship(model.TypeBlocks, "A")
	g.AddIssue("C", c)

	d := model.NewRecord()
	d.AddRelationship(model.TypeBlockedBy, "C")
	g.AddIssue("D", d)
	return g
}

func TestPrintGraph(t *testing.T) {
	var buf bytes.Buffer
	printGraph(&buf, chainGraph())
	out := buf.String()

	for _, want := range []string{
		"A\n",
		"blocks      B",
		"relates_to  X (not fetched)",
		"(no relationships)",
		"4 issues, 5 relationships (root A, depth 2)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintGraph_BulkSummary(t *testing.T) {
	g := model.NewGraph(model.SourceBulk)
	g.AddIssue("A", model.NewRecord())

	var buf bytes.Buffer
	printGraph(&buf, g)
	if !strings.Contains(buf.String(), "1 issues, 0 relationships (bulk)") {
		t.Fatalf("unexpected summary:\n%s", buf.String())
	}
}

func TestPrintChainTree(t *testing.T) {
	var buf bytes.Buffer
	printChainTree(&buf, chainGraph(), "A", model.TypeBlocks)

	want := strings.Join([]string{
		"A",
		"├── blocks B",
		"└── blocks C",
		"    ├── blocks A (cycle)",
		"    └── blocks D",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("tree mismatch\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestChainChildren_UsesConverse(t *testing.T) {
	got := chainChildren(chainGraph(), "C", model.TypeBlocks)
	if strings.Join(got, ",") != "A,D" {
		t.Fatalf("expected [A D], got %v", got)
	}
}

func TestPrintPath(t *testing.T) {
	var buf bytes.Buffer
	printPath(&buf, []string{"A", "C", "D"})
	if buf.String() != "A -> C -> D\n2 hops\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestPrintCycles(t *testing.T) {
	var buf bytes.Buffer
	printCycles(&buf, nil)
	if !strings.Contains(buf.String(), "No cycles found.") {
		t.Fatalf("unexpected output %q", buf.String())
	}

	buf.Reset()
	printCycles(&buf, [][]string{{"A", "C"}})
	if !strings.Contains(buf.String(), "cycle A -> C -> A") || !strings.Contains(buf.String(), "1 cycles") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestPrintEvent(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	graphEvent, _ := jsonBytes(events.GraphBuilt{
		ID: "ev-1", Source: model.SourceSingle, RootIssue: "A",
		IssueCount: 4, RelationshipCount: 5, Timestamp: ts,
	})
	bulkEvent, _ := jsonBytes(events.GraphBuilt{
		ID: "ev-2", Source: model.SourceBulk, Seeds: []string{"A", "B"},
		IssueCount: 2, Timestamp: ts,
	})
	exportEvent, _ := jsonBytes(events.Exported{
		RunID: "run-1", Destination: "file:/tmp/g.json", IssueCount: 4, Bytes: 120, Timestamp: ts,
	})

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"graph", graphEvent, "12:30:00 single root A: 4 issues, 5 relationships\n"},
		{"bulk", bulkEvent, "12:30:00 bulk 2 seeds: 2 issues, 0 relationships\n"},
		{"export", exportEvent, "12:30:00 export file:/tmp/g.json: 4 issues, 120 bytes\n"},
		{"garbage", []byte("nope"), "unreadable event nope\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printEvent(&buf, tt.data)
			if buf.String() != tt.want {
				t.Fatalf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestColorizeHelp(t *testing.T) {
	ui.SetColor(true)
	defer ui.SetColor(false)

	out := colorizeHelp("Graphs:\n  graph       Traverse\n")
	if !strings.Contains(out, ui.RenderAccent("Graphs:")) {
		t.Fatalf("section header not styled: %q", out)
	}
	if !strings.Contains(out, ui.RenderCommand("graph")) {
		t.Fatalf("command name not styled: %q", out)
	}
}
