package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/linkgraph/internal/model"
	"github.com/alfredjeanlab/linkgraph/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printGraph lists every issue in key order with its relationships.
func printGraph(w io.Writer, g *model.Graph) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, key := range g.SortedIssueKeys() {
		rec, _ := g.GetRelationships(key)
		fmt.Fprintf(tw, "%s\n", ui.RenderKey(key))
		edges := rec.Edges()
		if len(edges) == 0 {
			fmt.Fprintf(tw, "  %s\n", ui.RenderMuted("(no relationships)"))
			continue
		}
		for _, e := range edges {
			target := e.Target
			if !g.ContainsIssue(target) {
				target += " " + ui.RenderWarn("(not fetched)")
			}
			fmt.Fprintf(tw, "  %s\t%s\n", ui.RenderType(e.Type), target)
		}
	}
	tw.Flush()
	printSummary(w, g)
}

func printSummary(w io.Writer, g *model.Graph) {
	m := g.Metadata
	switch m.Source {
	case model.SourceBulk:
		fmt.Fprintf(w, "\n%d issues, %d relationships (bulk)\n", m.IssueCount, m.RelationshipCount)
	default:
		fmt.Fprintf(w, "\n%d issues, %d relationships (root %s, depth %d)\n",
			m.IssueCount, m.RelationshipCount, m.RootIssue, m.MaxDepth)
	}
}

// chainChildren returns the issues key points at through relType, including
// issues that record the converse type pointing back at key. The result is
// sorted and free of duplicates.
func chainChildren(g *model.Graph, key, relType string) []string {
	var out []string
	if rec, ok := g.GetRelationships(key); ok {
		for _, e := range rec.Edges() {
			if e.Type == relType {
				out = append(out, e.Target)
			}
		}
	}
	if conv, ok := model.ParseRelationType(relType).Converse(); ok {
		for _, other := range g.SortedIssueKeys() {
			rec, _ := g.GetRelationships(other)
			if rec.Has(conv.String(), key) {
				out = append(out, other)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// printChainTree renders the relType chains starting at root as an ASCII
// tree. An issue already on the current branch is marked as a cycle and not
// expanded again.
func printChainTree(w io.Writer, g *model.Graph, root, relType string) {
	fmt.Fprintln(w, ui.RenderKey(root))
	onBranch := map[string]bool{root: true}

	var walk func(key, prefix string)
	walk = func(key, prefix string) {
		children := chainChildren(g, key, relType)
		for i, child := range children {
			connector, childPrefix := "├── ", prefix+"│   "
			if i == len(children)-1 {
				connector, childPrefix = "└── ", prefix+"    "
			}

			var note string
			switch {
			case onBranch[child]:
				note = " " + ui.RenderWarn("(cycle)")
			case !g.ContainsIssue(child):
				note = " " + ui.RenderWarn("(not fetched)")
			}
			fmt.Fprintf(w, "%s%s%s %s%s\n", prefix, connector, ui.RenderType(relType), ui.RenderKey(child), note)
			if note != "" {
				continue
			}
			onBranch[child] = true
			walk(child, childPrefix)
			onBranch[child] = false
		}
	}
	walk(root, "")
}

func printPath(w io.Writer, path []string) {
	keys := make([]string, len(path))
	for i, k := range path {
		keys[i] = ui.RenderKey(k)
	}
	fmt.Fprintln(w, strings.Join(keys, " -> "))
	fmt.Fprintf(w, "%d hops\n", len(path)-1)
}

func printCycles(w io.Writer, cycles [][]string) {
	if len(cycles) == 0 {
		fmt.Fprintln(w, "No cycles found.")
		return
	}
	for _, c := range cycles {
		loop := append(slices.Clone(c), c[0])
		keys := make([]string, len(loop))
		for i, k := range loop {
			keys[i] = ui.RenderKey(k)
		}
		fmt.Fprintln(w, ui.RenderWarn("cycle")+" "+strings.Join(keys, " -> "))
	}
	fmt.Fprintf(w, "\n%d cycles\n", len(cycles))
}
