package model

import (
	"slices"
	"sort"
)

// GetPath returns the shortest chain of issue keys linking from to to,
// treating every relationship as traversable in both directions. Only keys
// with a record in the graph are visited, so unfetched keys are dead ends.
// The same holds for the destination: a key named by a fetched record but
// left outside the depth limit has no path. The path from a key to itself is just that key.
func (g *Graph) GetPath(from, to string) ([]string, bool) {
	if from == to {
		return []string{from}, true
	}
	if !g.ContainsIssue(from) || !g.ContainsIssue(to) {
		return nil, false
	}

	adj := g.undirectedAdjacency()
	parent := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adj[current] {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = current
			if next == to {
				return buildPath(parent, from, to), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

// Neighbors returns the keys in the graph connected to key by a relationship
// in either direction, sorted.
func (g *Graph) Neighbors(key string) []string {
	return g.undirectedAdjacency()[key]
}

// HasCycle reports whether a directed route of at least one edge leads from
// key back to key. When types are given only relationships of those types
// are followed, exactly as recorded. Without types, a link recorded on both
// ends (A blocks B, B blocked_by A) counts as a single edge.
func (g *Graph) HasCycle(key string, types ...string) bool {
	if !g.ContainsIssue(key) {
		return false
	}
	adj := g.directedAdjacency(types)
	onStack := make(map[string]bool)
	done := make(map[string]bool)

	var visit func(string) bool
	visit = func(node string) bool {
		onStack[node] = true
		for _, next := range adj[node] {
			if next == key {
				return true
			}
			if onStack[next] || done[next] {
				continue
			}
			if visit(next) {
				return true
			}
		}
		onStack[node] = false
		done[node] = true
		return false
	}
	return visit(key)
}

// FindCycles lists every elementary directed cycle in the graph, each one
// starting at its lexically smallest key. Cycles are sorted by length, then
// lexically. Edges are chosen as in HasCycle. The search is exhaustive and
// can be expensive on dense graphs.
func (g *Graph) FindCycles(types ...string) [][]string {
	adj := g.directedAdjacency(types)
	var cycles [][]string

	for _, start := range g.SortedIssueKeys() {
		onPath := map[string]bool{start: true}
		path := []string{start}

		var walk func(string)
		walk = func(node string) {
			for _, next := range adj[node] {
				switch {
				case next == start:
					cycles = append(cycles, slices.Clone(path))
				case next < start || onPath[next]:
				default:
					onPath[next] = true
					path = append(path, next)
					walk(next)
					path = path[:len(path)-1]
					onPath[next] = false
				}
			}
		}
		walk(start)
	}

	sort.Slice(cycles, func(i, j int) bool {
		if len(cycles[i]) != len(cycles[j]) {
			return len(cycles[i]) < len(cycles[j])
		}
		return slices.Compare(cycles[i], cycles[j]) < 0
	})
	return cycles
}

func (g *Graph) undirectedAdjacency() map[string][]string {
	sets := make(map[string]map[string]struct{}, len(g.Issues))
	link := func(a, b string) {
		if sets[a] == nil {
			sets[a] = make(map[string]struct{})
		}
		sets[a][b] = struct{}{}
	}
	for key, rec := range g.Issues {
		for _, other := range rec.AllRelated() {
			if other == key || !g.ContainsIssue(other) {
				continue
			}
			link(key, other)
			link(other, key)
		}
	}
	return sortedAdjacency(sets)
}

func (g *Graph) directedAdjacency(types []string) map[string][]string {
	sets := make(map[string]map[string]struct{}, len(g.Issues))
	for key, rec := range g.Issues {
		for _, e := range rec.Edges() {
			if len(types) > 0 && !slices.Contains(types, e.Type) {
				continue
			}
			if !g.ContainsIssue(e.Target) {
				continue
			}
			if len(types) == 0 && g.isEcho(key, e) {
				continue
			}
			if sets[key] == nil {
				sets[key] = make(map[string]struct{})
			}
			sets[key][e.Target] = struct{}{}
		}
	}
	return sortedAdjacency(sets)
}

// isEcho reports whether the edge from key is the redundant half of a link
// both ends record: the target holds key under the converse type and that
// converse edge is the one kept. Of a converse pair the lower kind is kept;
// for symmetric types the edge leaving the smaller key is kept.
func (g *Graph) isEcho(key string, e Edge) bool {
	t := ParseRelationType(e.Type)
	conv, ok := t.Converse()
	if !ok {
		return false
	}
	target := g.Issues[e.Target]
	if target == nil || !target.Has(conv.String(), key) {
		return false
	}
	if conv.Kind == t.Kind {
		return e.Target < key
	}
	return conv.Kind < t.Kind
}

func sortedAdjacency(sets map[string]map[string]struct{}) map[string][]string {
	adj := make(map[string][]string, len(sets))
	for key, set := range sets {
		keys := make([]string, 0, len(set))
		for k := range set {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		adj[key] = keys
	}
	return adj
}

func buildPath(parent map[string]string, from, to string) []string {
	var path []string
	for node := to; node != from; node = parent[node] {
		path = append(path, node)
	}
	path = append(path, from)
	slices.Reverse(path)
	return path
}
