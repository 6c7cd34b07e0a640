package traverse

import "github.com/alfredjeanlab/linkgraph/internal/model"

// inferredEdge is a converse relationship owed to Target's record.
type inferredEdge struct {
	Target string
	Type   string
	Source string
}

// buildRecord converts fetched links into a record, keeping only the edges
// opts allows. Inward links are recorded under the converse type and only
// when opts.Bidirectional is set; custom types have no converse and keep
// their name in both directions. When opts.InferConverse is set the converse
// of every recorded edge is returned for the caller to apply.
func buildRecord(key string, raw *RawLinks, opts model.GraphOptions) (*model.Record, []inferredEdge) {
	rec := model.NewRecord()
	var inferred []inferredEdge

	add := func(typeName, target string) {
		if target == "" || !opts.Allows(typeName) {
			return
		}
		rec.AddRelationship(typeName, target)
		if !opts.InferConverse {
			return
		}
		conv, ok := model.ParseRelationType(typeName).Converse()
		if !ok || !opts.Allows(conv.String()) {
			return
		}
		inferred = append(inferred, inferredEdge{Target: target, Type: conv.String(), Source: key})
	}

	for _, l := range raw.Links {
		typeName := l.Type
		if l.Direction == Inward {
			if !opts.Bidirectional {
				continue
			}
			if conv, ok := model.ParseRelationType(l.Type).Converse(); ok {
				typeName = conv.String()
			}
		}
		add(typeName, l.Key)
	}
	add(model.TypeParent, raw.Parent)
	add(model.TypeEpic, raw.Epic)
	for _, child := range raw.Children {
		add(model.TypeChildren, child)
	}
	return rec, inferred
}

// applyInferred merges pending converse edges into the records of targets
// present in g. Edges already recorded are not repeated and an existing
// parent or epic is never replaced.
func applyInferred(g *model.Graph, pending []inferredEdge) {
	byTarget := make(map[string]*model.Record)
	var order []string
	for _, e := range pending {
		if !g.ContainsIssue(e.Target) {
			continue
		}
		rec, ok := byTarget[e.Target]
		if !ok {
			rec = model.NewRecord()
			byTarget[e.Target] = rec
			order = append(order, e.Target)
		}
		rec.AddRelationship(e.Type, e.Source)
	}
	for _, target := range order {
		g.MergeIssue(target, byTarget[target])
	}
}
