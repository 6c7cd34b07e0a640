package model

import "slices"

// GraphOptions controls which relationships a traversal records and follows.
// A nil IncludeTypes allows every type; ExcludeTypes is applied after it.
type GraphOptions struct {
	IncludeTypes  []string `json:"include_types,omitempty" toml:"include_types"`
	ExcludeTypes  []string `json:"exclude_types,omitempty" toml:"exclude_types"`
	IncludeCustom bool     `json:"include_custom" toml:"include_custom"`

	// Bidirectional records links the tracker reports in the inward
	// direction (as the converse type) and follows them. It does not invent
	// converses for links the tracker only reports on one end; InferConverse
	// does that.
	Bidirectional bool `json:"bidirectional" toml:"bidirectional"`

	// InferConverse adds the converse of every recorded edge to the target's
	// record when the target is part of the finished graph.
	InferConverse bool `json:"infer_converse,omitempty" toml:"infer_converse"`
}

// DefaultGraphOptions allows every type, including custom ones, and records
// links in both directions.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		IncludeCustom: true,
		Bidirectional: true,
	}
}

// Allows reports whether relationships of the named type pass the filter.
func (o GraphOptions) Allows(typeName string) bool {
	if o.IncludeTypes != nil && !slices.Contains(o.IncludeTypes, typeName) {
		return false
	}
	if o.ExcludeTypes != nil && slices.Contains(o.ExcludeTypes, typeName) {
		return false
	}
	if !o.IncludeCustom && !IsBuiltinType(typeName) {
		return false
	}
	return true
}
