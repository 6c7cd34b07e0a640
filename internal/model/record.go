package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
)

// Record holds the relationships declared by (or inferred for) one issue.
// Sequence fields keep insertion order and are not deduplicated; Parent and
// Epic are empty when unset.
type Record struct {
	Blocks     []string
	BlockedBy  []string
	RelatesTo  []string
	Duplicates []string
	Parent     string
	Children   []string
	Epic       string
	Custom     map[string][]string
}

// Edge is one typed relationship from a record's issue to Target.
type Edge struct {
	Type   string `json:"type"`
	Target string `json:"target"`
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{}
}

// AddRelationship records target under the named type. Parent and epic are
// single-valued and replaced; every other type appends.
func (r *Record) AddRelationship(typeName, target string) {
	t := ParseRelationType(typeName)
	switch t.Kind {
	case KindParent:
		r.Parent = target
	case KindEpic:
		r.Epic = target
	case KindCustom:
		if r.Custom == nil {
			r.Custom = make(map[string][]string)
		}
		r.Custom[t.Name] = append(r.Custom[t.Name], target)
	default:
		seq := r.sequence(t.Kind)
		*seq = append(*seq, target)
	}
}

// RemoveRelationship removes the first occurrence of target under the named
// type. Parent and epic are cleared only when they equal target. A custom
// type left without targets is dropped.
func (r *Record) RemoveRelationship(typeName, target string) {
	t := ParseRelationType(typeName)
	switch t.Kind {
	case KindParent:
		if r.Parent == target {
			r.Parent = ""
		}
	case KindEpic:
		if r.Epic == target {
			r.Epic = ""
		}
	case KindCustom:
		keys, ok := r.Custom[t.Name]
		if !ok {
			return
		}
		keys = removeFirst(keys, target)
		if len(keys) == 0 {
			delete(r.Custom, t.Name)
			return
		}
		r.Custom[t.Name] = keys
	default:
		seq := r.sequence(t.Kind)
		*seq = removeFirst(*seq, target)
	}
}

// Has reports whether target is recorded under the named type.
func (r *Record) Has(typeName, target string) bool {
	t := ParseRelationType(typeName)
	switch t.Kind {
	case KindParent:
		return r.Parent != "" && r.Parent == target
	case KindEpic:
		return r.Epic != "" && r.Epic == target
	case KindCustom:
		return slices.Contains(r.Custom[t.Name], target)
	default:
		return slices.Contains(*r.sequence(t.Kind), target)
	}
}

// AllRelated returns every key referenced anywhere in the record, sorted
// and without duplicates.
func (r *Record) AllRelated() []string {
	seen := make(map[string]struct{})
	for _, e := range r.Edges() {
		seen[e.Target] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Edges flattens the record into typed edges: built-in types in document
// order, then custom types sorted by name.
func (r *Record) Edges() []Edge {
	var edges []Edge
	add := func(typ string, keys []string) {
		for _, k := range keys {
			edges = append(edges, Edge{Type: typ, Target: k})
		}
	}
	add(TypeBlocks, r.Blocks)
	add(TypeBlockedBy, r.BlockedBy)
	add(TypeRelatesTo, r.RelatesTo)
	add(TypeDuplicates, r.Duplicates)
	if r.Parent != "" {
		add(TypeParent, []string{r.Parent})
	}
	add(TypeChildren, r.Children)
	if r.Epic != "" {
		add(TypeEpic, []string{r.Epic})
	}
	for _, name := range r.customTypes() {
		add(name, r.Custom[name])
	}
	return edges
}

// Count returns the number of relationships the record contributes to a
// graph's relationship count.
func (r *Record) Count() int {
	n := len(r.Blocks) + len(r.BlockedBy) + len(r.RelatesTo) + len(r.Duplicates) + len(r.Children)
	if r.Parent != "" {
		n++
	}
	if r.Epic != "" {
		n++
	}
	for _, keys := range r.Custom {
		n += len(keys)
	}
	return n
}

// IsEmpty reports whether the record holds no relationships at all.
func (r *Record) IsEmpty() bool {
	return len(r.Blocks) == 0 &&
		len(r.BlockedBy) == 0 &&
		len(r.RelatesTo) == 0 &&
		len(r.Duplicates) == 0 &&
		len(r.Children) == 0 &&
		r.Parent == "" &&
		r.Epic == "" &&
		customCount(r.Custom) == 0
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{
		Blocks:     slices.Clone(r.Blocks),
		BlockedBy:  slices.Clone(r.BlockedBy),
		RelatesTo:  slices.Clone(r.RelatesTo),
		Duplicates: slices.Clone(r.Duplicates),
		Parent:     r.Parent,
		Children:   slices.Clone(r.Children),
		Epic:       r.Epic,
	}
	if len(r.Custom) > 0 {
		c.Custom = make(map[string][]string, len(r.Custom))
		for name, keys := range r.Custom {
			c.Custom[name] = slices.Clone(keys)
		}
	}
	return c
}

// Merge unions other into r. Targets already present under the same type are
// not repeated; parent and epic are only taken from other when unset in r.
func (r *Record) Merge(other *Record) {
	if other == nil {
		return
	}
	for _, e := range other.Edges() {
		t := ParseRelationType(e.Type)
		switch {
		case t.Kind == KindParent && r.Parent != "":
			continue
		case t.Kind == KindEpic && r.Epic != "":
			continue
		case r.Has(e.Type, e.Target):
			continue
		}
		r.AddRelationship(e.Type, e.Target)
	}
}

// Equal reports whether both records hold the same relationships in the
// same order. Nil and empty sequences compare equal, including custom types
// holding no targets.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.Parent != other.Parent || r.Epic != other.Epic {
		return false
	}
	if !slices.Equal(r.Blocks, other.Blocks) ||
		!slices.Equal(r.BlockedBy, other.BlockedBy) ||
		!slices.Equal(r.RelatesTo, other.RelatesTo) ||
		!slices.Equal(r.Duplicates, other.Duplicates) ||
		!slices.Equal(r.Children, other.Children) {
		return false
	}
	if customCount(r.Custom) != customCount(other.Custom) {
		return false
	}
	for name, keys := range r.Custom {
		if !slices.Equal(keys, other.Custom[name]) {
			return false
		}
	}
	return true
}

// customCount returns how many custom types hold at least one target.
func customCount(custom map[string][]string) int {
	n := 0
	for _, keys := range custom {
		if len(keys) > 0 {
			n++
		}
	}
	return n
}

func (r *Record) sequence(kind RelationKind) *[]string {
	switch kind {
	case KindBlocks:
		return &r.Blocks
	case KindBlockedBy:
		return &r.BlockedBy
	case KindRelatesTo:
		return &r.RelatesTo
	case KindDuplicates:
		return &r.Duplicates
	case KindChildren:
		return &r.Children
	}
	panic(fmt.Sprintf("model: relation kind %d has no sequence field", kind))
}

func (r *Record) customTypes() []string {
	names := make([]string, 0, len(r.Custom))
	for name := range r.Custom {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func removeFirst(keys []string, target string) []string {
	i := slices.Index(keys, target)
	if i < 0 {
		return keys
	}
	return slices.Delete(keys, i, i+1)
}

// MarshalJSON writes the record as a flat object: the seven built-in fields
// followed by one array per custom type. Unset parent/epic encode as null and
// empty sequences as [].
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(name string, value any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(name)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}
	single := func(key string) any {
		if key == "" {
			return nil
		}
		return key
	}
	for _, f := range []struct {
		name  string
		value any
	}{
		{TypeBlocks, nonNil(r.Blocks)},
		{TypeBlockedBy, nonNil(r.BlockedBy)},
		{TypeRelatesTo, nonNil(r.RelatesTo)},
		{TypeDuplicates, nonNil(r.Duplicates)},
		{TypeParent, single(r.Parent)},
		{TypeChildren, nonNil(r.Children)},
		{TypeEpic, single(r.Epic)},
	} {
		if err := field(f.name, f.value); err != nil {
			return nil, err
		}
	}
	for _, name := range r.customTypes() {
		if err := field(name, nonNil(r.Custom[name])); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the flat object written by MarshalJSON. Any key that is
// not a built-in field is read as a custom type.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = Record{}
	for name, raw := range fields {
		t := ParseRelationType(name)
		if t.IsSingleValued() {
			var key *string
			if err := json.Unmarshal(raw, &key); err != nil {
				return fmt.Errorf("decoding %s: %w", name, err)
			}
			if key != nil {
				r.AddRelationship(name, *key)
			}
			continue
		}
		var keys []string
		if err := json.Unmarshal(raw, &keys); err != nil {
			return fmt.Errorf("decoding %s: %w", name, err)
		}
		if len(keys) == 0 {
			continue
		}
		if t.Kind == KindCustom {
			if r.Custom == nil {
				r.Custom = make(map[string][]string)
			}
			r.Custom[name] = keys
			continue
		}
		*r.sequence(t.Kind) = keys
	}
	return nil
}

func nonNil(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}
