package model

// RelationKind is the closed set of relationship categories a Record can hold.
type RelationKind int

const (
	KindBlocks RelationKind = iota
	KindBlockedBy
	KindRelatesTo
	KindDuplicates
	KindParent
	KindChildren
	KindEpic
	KindCustom
)

// Well-known relationship type names. Any other name is a custom type.
const (
	TypeBlocks     = "blocks"
	TypeBlockedBy  = "blocked_by"
	TypeRelatesTo  = "relates_to"
	TypeDuplicates = "duplicates"
	TypeParent     = "parent"
	TypeChildren   = "children"
	TypeEpic       = "epic"
)

// BuiltinTypes lists the reserved type names in document order.
var BuiltinTypes = []string{
	TypeBlocks,
	TypeBlockedBy,
	TypeRelatesTo,
	TypeDuplicates,
	TypeParent,
	TypeChildren,
	TypeEpic,
}

// RelationType is a parsed relationship type. Name is only meaningful for
// KindCustom.
type RelationType struct {
	Kind RelationKind
	Name string
}

// ParseRelationType maps a type name onto its kind. Unknown names become
// custom types carrying the name verbatim.
func ParseRelationType(name string) RelationType {
	switch name {
	case TypeBlocks:
		return RelationType{Kind: KindBlocks}
	case TypeBlockedBy:
		return RelationType{Kind: KindBlockedBy}
	case TypeRelatesTo:
		return RelationType{Kind: KindRelatesTo}
	case TypeDuplicates:
		return RelationType{Kind: KindDuplicates}
	case TypeParent:
		return RelationType{Kind: KindParent}
	case TypeChildren:
		return RelationType{Kind: KindChildren}
	case TypeEpic:
		return RelationType{Kind: KindEpic}
	default:
		return RelationType{Kind: KindCustom, Name: name}
	}
}

// String returns the type name used in documents and filters.
func (t RelationType) String() string {
	switch t.Kind {
	case KindBlocks:
		return TypeBlocks
	case KindBlockedBy:
		return TypeBlockedBy
	case KindRelatesTo:
		return TypeRelatesTo
	case KindDuplicates:
		return TypeDuplicates
	case KindParent:
		return TypeParent
	case KindChildren:
		return TypeChildren
	case KindEpic:
		return TypeEpic
	default:
		return t.Name
	}
}

// IsBuiltin reports whether the type is one of the seven reserved types.
func (t RelationType) IsBuiltin() bool {
	return t.Kind != KindCustom
}

// IsSingleValued reports whether a record holds at most one target for the type.
func (t RelationType) IsSingleValued() bool {
	return t.Kind == KindParent || t.Kind == KindEpic
}

// Converse returns the type describing the same edge seen from its target.
// An epic's members are its children. Custom types have no converse.
func (t RelationType) Converse() (RelationType, bool) {
	switch t.Kind {
	case KindBlocks:
		return RelationType{Kind: KindBlockedBy}, true
	case KindBlockedBy:
		return RelationType{Kind: KindBlocks}, true
	case KindRelatesTo:
		return RelationType{Kind: KindRelatesTo}, true
	case KindDuplicates:
		return RelationType{Kind: KindDuplicates}, true
	case KindParent, KindEpic:
		return RelationType{Kind: KindChildren}, true
	case KindChildren:
		return RelationType{Kind: KindParent}, true
	default:
		return RelationType{}, false
	}
}

// IsBuiltinType reports whether name is a reserved type name.
func IsBuiltinType(name string) bool {
	return ParseRelationType(name).IsBuiltin()
}
