// Package snapshot decodes V8 heap snapshot documents into a typed object
// graph. The format is self-describing: field layouts and type enumerations
// live inside the document's snapshot.meta section, so decoding is driven by
// an interpreted Plan rather than hardcoded offsets.
package snapshot

// FieldKind classifies how a positional value in a node or edge stride is
// interpreted.
type FieldKind int

const (
	// KindNumber is a plain integer passed through unchanged.
	KindNumber FieldKind = iota
	// KindString is a 0-based index into the document's string pool.
	KindString
	// KindStringOrNumber is polymorphic: a string index for named edges,
	// a raw integer for element-like edges. The edge's type tag decides.
	KindStringOrNumber
	// KindNode is a byte offset into the flat node array; dividing by the
	// node stride yields the referenced node's ordinal.
	KindNode
	// KindEnum is an index into a document-declared type name table.
	KindEnum
)

// String returns the schema spelling of the field kind.
func (k FieldKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindStringOrNumber:
		return "string_or_number"
	case KindNode:
		return "node"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Field is one declared field of a node or edge stride.
type Field struct {
	Name string
	Kind FieldKind
	// Enum holds the type name table for KindEnum fields.
	Enum []string
}

// Node is one decoded heap object. Ordinal is its position in the decoded
// sequence and its identity within the graph; ID is the document-assigned
// stable identifier.
type Node struct {
	Ordinal     int
	Type        string
	Name        string
	ID          uint64
	SelfSize    uint64
	EdgeCount   int
	TraceNodeID uint64
}

// Edge is one decoded reference between two nodes. Named edges carry a
// resolved Name; element-like edges carry the raw Index instead, with
// IsIndex set.
type Edge struct {
	Type     string
	Name     string
	Index    uint64
	IsIndex  bool
	FromNode int
	ToNode   int
}

// Location ties a node to the script position that allocated it.
type Location struct {
	NodeOrdinal int
	ScriptID    uint64
	Line        uint64
	Column      uint64
}

// Graph is the fully decoded, immutable object graph. All cross-references
// are resolved: every Edge endpoint is a valid index into Nodes.
type Graph struct {
	Nodes     []Node
	Edges     []Edge
	Locations []Location
	Strings   *StringPool
}

// TotalSelfSize sums the self size of every node in bytes.
func (g *Graph) TotalSelfSize() uint64 {
	var total uint64
	for i := range g.Nodes {
		total += g.Nodes[i].SelfSize
	}
	return total
}
