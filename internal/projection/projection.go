// Package projection maps a decoded heap graph onto relational tables. It
// defines the relation schemas and exposes each relation as a lazy,
// single-pass row sequence that the storage layer streams into the engine.
package projection

import (
	"github.com/heapquery/internal/snapshot"
)

// ColumnType is the logical type of a relation column. The storage layer
// translates it into engine-specific DDL.
type ColumnType string

const (
	// TypeInteger is a 64-bit integer column.
	TypeInteger ColumnType = "INTEGER"
	// TypeText is a string column.
	TypeText ColumnType = "TEXT"
	// TypeVariant holds either an integer or a string depending on the row.
	// Only name_or_index uses it.
	TypeVariant ColumnType = "VARIANT"
)

// Column is one named, typed column of a relation.
type Column struct {
	Name string
	Type ColumnType
}

// Relation is a table definition: a name plus ordered column definitions.
type Relation struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the column names in declaration order.
func (r Relation) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// NodeRelation describes the node table: one row per decoded heap object.
var NodeRelation = Relation{
	Name: "node",
	Columns: []Column{
		{Name: "ordinal", Type: TypeInteger},
		{Name: "id", Type: TypeInteger},
		{Name: "type", Type: TypeText},
		{Name: "name", Type: TypeText},
		{Name: "self_size", Type: TypeInteger},
		{Name: "edge_count", Type: TypeInteger},
		{Name: "trace_node_id", Type: TypeInteger},
	},
}

// EdgeRelation describes the edge table: one row per decoded reference.
// Endpoints appear twice, as ordinals (from_node, to_node) and as the
// document-assigned stable ids (from_node_id, to_node_id).
var EdgeRelation = Relation{
	Name: "edge",
	Columns: []Column{
		{Name: "from_node", Type: TypeInteger},
		{Name: "position", Type: TypeInteger},
		{Name: "type", Type: TypeText},
		{Name: "name_or_index", Type: TypeVariant},
		{Name: "to_node", Type: TypeInteger},
		{Name: "from_node_id", Type: TypeInteger},
		{Name: "to_node_id", Type: TypeInteger},
	},
}

// LocationRelation describes the location table: one row per script position
// recorded for a node. Empty for documents without a locations section.
var LocationRelation = Relation{
	Name: "location",
	Columns: []Column{
		{Name: "node_ordinal", Type: TypeInteger},
		{Name: "node_id", Type: TypeInteger},
		{Name: "script_id", Type: TypeInteger},
		{Name: "line", Type: TypeInteger},
		{Name: "column", Type: TypeInteger},
	},
}

// RowSource is a lazy, single-pass row sequence. Next returns the next row
// in column order, or (nil, false) once the sequence is exhausted. Sources
// are not restartable; every row returned is complete and immutable.
type RowSource interface {
	Next() ([]interface{}, bool)
	// Remaining reports how many rows the source has yet to produce.
	Remaining() int
}

// Table pairs a relation definition with its row source.
type Table struct {
	Relation Relation
	Rows     RowSource
}

// Tables projects a decoded graph into the node, edge, and location tables,
// in load order. The returned sources borrow the graph; the graph must stay
// alive until the sources are drained.
func Tables(g *snapshot.Graph) []Table {
	return []Table{
		{Relation: NodeRelation, Rows: &nodeRows{nodes: g.Nodes}},
		{Relation: EdgeRelation, Rows: &edgeRows{graph: g}},
		{Relation: LocationRelation, Rows: &locationRows{graph: g}},
	}
}

type nodeRows struct {
	nodes []snapshot.Node
	pos   int
}

func (r *nodeRows) Next() ([]interface{}, bool) {
	if r.pos >= len(r.nodes) {
		return nil, false
	}
	n := &r.nodes[r.pos]
	r.pos++
	return []interface{}{
		int64(n.Ordinal),
		int64(n.ID),
		n.Type,
		n.Name,
		int64(n.SelfSize),
		int64(n.EdgeCount),
		int64(n.TraceNodeID),
	}, true
}

func (r *nodeRows) Remaining() int {
	return len(r.nodes) - r.pos
}

type edgeRows struct {
	graph *snapshot.Graph
	pos   int
	// run tracks the position within the current owning node's edge run.
	runOwner int
	runPos   int
}

func (r *edgeRows) Next() ([]interface{}, bool) {
	if r.pos >= len(r.graph.Edges) {
		return nil, false
	}
	e := &r.graph.Edges[r.pos]
	r.pos++

	if e.FromNode != r.runOwner {
		r.runOwner = e.FromNode
		r.runPos = 0
	}
	position := r.runPos
	r.runPos++

	var nameOrIndex interface{}
	if e.IsIndex {
		nameOrIndex = int64(e.Index)
	} else {
		nameOrIndex = e.Name
	}

	return []interface{}{
		int64(e.FromNode),
		int64(position),
		e.Type,
		nameOrIndex,
		int64(e.ToNode),
		int64(r.graph.Nodes[e.FromNode].ID),
		int64(r.graph.Nodes[e.ToNode].ID),
	}, true
}

func (r *edgeRows) Remaining() int {
	return len(r.graph.Edges) - r.pos
}

type locationRows struct {
	graph *snapshot.Graph
	pos   int
}

func (r *locationRows) Next() ([]interface{}, bool) {
	if r.pos >= len(r.graph.Locations) {
		return nil, false
	}
	l := &r.graph.Locations[r.pos]
	r.pos++
	return []interface{}{
		int64(l.NodeOrdinal),
		int64(r.graph.Nodes[l.NodeOrdinal].ID),
		int64(l.ScriptID),
		int64(l.Line),
		int64(l.Column),
	}, true
}

func (r *locationRows) Remaining() int {
	return len(r.graph.Locations) - r.pos
}
