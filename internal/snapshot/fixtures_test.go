package snapshot

import (
	"encoding/json"
	"fmt"
)

// Standard V8 layout used by the synthetic documents in these tests.
var (
	testNodeTypeEnum = []string{"hidden", "array", "string", "object", "code", "closure", "synthetic"}
	testEdgeTypeEnum = []string{"context", "element", "property", "internal", "hidden", "shortcut", "weak"}
)

func rawJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// docBuilder assembles synthetic heap snapshot documents stride by stride.
type docBuilder struct {
	doc     *RawDocument
	interns map[string]uint64
}

func newTestDoc() *docBuilder {
	return &docBuilder{
		doc: &RawDocument{
			Snapshot: &SnapshotInfo{
				Meta: &Meta{
					NodeFields: []string{"type", "name", "id", "self_size", "edge_count", "trace_node_id"},
					NodeTypes: []json.RawMessage{
						rawJSON(testNodeTypeEnum),
						rawJSON("string"),
						rawJSON("number"),
						rawJSON("number"),
						rawJSON("number"),
						rawJSON("number"),
					},
					EdgeFields: []string{"type", "name_or_index", "to_node"},
					EdgeTypes: []json.RawMessage{
						rawJSON(testEdgeTypeEnum),
						rawJSON("string_or_number"),
						rawJSON("node"),
					},
					LocationFields: []string{"object_index", "script_id", "line", "column"},
				},
			},
			Nodes:   []uint64{},
			Edges:   []uint64{},
			Strings: []string{},
		},
		interns: make(map[string]uint64),
	}
}

// str interns a string into the pool and returns its index.
func (b *docBuilder) str(s string) uint64 {
	if idx, ok := b.interns[s]; ok {
		return idx
	}
	idx := uint64(len(b.doc.Strings))
	b.doc.Strings = append(b.doc.Strings, s)
	b.interns[s] = idx
	return idx
}

func (b *docBuilder) nodeTypeTag(name string) uint64 {
	for i, n := range testNodeTypeEnum {
		if n == name {
			return uint64(i)
		}
	}
	panic(fmt.Sprintf("unknown node type %q", name))
}

func (b *docBuilder) edgeTypeTag(name string) uint64 {
	for i, n := range testEdgeTypeEnum {
		if n == name {
			return uint64(i)
		}
	}
	panic(fmt.Sprintf("unknown edge type %q", name))
}

// addNode appends one node stride and returns the node's ordinal.
func (b *docBuilder) addNode(nodeType, name string, id, selfSize uint64, edgeCount int) int {
	ordinal := len(b.doc.Nodes) / 6
	b.doc.Nodes = append(b.doc.Nodes,
		b.nodeTypeTag(nodeType), b.str(name), id, selfSize, uint64(edgeCount), 0)
	b.doc.Snapshot.NodeCount++
	return ordinal
}

// addEdge appends one named edge stride pointing at toOrdinal.
func (b *docBuilder) addEdge(edgeType, name string, toOrdinal int) {
	b.doc.Edges = append(b.doc.Edges,
		b.edgeTypeTag(edgeType), b.str(name), uint64(toOrdinal*6))
	b.doc.Snapshot.EdgeCount++
}

// addElementEdge appends one element edge stride with a raw array index.
func (b *docBuilder) addElementEdge(index uint64, toOrdinal int) {
	b.doc.Edges = append(b.doc.Edges,
		b.edgeTypeTag("element"), index, uint64(toOrdinal*6))
	b.doc.Snapshot.EdgeCount++
}

// addLocation appends one location stride for the node at ordinal.
func (b *docBuilder) addLocation(ordinal int, scriptID, line, column uint64) {
	b.doc.Locations = append(b.doc.Locations,
		uint64(ordinal*6), scriptID, line, column)
}

func (b *docBuilder) build() *RawDocument {
	return b.doc
}

// buildJSON serializes the document the way it appears on disk.
func (b *docBuilder) buildJSON() []byte {
	data, err := json.Marshal(b.doc)
	if err != nil {
		panic(err)
	}
	return data
}

// twoNodeDoc is the round-trip scenario: nodes with ids 1 and 2 plus one
// property edge "ref" from the first to the second.
func twoNodeDoc() *docBuilder {
	b := newTestDoc()
	b.addNode("object", "HugeObj", 1, 64, 1)
	b.addNode("string", "payload", 2, 32, 0)
	b.addEdge("property", "ref", 1)
	return b
}
