package snapshot

import (
	"fmt"

	apperrors "github.com/heapquery/pkg/errors"
)

// Decoder walks the flat numeric arrays of a document according to a
// decoding plan, producing typed nodes and edges with all cross-references
// resolved. It performs no I/O; it is a pure transform over in-memory
// arrays plus the plan and string pool.
//
// Node decoding must complete before edge decoding: edge attribution needs
// each node's final edge_count and to_node validation needs the final node
// ordinal space.
type Decoder struct {
	plan *Plan
	pool *StringPool
}

// NewDecoder creates a Decoder for the given plan and string pool.
func NewDecoder(plan *Plan, pool *StringPool) *Decoder {
	return &Decoder{plan: plan, pool: pool}
}

// DecodeNodes walks the flat node array in strides of the node stride,
// mapping every positional value through its declared field kind.
func (d *Decoder) DecodeNodes(raw []uint64) ([]Node, error) {
	stride := d.plan.NodeStride
	if len(raw)%stride != 0 {
		return nil, apperrors.Newf(apperrors.CodeGraphInconsistency,
			"node array length %d is not a multiple of the node stride %d", len(raw), stride)
	}

	count := len(raw) / stride
	if count != d.plan.NodeCount {
		return nil, apperrors.Newf(apperrors.CodeGraphInconsistency,
			"document declares %d nodes but the node array holds %d strides", d.plan.NodeCount, count)
	}

	nodes := make([]Node, count)
	seenIDs := make(map[uint64]int, count)

	for ord := 0; ord < count; ord++ {
		rec := raw[ord*stride : (ord+1)*stride]
		node := Node{Ordinal: ord}

		for i := range d.plan.NodeFields {
			field := &d.plan.NodeFields[i]
			value := rec[i]

			switch field.Kind {
			case KindEnum:
				if value >= uint64(len(field.Enum)) {
					return nil, apperrors.Newf(apperrors.CodeGraphInconsistency,
						"node %d: type tag %d outside the %d-entry %q enum", ord, value, len(field.Enum), field.Name)
				}
				if i == d.plan.nodeType {
					node.Type = field.Enum[value]
				}
			case KindString:
				s, err := d.pool.Resolve(value)
				if err != nil {
					return nil, fmt.Errorf("node %d field %q: %w", ord, field.Name, err)
				}
				if i == d.plan.nodeName {
					node.Name = s
				}
			default:
				switch i {
				case d.plan.nodeID:
					node.ID = value
				case d.plan.nodeSelfSize:
					node.SelfSize = value
				case d.plan.nodeEdgeCount:
					node.EdgeCount = int(value)
				case d.plan.nodeTrace:
					node.TraceNodeID = value
				}
			}
		}

		if prev, dup := seenIDs[node.ID]; dup {
			return nil, apperrors.Newf(apperrors.CodeGraphInconsistency,
				"nodes %d and %d share document id %d", prev, ord, node.ID)
		}
		seenIDs[node.ID] = ord

		nodes[ord] = node
	}

	return nodes, nil
}

// DecodeEdges walks the flat edge array in strides of the edge stride,
// attributing each node's declared edge_count of contiguous strides to it
// in node order. Every stride must be attributed to exactly one node.
func (d *Decoder) DecodeEdges(raw []uint64, nodes []Node) ([]Edge, error) {
	stride := d.plan.EdgeStride
	if len(raw)%stride != 0 {
		return nil, apperrors.Newf(apperrors.CodeGraphInconsistency,
			"edge array length %d is not a multiple of the edge stride %d", len(raw), stride)
	}

	count := len(raw) / stride
	if count != d.plan.EdgeCount {
		return nil, apperrors.Newf(apperrors.CodeGraphInconsistency,
			"document declares %d edges but the edge array holds %d strides", d.plan.EdgeCount, count)
	}

	edges := make([]Edge, 0, count)
	next := 0 // next unattributed edge stride

	for ni := range nodes {
		node := &nodes[ni]
		for pos := 0; pos < node.EdgeCount; pos++ {
			if next >= count {
				return nil, apperrors.Newf(apperrors.CodeGraphInconsistency,
					"node %d declares %d edges but the edge array was exhausted after %d total", node.Ordinal, node.EdgeCount, next)
			}

			edge, err := d.decodeEdge(raw[next*stride:(next+1)*stride], node.Ordinal, pos, len(nodes))
			if err != nil {
				return nil, err
			}
			edges = append(edges, edge)
			next++
		}
	}

	if next != count {
		return nil, apperrors.Newf(apperrors.CodeGraphInconsistency,
			"%d edge strides not attributed to any node (%d attributed, %d present)", count-next, next, count)
	}

	return edges, nil
}

// decodeEdge decodes a single edge stride owned by the node at fromOrdinal.
func (d *Decoder) decodeEdge(rec []uint64, fromOrdinal, pos int, nodeCount int) (Edge, error) {
	edge := Edge{FromNode: fromOrdinal}

	// The type tag resolves first: it decides how name_or_index reads.
	typeField := &d.plan.EdgeFields[d.plan.edgeType]
	typeTag := rec[d.plan.edgeType]
	if typeTag >= uint64(len(typeField.Enum)) {
		return Edge{}, apperrors.Newf(apperrors.CodeGraphInconsistency,
			"edge %d of node %d: type tag %d outside the %d-entry enum", pos, fromOrdinal, typeTag, len(typeField.Enum))
	}
	edge.Type = typeField.Enum[typeTag]

	nameValue := rec[d.plan.edgeNameOrIndex]
	nameKind := d.plan.EdgeFields[d.plan.edgeNameOrIndex].Kind
	if nameKind == KindString || !indexLikeEdgeType(edge.Type) {
		name, err := d.pool.Resolve(nameValue)
		if err != nil {
			return Edge{}, fmt.Errorf("edge %d of node %d: %w", pos, fromOrdinal, err)
		}
		edge.Name = name
	} else {
		edge.Index = nameValue
		edge.IsIndex = true
	}

	toOrdinal, err := ordinalForOffset(rec[d.plan.edgeToNode], d.plan.NodeStride, nodeCount)
	if err != nil {
		return Edge{}, fmt.Errorf("edge %d of node %d: %w", pos, fromOrdinal, err)
	}
	edge.ToNode = toOrdinal

	return edge, nil
}

// DecodeLocations walks the optional locations array. Location strides
// reference their node the same way to_node does: as a byte offset into
// the flat node array.
func (d *Decoder) DecodeLocations(raw []uint64, nodeCount int) ([]Location, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if !d.plan.HasLocations() {
		return nil, apperrors.New(apperrors.CodeSchemaError,
			"document carries a locations array but declares no location_fields")
	}

	stride := d.plan.locStride
	if len(raw)%stride != 0 {
		return nil, apperrors.Newf(apperrors.CodeGraphInconsistency,
			"location array length %d is not a multiple of the location stride %d", len(raw), stride)
	}

	count := len(raw) / stride
	locations := make([]Location, 0, count)

	for i := 0; i < count; i++ {
		rec := raw[i*stride : (i+1)*stride]

		ordinal, err := ordinalForOffset(rec[d.plan.locObjectIndex], d.plan.NodeStride, nodeCount)
		if err != nil {
			return nil, fmt.Errorf("location %d: %w", i, err)
		}

		locations = append(locations, Location{
			NodeOrdinal: ordinal,
			ScriptID:    rec[d.plan.locScriptID],
			Line:        rec[d.plan.locLine],
			Column:      rec[d.plan.locColumn],
		})
	}

	return locations, nil
}

// ordinalForOffset translates a raw node reference into a node ordinal.
// The document stores these references as byte offsets into the flat node
// array, so the ordinal is the offset divided by the node stride. An offset
// that is unaligned or lands beyond the node sequence is a hard failure,
// never truncated or clamped.
func ordinalForOffset(offset uint64, stride int, nodeCount int) (int, error) {
	if offset%uint64(stride) != 0 {
		return 0, apperrors.Newf(apperrors.CodeGraphInconsistency,
			"node offset %d is not aligned to the node stride %d", offset, stride)
	}
	ordinal := offset / uint64(stride)
	if ordinal >= uint64(nodeCount) {
		return 0, apperrors.Newf(apperrors.CodeGraphInconsistency,
			"node offset %d resolves to ordinal %d, beyond the %d decoded nodes", offset, ordinal, nodeCount)
	}
	return int(ordinal), nil
}

// indexLikeEdgeType reports whether an edge type stores a raw array index
// in name_or_index instead of a string reference. In the V8 format these
// are element edges (array slots) and hidden edges.
func indexLikeEdgeType(edgeType string) bool {
	return edgeType == "element" || edgeType == "hidden"
}
