package snapshot

import (
	"encoding/json"

	apperrors "github.com/heapquery/pkg/errors"
)

// Well-known field names declared by snapshot.meta.
const (
	fieldType        = "type"
	fieldName        = "name"
	fieldID          = "id"
	fieldSelfSize    = "self_size"
	fieldEdgeCount   = "edge_count"
	fieldTraceNodeID = "trace_node_id"
	fieldNameOrIndex = "name_or_index"
	fieldToNode      = "to_node"
	fieldObjectIndex = "object_index"
	fieldScriptID    = "script_id"
	fieldLine        = "line"
	fieldColumn      = "column"
)

// Plan is the decoding plan interpreted from a document's schema section.
// It is immutable once built and drives the entire stride walk: strides,
// per-position field kinds, and the resolved type enumerations.
type Plan struct {
	NodeFields []Field
	EdgeFields []Field
	NodeStride int
	EdgeStride int
	NodeCount  int
	EdgeCount  int

	// Positions of the well-known fields inside a stride. nodeTrace is -1
	// when the document predates trace_node_id.
	nodeType      int
	nodeName      int
	nodeID        int
	nodeSelfSize  int
	nodeEdgeCount int
	nodeTrace     int

	edgeType        int
	edgeNameOrIndex int
	edgeToNode      int

	// Location stride layout; locStride is 0 when the document declares no
	// location_fields.
	locStride      int
	locObjectIndex int
	locScriptID    int
	locLine        int
	locColumn      int
}

// InterpretMeta builds the decoding plan from the document's schema section.
// It is a pure function of the schema: no side effects, no array access.
func InterpretMeta(doc *RawDocument) (*Plan, error) {
	meta := doc.Snapshot.Meta

	nodeFields, err := interpretFields("node", meta.NodeFields, meta.NodeTypes)
	if err != nil {
		return nil, err
	}
	edgeFields, err := interpretFields("edge", meta.EdgeFields, meta.EdgeTypes)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		NodeFields: nodeFields,
		EdgeFields: edgeFields,
		NodeStride: len(nodeFields),
		EdgeStride: len(edgeFields),
		NodeCount:  doc.Snapshot.NodeCount,
		EdgeCount:  doc.Snapshot.EdgeCount,
	}

	if err := plan.resolveNodeLayout(); err != nil {
		return nil, err
	}
	if err := plan.resolveEdgeLayout(); err != nil {
		return nil, err
	}
	if err := plan.resolveLocationLayout(meta.LocationFields); err != nil {
		return nil, err
	}

	return plan, nil
}

// interpretFields pairs each declared field name with its declared kind.
// A kind entry is either a JSON array (type enum) or one of the scalar
// kind names; anything else is an unsupported future-format field and a
// hard schema error.
func interpretFields(section string, names []string, kinds []json.RawMessage) ([]Field, error) {
	if len(names) == 0 {
		return nil, apperrors.Newf(apperrors.CodeSchemaError,
			"schema declares no %s_fields", section)
	}
	if len(names) != len(kinds) {
		return nil, apperrors.Newf(apperrors.CodeSchemaError,
			"schema declares %d %s_fields but %d %s_types", len(names), section, len(kinds), section)
	}

	fields := make([]Field, len(names))
	for i, name := range names {
		field := Field{Name: name}

		var enum []string
		if err := json.Unmarshal(kinds[i], &enum); err == nil {
			field.Kind = KindEnum
			field.Enum = enum
			fields[i] = field
			continue
		}

		var scalar string
		if err := json.Unmarshal(kinds[i], &scalar); err != nil {
			return nil, apperrors.Newf(apperrors.CodeSchemaError,
				"%s field %q declares a malformed kind", section, name)
		}

		switch scalar {
		case "number":
			field.Kind = KindNumber
		case "string":
			field.Kind = KindString
		case "string_or_number":
			field.Kind = KindStringOrNumber
		case "node":
			field.Kind = KindNode
		default:
			return nil, apperrors.Newf(apperrors.CodeSchemaError,
				"%s field %q declares unknown kind %q", section, name, scalar)
		}
		fields[i] = field
	}

	return fields, nil
}

func (p *Plan) resolveNodeLayout() error {
	var err error
	if p.nodeType, err = requireField("node", p.NodeFields, fieldType, KindEnum); err != nil {
		return err
	}
	if p.nodeName, err = requireField("node", p.NodeFields, fieldName, KindString); err != nil {
		return err
	}
	if p.nodeID, err = requireField("node", p.NodeFields, fieldID, KindNumber); err != nil {
		return err
	}
	if p.nodeSelfSize, err = requireField("node", p.NodeFields, fieldSelfSize, KindNumber); err != nil {
		return err
	}
	if p.nodeEdgeCount, err = requireField("node", p.NodeFields, fieldEdgeCount, KindNumber); err != nil {
		return err
	}
	// trace_node_id only exists in snapshots taken with allocation tracking.
	p.nodeTrace = findField(p.NodeFields, fieldTraceNodeID)
	return nil
}

func (p *Plan) resolveEdgeLayout() error {
	var err error
	if p.edgeType, err = requireField("edge", p.EdgeFields, fieldType, KindEnum); err != nil {
		return err
	}
	if p.edgeToNode, err = requireField("edge", p.EdgeFields, fieldToNode, KindNode); err != nil {
		return err
	}

	p.edgeNameOrIndex = findField(p.EdgeFields, fieldNameOrIndex)
	if p.edgeNameOrIndex < 0 {
		return apperrors.Newf(apperrors.CodeSchemaError,
			"edge layout is missing required field %q", fieldNameOrIndex)
	}
	kind := p.EdgeFields[p.edgeNameOrIndex].Kind
	if kind != KindString && kind != KindStringOrNumber {
		return apperrors.Newf(apperrors.CodeSchemaError,
			"edge field %q must be string or string_or_number, got %s", fieldNameOrIndex, kind)
	}
	return nil
}

func (p *Plan) resolveLocationLayout(names []string) error {
	if len(names) == 0 {
		return nil
	}

	p.locStride = len(names)
	p.locObjectIndex = indexOf(names, fieldObjectIndex)
	p.locScriptID = indexOf(names, fieldScriptID)
	p.locLine = indexOf(names, fieldLine)
	p.locColumn = indexOf(names, fieldColumn)

	if p.locObjectIndex < 0 || p.locScriptID < 0 || p.locLine < 0 || p.locColumn < 0 {
		return apperrors.Newf(apperrors.CodeSchemaError,
			"location layout %v is missing a required field", names)
	}
	return nil
}

// HasLocations reports whether the schema declares a location layout.
func (p *Plan) HasLocations() bool {
	return p.locStride > 0
}

func requireField(section string, fields []Field, name string, kind FieldKind) (int, error) {
	idx := findField(fields, name)
	if idx < 0 {
		return -1, apperrors.Newf(apperrors.CodeSchemaError,
			"%s layout is missing required field %q", section, name)
	}
	if fields[idx].Kind != kind {
		return -1, apperrors.Newf(apperrors.CodeSchemaError,
			"%s field %q must be %s, got %s", section, name, kind, fields[idx].Kind)
	}
	return idx, nil
}

func findField(fields []Field, name string) int {
	for i := range fields {
		if fields[i].Name == name {
			return i
		}
	}
	return -1
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
