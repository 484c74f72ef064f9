package snapshot

import (
	"encoding/json"
	"fmt"
	"io"

	apperrors "github.com/heapquery/pkg/errors"
)

// RawDocument is the on-disk shape of a V8 heap snapshot (.heapsnapshot).
// The four sections snapshot/nodes/edges/strings are mandatory; locations
// is optional in the format.
type RawDocument struct {
	Snapshot  *SnapshotInfo `json:"snapshot"`
	Nodes     []uint64      `json:"nodes"`
	Edges     []uint64      `json:"edges"`
	Strings   []string      `json:"strings"`
	Locations []uint64      `json:"locations"`
}

// SnapshotInfo is the document's self-describing header.
type SnapshotInfo struct {
	Meta      *Meta `json:"meta"`
	NodeCount int   `json:"node_count"`
	EdgeCount int   `json:"edge_count"`
}

// Meta declares the field layouts and type enumerations used to decode the
// flat node and edge arrays. Each entry of NodeTypes/EdgeTypes is either a
// JSON string naming a scalar field kind or a JSON array of enum values;
// which one is only known at decode time, hence the RawMessage.
type Meta struct {
	NodeFields     []string          `json:"node_fields"`
	NodeTypes      []json.RawMessage `json:"node_types"`
	EdgeFields     []string          `json:"edge_fields"`
	EdgeTypes      []json.RawMessage `json:"edge_types"`
	LocationFields []string          `json:"location_fields"`
}

// ReadDocument reads and unmarshals a heap snapshot document, verifying
// that all mandatory sections are present.
func ReadDocument(r io.Reader) (*RawDocument, error) {
	var doc RawDocument

	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "deformed heap snapshot document", err)
	}

	if err := doc.validateSections(); err != nil {
		return nil, err
	}

	return &doc, nil
}

// validateSections checks the presence of the four mandatory sections.
// An empty array is a present section; only an absent key is an error.
func (d *RawDocument) validateSections() error {
	missing := func(section string) error {
		return apperrors.Wrap(apperrors.CodeSchemaError,
			fmt.Sprintf("document is missing mandatory section %q", section), nil)
	}

	if d.Snapshot == nil || d.Snapshot.Meta == nil {
		return missing("snapshot.meta")
	}
	if d.Nodes == nil {
		return missing("nodes")
	}
	if d.Edges == nil {
		return missing("edges")
	}
	if d.Strings == nil {
		return missing("strings")
	}
	return nil
}
