package snapshot

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/heapquery/pkg/errors"
	"github.com/heapquery/pkg/utils"
)

func TestParser_Parse(t *testing.T) {
	p := NewParser(&ParserOptions{Logger: &utils.NullLogger{}})

	graph, err := p.Parse(context.Background(), bytes.NewReader(twoNodeDoc().buildJSON()))
	require.NoError(t, err)

	require.Len(t, graph.Nodes, 2)
	require.Len(t, graph.Edges, 1)
	assert.Empty(t, graph.Locations)

	edge := graph.Edges[0]
	assert.Equal(t, "property", edge.Type)
	assert.Equal(t, "ref", edge.Name)
	assert.Equal(t, graph.Nodes[0].Ordinal, edge.FromNode)
	assert.Equal(t, graph.Nodes[1].Ordinal, edge.ToNode)

	assert.Equal(t, uint64(96), graph.TotalSelfSize())
}

func TestParser_ParseWithLocations(t *testing.T) {
	b := twoNodeDoc()
	b.addLocation(0, 11, 120, 4)
	p := NewParser(nil)

	graph, err := p.Parse(context.Background(), bytes.NewReader(b.buildJSON()))
	require.NoError(t, err)

	require.Len(t, graph.Locations, 1)
	assert.Equal(t, 0, graph.Locations[0].NodeOrdinal)
	assert.Equal(t, uint64(11), graph.Locations[0].ScriptID)
}

func TestParser_EmptyDocument(t *testing.T) {
	b := newTestDoc()
	p := NewParser(nil)

	graph, err := p.Parse(context.Background(), bytes.NewReader(b.buildJSON()))
	require.NoError(t, err)
	assert.Empty(t, graph.Nodes)
	assert.Empty(t, graph.Edges)
	assert.Equal(t, uint64(0), graph.TotalSelfSize())
}

func TestParser_Failures(t *testing.T) {
	p := NewParser(nil)

	t.Run("malformed json", func(t *testing.T) {
		_, err := p.Parse(context.Background(), strings.NewReader("{not json"))
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetErrorCode(err))
	})

	t.Run("missing nodes section", func(t *testing.T) {
		b := twoNodeDoc()
		b.doc.Nodes = nil

		_, err := p.ParseDocument(b.build())
		require.Error(t, err)
		assert.True(t, apperrors.IsSchemaError(err))
		assert.Contains(t, err.Error(), `"nodes"`)
	})

	t.Run("missing strings section", func(t *testing.T) {
		b := twoNodeDoc()
		b.doc.Strings = nil

		_, err := p.ParseDocument(b.build())
		require.Error(t, err)
		assert.True(t, apperrors.IsSchemaError(err))
	})

	t.Run("schema failure reported from the metadata phase", func(t *testing.T) {
		b := twoNodeDoc()
		b.doc.Snapshot.Meta.NodeTypes[2] = rawJSON("blob")

		_, err := p.ParseDocument(b.build())
		require.Error(t, err)
		assert.True(t, apperrors.IsSchemaError(err))
		assert.Contains(t, err.Error(), "interpret metadata:")
	})

	t.Run("corruption reported from the node phase", func(t *testing.T) {
		b := twoNodeDoc()
		b.doc.Snapshot.NodeCount = 5

		_, err := p.ParseDocument(b.build())
		require.Error(t, err)
		assert.True(t, apperrors.IsGraphInconsistency(err))
		assert.Contains(t, err.Error(), "decode nodes:")
	})

	t.Run("corruption reported from the edge phase", func(t *testing.T) {
		b := twoNodeDoc()
		b.doc.Edges[2] = 7 // unaligned to_node offset

		_, err := p.ParseDocument(b.build())
		require.Error(t, err)
		assert.True(t, apperrors.IsGraphInconsistency(err))
		assert.Contains(t, err.Error(), "decode edges:")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := p.Parse(ctx, bytes.NewReader(twoNodeDoc().buildJSON()))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
