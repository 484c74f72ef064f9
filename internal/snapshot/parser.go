package snapshot

import (
	"context"
	"fmt"
	"io"

	"github.com/heapquery/pkg/utils"
)

// ParserOptions configures the snapshot parser.
type ParserOptions struct {
	// Logger is used for debug logging and timing. If nil, logs are
	// suppressed.
	Logger utils.Logger
}

// DefaultParserOptions returns default parser options.
func DefaultParserOptions() *ParserOptions {
	return &ParserOptions{}
}

// Parser decodes heap snapshot documents into a Graph.
//
// Parsing is strictly sequential: metadata interpretation completes before
// any array decoding, and node decoding completes before edge decoding.
// The result is all-or-nothing; a failure in any phase produces no graph.
type Parser struct {
	opts *ParserOptions
}

// NewParser creates a new snapshot parser.
func NewParser(opts *ParserOptions) *Parser {
	if opts == nil {
		opts = DefaultParserOptions()
	}
	return &Parser{opts: opts}
}

// Parse reads a heap snapshot document and decodes it into a Graph.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer := utils.NewTimer("snapshot parse",
		utils.WithLogger(p.opts.Logger),
		utils.WithEnabled(p.opts.Logger != nil))

	stop := timer.Start("read document")
	doc, err := ReadDocument(r)
	stop()
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	return p.decode(doc, timer)
}

// ParseDocument decodes an already-unmarshalled document. Used by callers
// that hold the raw document in memory, and by tests.
func (p *Parser) ParseDocument(doc *RawDocument) (*Graph, error) {
	if err := doc.validateSections(); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	timer := utils.NewTimer("snapshot parse",
		utils.WithLogger(p.opts.Logger),
		utils.WithEnabled(p.opts.Logger != nil))
	return p.decode(doc, timer)
}

func (p *Parser) decode(doc *RawDocument, timer *utils.Timer) (*Graph, error) {
	stop := timer.Start("interpret metadata")
	plan, err := InterpretMeta(doc)
	stop()
	if err != nil {
		return nil, fmt.Errorf("interpret metadata: %w", err)
	}

	pool := NewStringPool(doc.Strings)
	decoder := NewDecoder(plan, pool)

	stop = timer.Start("decode nodes")
	nodes, err := decoder.DecodeNodes(doc.Nodes)
	stop()
	if err != nil {
		return nil, fmt.Errorf("decode nodes: %w", err)
	}

	stop = timer.Start("decode edges")
	edges, err := decoder.DecodeEdges(doc.Edges, nodes)
	stop()
	if err != nil {
		return nil, fmt.Errorf("decode edges: %w", err)
	}

	stop = timer.Start("decode locations")
	locations, err := decoder.DecodeLocations(doc.Locations, len(nodes))
	stop()
	if err != nil {
		return nil, fmt.Errorf("decode locations: %w", err)
	}

	if p.opts.Logger != nil {
		p.opts.Logger.Debug("decoded %d nodes, %d edges, %d locations",
			len(nodes), len(edges), len(locations))
	}
	timer.PrintSummary()

	return &Graph{
		Nodes:     nodes,
		Edges:     edges,
		Locations: locations,
		Strings:   pool,
	}, nil
}
