// Package repository is the storage boundary: it loads projected relations
// into an embedded SQL engine and forwards user queries against them. The
// engine is opaque to the rest of the pipeline; SQLite produces the durable
// .db3 artifact, postgres and mysql serve shared setups behind the same
// interface.
package repository

import (
	"context"

	"github.com/heapquery/internal/projection"
	"github.com/heapquery/pkg/model"
)

// Store is the storage/query boundary for a relational projection.
type Store interface {
	// HasProjection reports whether the store already holds a loaded
	// projection (all projection tables present).
	HasProjection(ctx context.Context) (bool, error)

	// Load creates the projection tables and streams every row source into
	// them, in one transaction. A failed load rolls back completely; the
	// store never holds a partial projection. batchSize caps the number of
	// rows per insert statement.
	Load(ctx context.Context, tables []projection.Table, batchSize int) error

	// Query forwards an arbitrary SQL string to the engine and returns its
	// result rows. Engine errors are surfaced with their original cause
	// attached; they are typically a problem in the query itself.
	Query(ctx context.Context, query string) (*model.QueryResult, error)

	// Close releases the underlying database connection.
	Close() error
}
