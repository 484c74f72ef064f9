package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/heapquery/internal/projection"
	"github.com/heapquery/internal/snapshot"
	"github.com/heapquery/pkg/config"
	apperrors "github.com/heapquery/pkg/errors"
)

func newMemoryStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := NewGormDB(&config.DatabaseConfig{Type: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	store := NewGormStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testGraph() *snapshot.Graph {
	return &snapshot.Graph{
		Nodes: []snapshot.Node{
			{Ordinal: 0, Type: "object", Name: "HugeObj", ID: 1, SelfSize: 64, EdgeCount: 2},
			{Ordinal: 1, Type: "string", Name: "payload", ID: 2, SelfSize: 32},
			{Ordinal: 2, Type: "array", Name: "", ID: 3, SelfSize: 16},
		},
		Edges: []snapshot.Edge{
			{Type: "property", Name: "ref", FromNode: 0, ToNode: 1},
			{Type: "element", Index: 7, IsIndex: true, FromNode: 0, ToNode: 2},
		},
		Locations: []snapshot.Location{
			{NodeOrdinal: 0, ScriptID: 5, Line: 12, Column: 4},
		},
	}
}

func TestGormStore_LoadAndQuery(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	has, err := store.HasProjection(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.Load(ctx, projection.Tables(testGraph()), 500))

	has, err = store.HasProjection(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	t.Run("exact match returns one row", func(t *testing.T) {
		res, err := store.Query(ctx, "select * from node where name = 'HugeObj'")
		require.NoError(t, err)
		require.Equal(t, 1, res.Len())

		row := res.RowMap(0)
		assert.Equal(t, int64(1), row["id"])
		assert.Equal(t, "object", row["type"])
		assert.Equal(t, int64(64), row["self_size"])
	})

	t.Run("no match returns zero rows", func(t *testing.T) {
		res, err := store.Query(ctx, "select * from node where name = 'NoSuchObj'")
		require.NoError(t, err)
		assert.Equal(t, 0, res.Len())
	})

	t.Run("edge endpoints resolve both ways", func(t *testing.T) {
		res, err := store.Query(ctx,
			"select from_node, to_node, from_node_id, to_node_id from edge where type = 'property'")
		require.NoError(t, err)
		require.Equal(t, 1, res.Len())
		assert.Equal(t, []interface{}{int64(0), int64(1), int64(1), int64(2)}, res.Rows[0])
	})

	t.Run("name_or_index keeps its per-row type", func(t *testing.T) {
		res, err := store.Query(ctx, "select name_or_index from edge order by position")
		require.NoError(t, err)
		require.Equal(t, 2, res.Len())
		assert.Equal(t, "ref", res.Rows[0][0])
		assert.Equal(t, int64(7), res.Rows[1][0])
	})

	t.Run("joins across relations", func(t *testing.T) {
		res, err := store.Query(ctx,
			"select n.name, l.line from node n join location l on l.node_ordinal = n.ordinal")
		require.NoError(t, err)
		require.Equal(t, 1, res.Len())
		assert.Equal(t, "HugeObj", res.Rows[0][0])
		assert.Equal(t, int64(12), res.Rows[0][1])
	})
}

func TestGormStore_LoadReplacesExistingProjection(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.Load(ctx, projection.Tables(testGraph()), 500))
	require.NoError(t, store.Load(ctx, projection.Tables(testGraph()), 500))

	res, err := store.Query(ctx, "select count(*) from node")
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())
	assert.Equal(t, int64(3), res.Rows[0][0])
}

func TestGormStore_SmallBatches(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	g := &snapshot.Graph{}
	for i := 0; i < 57; i++ {
		g.Nodes = append(g.Nodes, snapshot.Node{
			Ordinal: i, Type: "object", Name: "n", ID: uint64(i + 1), SelfSize: 8,
		})
	}
	require.NoError(t, store.Load(ctx, projection.Tables(g), 10))

	res, err := store.Query(ctx, "select count(*) from node")
	require.NoError(t, err)
	assert.Equal(t, int64(57), res.Rows[0][0])
}

type brokenRows struct {
	emitted int
}

func (r *brokenRows) Next() ([]interface{}, bool) {
	r.emitted++
	if r.emitted == 1 {
		return []interface{}{int64(0), int64(1), "object", "ok", int64(8), int64(0), int64(0)}, true
	}
	// Wrong arity: the load must fail and roll back the first row too.
	return []interface{}{int64(1)}, true
}

func (r *brokenRows) Remaining() int { return 1 }

func TestGormStore_FailedLoadLeavesNothing(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	tables := []projection.Table{
		{Relation: projection.NodeRelation, Rows: &brokenRows{}},
	}
	err := store.Load(ctx, tables, 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsStorageError(err))

	has, err := store.HasProjection(ctx)
	require.NoError(t, err)
	assert.False(t, has, "a failed load must not leave tables behind")
}

func TestGormStore_QueryError(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, store.Load(ctx, projection.Tables(testGraph()), 500))

	_, err := store.Query(ctx, "select * from no_such_table")
	require.Error(t, err)
	assert.True(t, apperrors.IsStorageError(err))
	// The engine's own message stays attached for diagnosis.
	assert.Contains(t, err.Error(), "no_such_table")
}

func TestGormStore_InsertFailureRollsBack(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	store := NewGormStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS "node"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE "node"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "node"`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	g := &snapshot.Graph{
		Nodes: []snapshot.Node{{Ordinal: 0, Type: "object", Name: "n", ID: 1}},
	}
	err = store.Load(context.Background(), projection.Tables(g)[:1], 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsStorageError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewGormDB_ConfigErrors(t *testing.T) {
	_, err := NewGormDB(&config.DatabaseConfig{Type: "oracle"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfigError, apperrors.GetErrorCode(err))

	_, err = NewGormDB(&config.DatabaseConfig{Type: "sqlite"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfigError, apperrors.GetErrorCode(err))
}
