package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/heapquery/internal/projection"
	apperrors "github.com/heapquery/pkg/errors"
	"github.com/heapquery/pkg/model"
)

// insertColumnLimit keeps a single INSERT under the engines' bind-variable
// limits (999 for older sqlite builds).
const insertColumnLimit = 900

// GormStore implements Store on a GORM database handle.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open GORM handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// HasProjection reports whether every projection table already exists.
func (s *GormStore) HasProjection(ctx context.Context) (bool, error) {
	migrator := s.db.WithContext(ctx).Migrator()
	for _, rel := range []projection.Relation{
		projection.NodeRelation, projection.EdgeRelation, projection.LocationRelation,
	} {
		if !migrator.HasTable(rel.Name) {
			return false, nil
		}
	}
	return true, nil
}

// Load creates the projection tables and streams all row sources into them
// in a single transaction. Existing projection tables are replaced.
func (s *GormStore) Load(ctx context.Context, tables []projection.Table, batchSize int) error {
	if batchSize < 1 {
		batchSize = 1
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if err := s.createTable(tx, table.Relation); err != nil {
				return err
			}
			if err := s.insertRows(tx, table, batchSize); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if apperrors.GetErrorCode(err) != apperrors.CodeUnknown {
			return err
		}
		return apperrors.Wrap(apperrors.CodeStorageError, "bulk load failed", err)
	}
	return nil
}

func (s *GormStore) createTable(tx *gorm.DB, rel projection.Relation) error {
	if err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", s.quote(rel.Name))).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError,
			fmt.Sprintf("failed to drop table %s", rel.Name), err)
	}

	cols := make([]string, len(rel.Columns))
	for i, c := range rel.Columns {
		cols[i] = fmt.Sprintf("%s %s", s.quote(c.Name), s.columnDDL(c.Type))
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", s.quote(rel.Name), strings.Join(cols, ", "))
	if err := tx.Exec(ddl).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError,
			fmt.Sprintf("failed to create table %s", rel.Name), err)
	}
	return nil
}

func (s *GormStore) insertRows(tx *gorm.DB, table projection.Table, batchSize int) error {
	rel := table.Relation

	// Keep the total bind-variable count of one statement bounded.
	if max := insertColumnLimit / len(rel.Columns); batchSize > max {
		batchSize = max
	}

	quoted := make([]string, len(rel.Columns))
	for i, c := range rel.Columns {
		quoted[i] = s.quote(c.Name)
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ",
		s.quote(rel.Name), strings.Join(quoted, ", "))
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(rel.Columns)), ", ") + ")"

	args := make([]interface{}, 0, batchSize*len(rel.Columns))
	pending := 0

	flush := func() error {
		if pending == 0 {
			return nil
		}
		stmt := prefix + strings.TrimSuffix(strings.Repeat(placeholder+", ", pending), ", ")
		if err := tx.Exec(stmt, args...).Error; err != nil {
			return apperrors.Wrap(apperrors.CodeStorageError,
				fmt.Sprintf("failed to insert into %s", rel.Name), err)
		}
		args = args[:0]
		pending = 0
		return nil
	}

	for {
		row, ok := table.Rows.Next()
		if !ok {
			break
		}
		if len(row) != len(rel.Columns) {
			return apperrors.Newf(apperrors.CodeStorageError,
				"row for %s has %d values, relation declares %d columns",
				rel.Name, len(row), len(rel.Columns))
		}
		for i, v := range row {
			args = append(args, s.bindValue(rel.Columns[i].Type, v))
		}
		pending++
		if pending >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// Query forwards the SQL string to the engine and collects all result rows.
func (s *GormStore) Query(ctx context.Context, query string) (*model.QueryResult, error) {
	rows, err := s.db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "query failed", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "failed to read result columns", err)
	}

	result := &model.QueryResult{Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageError, "failed to scan result row", err)
		}
		// Byte slices are reused by some drivers between rows.
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "result iteration failed", err)
	}

	return result, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// columnDDL renders a logical column type for the active engine. The variant
// type (name_or_index) relies on sqlite's dynamic typing; strict engines get
// a text column and variant integers are bound as decimal strings.
func (s *GormStore) columnDDL(t projection.ColumnType) string {
	switch t {
	case projection.TypeInteger:
		return "INTEGER"
	case projection.TypeText:
		return "TEXT"
	case projection.TypeVariant:
		if s.dialect() == "sqlite" {
			return "NUMERIC"
		}
		return "TEXT"
	default:
		return "TEXT"
	}
}

func (s *GormStore) bindValue(t projection.ColumnType, v interface{}) interface{} {
	if t == projection.TypeVariant && s.dialect() != "sqlite" {
		if n, ok := v.(int64); ok {
			return strconv.FormatInt(n, 10)
		}
	}
	return v
}

func (s *GormStore) quote(name string) string {
	if s.dialect() == "mysql" {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

func (s *GormStore) dialect() string {
	return s.db.Dialector.Name()
}
