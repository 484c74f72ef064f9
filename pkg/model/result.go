// Package model defines shared data structures for query results.
package model

import (
	"fmt"
	"strconv"
)

// QueryResult holds the outcome of a SQL query against the projection.
// Rows are ordered as returned by the storage engine; each row has one
// value per column, positionally matched to Columns.
type QueryResult struct {
	Columns []string
	Rows    [][]interface{}
}

// Len returns the number of result rows.
func (r *QueryResult) Len() int {
	return len(r.Rows)
}

// RowMap returns row i as a column-name map.
func (r *QueryResult) RowMap(i int) map[string]interface{} {
	row := make(map[string]interface{}, len(r.Columns))
	for j, col := range r.Columns {
		row[col] = r.Rows[i][j]
	}
	return row
}

// FormatValue renders a single result value the way the CLI prints it:
// integers without exponent, reals via strconv, byte slices as text,
// nil as "null".
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
