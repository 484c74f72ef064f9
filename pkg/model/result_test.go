package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryResult_RowMap(t *testing.T) {
	res := &QueryResult{
		Columns: []string{"ordinal", "name"},
		Rows: [][]interface{}{
			{int64(0), "HugeObj"},
			{int64(1), nil},
		},
	}

	assert.Equal(t, 2, res.Len())
	assert.Equal(t, map[string]interface{}{"ordinal": int64(0), "name": "HugeObj"}, res.RowMap(0))
	assert.Equal(t, map[string]interface{}{"ordinal": int64(1), "name": nil}, res.RowMap(1))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "null", FormatValue(nil))
	assert.Equal(t, "ref", FormatValue("ref"))
	assert.Equal(t, "ref", FormatValue([]byte("ref")))
	assert.Equal(t, "42", FormatValue(int64(42)))
	assert.Equal(t, "42", FormatValue(uint64(42)))
	assert.Equal(t, "1.5", FormatValue(1.5))
	assert.Equal(t, "true", FormatValue(true))
}
