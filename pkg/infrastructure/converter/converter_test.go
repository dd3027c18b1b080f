package converter

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/hivesql/pkg/models"
)

func TestArrowType(t *testing.T) {
	tests := []struct {
		engineType string
		want       arrow.DataType
	}{
		{"INT_TYPE", arrow.PrimitiveTypes.Int32},
		{"BIGINT_TYPE", arrow.PrimitiveTypes.Int64},
		{"STRING_TYPE", arrow.BinaryTypes.String},
		{"BOOLEAN_TYPE", arrow.FixedWidthTypes.Boolean},
		{"DOUBLE_TYPE", arrow.PrimitiveTypes.Float64},
		{"TIMESTAMP_TYPE", arrow.FixedWidthTypes.Timestamp_us},
		{"DATE_TYPE", arrow.FixedWidthTypes.Date32},
		{"DECIMAL_TYPE", arrow.BinaryTypes.String},
		{"ARRAY_TYPE", arrow.BinaryTypes.String},
		{"INTEGER", arrow.PrimitiveTypes.Int32},
		{"VARCHAR", arrow.BinaryTypes.String},
		{"varchar(255)", arrow.BinaryTypes.String},
		{"BLOB", arrow.BinaryTypes.Binary},
		{"DATETIME", arrow.FixedWidthTypes.Timestamp_us},
		{"array<int>", arrow.BinaryTypes.String},
		{"", arrow.BinaryTypes.String},
	}

	for _, tt := range tests {
		t.Run(tt.engineType, func(t *testing.T) {
			assert.True(t, arrow.TypeEqual(tt.want, ArrowType(tt.engineType)), "got %s", ArrowType(tt.engineType))
		})
	}
}

func TestSchema(t *testing.T) {
	schema := Schema([]models.Column{{Name: "id", Type: "INT_TYPE"}, {Name: "name"}})

	require.Len(t, schema.Fields(), 2)
	assert.Equal(t, "id", schema.Field(0).Name)
	assert.True(t, schema.Field(0).Nullable)

	md := schema.Field(0).Metadata
	idx := md.FindKey("engine_type")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "INT_TYPE", md.Values()[idx])
	assert.Equal(t, 0, schema.Field(1).Metadata.Len())
}

func TestRecordBuilder(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	cols := []models.Column{
		{Name: "id", Type: "INT_TYPE"},
		{Name: "name", Type: "STRING_TYPE"},
		{Name: "active", Type: "BOOLEAN_TYPE"},
		{Name: "amount", Type: "DOUBLE_TYPE"},
		{Name: "created", Type: "TIMESTAMP_TYPE"},
	}

	b := NewRecordBuilder(alloc, cols)
	defer b.Release()

	require.NoError(t, b.Append([]interface{}{int32(1), "alice", true, 12.5, "2024-02-18 10:30:00"}))
	require.NoError(t, b.Append([]interface{}{"2", []byte("bob"), "false", int64(3), time.Date(2024, 2, 19, 0, 0, 0, 0, time.UTC)}))
	require.NoError(t, b.Append([]interface{}{nil, "carol"}))
	assert.Equal(t, 3, b.Len())

	rec := b.NewRecord()
	defer rec.Release()
	assert.Equal(t, 0, b.Len())

	require.Equal(t, int64(3), rec.NumRows())

	ids := rec.Column(0).(*array.Int32)
	assert.Equal(t, int32(1), ids.Value(0))
	assert.Equal(t, int32(2), ids.Value(1))
	assert.True(t, ids.IsNull(2))

	names := rec.Column(1).(*array.String)
	assert.Equal(t, "bob", names.Value(1))

	active := rec.Column(2).(*array.Boolean)
	assert.True(t, active.Value(0))
	assert.False(t, active.Value(1))
	assert.True(t, active.IsNull(2))

	amounts := rec.Column(3).(*array.Float64)
	assert.Equal(t, 3.0, amounts.Value(1))

	ts := rec.Column(4).(*array.Timestamp)
	want := time.Date(2024, 2, 18, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, arrow.Timestamp(want.UnixMicro()), ts.Value(0))
}

func TestRecordBuilder_Errors(t *testing.T) {
	tests := []struct {
		name string
		cols []models.Column
		row  []interface{}
	}{
		{"too many values", []models.Column{{Name: "a"}}, []interface{}{"x", "y"}},
		{"bad integer", []models.Column{{Name: "id", Type: "INT_TYPE"}}, []interface{}{"abc"}},
		{"bad boolean", []models.Column{{Name: "b", Type: "BOOLEAN_TYPE"}}, []interface{}{"maybe"}},
		{"bad timestamp", []models.Column{{Name: "ts", Type: "TIMESTAMP_TYPE"}}, []interface{}{"yesterday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewRecordBuilder(nil, tt.cols)
			defer b.Release()
			assert.Error(t, b.Append(tt.row))
		})
	}
}
