// Package converter maps engine column types and row values to Apache Arrow.
package converter

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/TFMV/hivesql/pkg/models"
)

// typeMap is keyed by lower-case type names without parameters. HiveServer2
// reports types as e.g. INT_TYPE; the suffix is removed before lookup.
var typeMap = map[string]arrow.DataType{
	// Integer types
	"tinyint":  arrow.PrimitiveTypes.Int8,
	"smallint": arrow.PrimitiveTypes.Int16,
	"int":      arrow.PrimitiveTypes.Int32,
	"integer":  arrow.PrimitiveTypes.Int32,
	"bigint":   arrow.PrimitiveTypes.Int64,

	// Floating point types
	"float":            arrow.PrimitiveTypes.Float32,
	"real":             arrow.PrimitiveTypes.Float32,
	"double":           arrow.PrimitiveTypes.Float64,
	"double precision": arrow.PrimitiveTypes.Float64,

	"boolean": arrow.FixedWidthTypes.Boolean,
	"bool":    arrow.FixedWidthTypes.Boolean,

	// String types
	"string":  arrow.BinaryTypes.String,
	"varchar": arrow.BinaryTypes.String,
	"char":    arrow.BinaryTypes.String,
	"text":    arrow.BinaryTypes.String,

	// Binary types
	"binary":    arrow.BinaryTypes.Binary,
	"blob":      arrow.BinaryTypes.Binary,
	"varbinary": arrow.BinaryTypes.Binary,

	// Date/Time types
	"date":      arrow.FixedWidthTypes.Date32,
	"timestamp": arrow.FixedWidthTypes.Timestamp_us,
	"datetime":  arrow.FixedWidthTypes.Timestamp_us,
}

// ArrowType returns the Arrow type for an engine type name. Decimals,
// complex types (array, map, struct) and unknown types are carried as
// strings.
func ArrowType(engineType string) arrow.DataType {
	t := strings.ToLower(strings.TrimSpace(engineType))
	t = strings.TrimSuffix(t, "_type")
	if i := strings.IndexAny(t, "(<"); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if dt, ok := typeMap[t]; ok {
		return dt
	}
	return arrow.BinaryTypes.String
}

// Schema builds an Arrow schema for cols. Every field is nullable and keeps
// the engine type name in its metadata.
func Schema(cols []models.Column) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, col := range cols {
		fields[i] = arrow.Field{
			Name:     col.Name,
			Type:     ArrowType(col.Type),
			Nullable: true,
		}
		if col.Type != "" {
			fields[i].Metadata = arrow.NewMetadata([]string{"engine_type"}, []string{col.Type})
		}
	}
	return arrow.NewSchema(fields, nil)
}
