package converter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/models"
)

// timestampLayouts are tried in order when a timestamp arrives as text.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// RecordBuilder accumulates rows into an Arrow record.
type RecordBuilder struct {
	schema  *arrow.Schema
	builder *array.RecordBuilder
	rows    int
}

// NewRecordBuilder creates a builder for rows shaped like cols.
func NewRecordBuilder(alloc memory.Allocator, cols []models.Column) *RecordBuilder {
	if alloc == nil {
		alloc = memory.NewGoAllocator()
	}
	schema := Schema(cols)
	return &RecordBuilder{
		schema:  schema,
		builder: array.NewRecordBuilder(alloc, schema),
	}
}

// Schema returns the record schema.
func (b *RecordBuilder) Schema() *arrow.Schema {
	return b.schema
}

// Len returns the number of rows appended since the last NewRecord.
func (b *RecordBuilder) Len() int {
	return b.rows
}

// Append adds one row. Values are matched to columns by position; missing
// values are null and extra values are an error. After an error the builder
// holds a partial row and must be released.
func (b *RecordBuilder) Append(values []interface{}) error {
	if len(values) > len(b.schema.Fields()) {
		return errors.Newf(errors.CodeInternal, "row has %d values for %d columns", len(values), len(b.schema.Fields()))
	}
	for i, field := range b.schema.Fields() {
		fb := b.builder.Field(i)
		if i >= len(values) || values[i] == nil {
			fb.AppendNull()
			continue
		}
		if err := appendValue(fb, values[i]); err != nil {
			return errors.Wrapf(err, errors.CodeInternal, "column %s", field.Name)
		}
	}
	b.rows++
	return nil
}

// NewRecord returns the accumulated rows as a record and resets the builder.
// The caller releases the record.
func (b *RecordBuilder) NewRecord() arrow.Record {
	b.rows = 0
	return b.builder.NewRecord()
}

// Release releases the underlying builders.
func (b *RecordBuilder) Release() {
	b.builder.Release()
}

// appendValue appends v to fb, converting between the representations the
// engines return (native Go values or text).
func appendValue(fb array.Builder, v interface{}) error {
	switch b := fb.(type) {
	case *array.BooleanBuilder:
		val, err := toBool(v)
		if err != nil {
			return err
		}
		b.Append(val)

	case *array.Int8Builder:
		val, err := toInt64(v)
		if err != nil {
			return err
		}
		b.Append(int8(val))
	case *array.Int16Builder:
		val, err := toInt64(v)
		if err != nil {
			return err
		}
		b.Append(int16(val))
	case *array.Int32Builder:
		val, err := toInt64(v)
		if err != nil {
			return err
		}
		b.Append(int32(val))
	case *array.Int64Builder:
		val, err := toInt64(v)
		if err != nil {
			return err
		}
		b.Append(val)

	case *array.Float32Builder:
		val, err := toFloat64(v)
		if err != nil {
			return err
		}
		b.Append(float32(val))
	case *array.Float64Builder:
		val, err := toFloat64(v)
		if err != nil {
			return err
		}
		b.Append(val)

	case *array.StringBuilder:
		b.Append(toString(v))

	case *array.BinaryBuilder:
		switch val := v.(type) {
		case []byte:
			b.Append(val)
		default:
			b.Append([]byte(toString(v)))
		}

	case *array.Date32Builder:
		t, err := toTime(v)
		if err != nil {
			return err
		}
		b.Append(arrow.Date32FromTime(t))

	case *array.TimestampBuilder:
		t, err := toTime(v)
		if err != nil {
			return err
		}
		b.Append(arrow.Timestamp(t.UnixMicro()))

	default:
		return fmt.Errorf("unsupported builder %T", fb)
	}
	return nil
}

func toBool(v interface{}) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(val))
	case []byte:
		return strconv.ParseBool(strings.TrimSpace(string(val)))
	}
	n, err := toInt64(v)
	if err != nil {
		return false, fmt.Errorf("cannot convert %T to boolean", v)
	}
	return n != 0, nil
}

func toInt64(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return int64(val), nil
	case float32:
		return int64(val), nil
	case float64:
		return int64(val), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(val)), 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", v)
	}
}

func toFloat64(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float32:
		return float64(val), nil
	case float64:
		return val, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
	return float64(n), nil
}

func toTime(v interface{}) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case []byte:
		return parseTime(string(val))
	case string:
		return parseTime(val)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time", v)
	}
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}

// toString renders a value as text.
func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05.999999999")
	default:
		return fmt.Sprint(val)
	}
}
