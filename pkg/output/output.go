// Package output renders result envelopes for the terminal and for other
// programs.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/models"
)

// Format selects a Writer.
type Format string

const (
	FormatTable Format = "table"
	FormatPlain Format = "plain"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatArrow Format = "arrow"
)

// Formats lists the supported formats.
var Formats = []Format{FormatTable, FormatPlain, FormatJSON, FormatCSV, FormatArrow}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.Newf(errors.CodeInvalidRequest, "unknown output format %q", s)
}

// Writer renders envelopes. Flush must be called after the last Write.
type Writer interface {
	Write(env *models.ResultEnvelope) error
	Flush() error
}

// NewWriter returns the writer for format.
func NewWriter(format Format, w io.Writer) (Writer, error) {
	switch format {
	case FormatTable:
		return NewTableWriter(w), nil
	case FormatPlain:
		return NewPlainWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	case FormatArrow:
		return NewArrowWriter(w, nil), nil
	default:
		return nil, errors.Newf(errors.CodeInvalidRequest, "unknown output format %q", format)
	}
}

// formatValue renders a value for human-readable output.
func formatValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return "NULL"
	case bool:
		return fmt.Sprintf("%t", v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%v", v)
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// statusLine summarizes an envelope without rows.
func statusLine(env *models.ResultEnvelope) string {
	if !env.Succeeded() {
		if env.Error != nil {
			return fmt.Sprintf("ERROR [%s]: %s", env.Error.Code, env.Error.Message)
		}
		return "ERROR"
	}
	if env.RowsAffected != nil && *env.RowsAffected >= 0 {
		if *env.RowsAffected == 1 {
			return "OK, 1 row affected"
		}
		return fmt.Sprintf("OK, %d rows affected", *env.RowsAffected)
	}
	if env.Message != "" {
		return env.Message
	}
	return "OK"
}

func columnNames(env *models.ResultEnvelope) []string {
	names := make([]string, len(env.Columns))
	for i, c := range env.Columns {
		names[i] = c.Name
	}
	return names
}
