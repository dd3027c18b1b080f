package output

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/TFMV/hivesql/pkg/models"
)

// PlainWriter prints one "column: value" line per row.
type PlainWriter struct {
	writer *bufio.Writer
}

func NewPlainWriter(writer io.Writer) *PlainWriter {
	return &PlainWriter{writer: bufio.NewWriter(writer)}
}

func (w *PlainWriter) Write(env *models.ResultEnvelope) error {
	if env == nil {
		return nil
	}
	if !env.HasRows() {
		_, err := fmt.Fprintln(w.writer, statusLine(env))
		return err
	}
	for _, row := range env.Rows {
		for i, f := range row {
			if i > 0 {
				if err := w.writer.WriteByte(' '); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w.writer, "%s: %s", f.Name, formatValue(f.Value)); err != nil {
				return err
			}
		}
		if err := w.writer.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

func (w *PlainWriter) Flush() error {
	return w.writer.Flush()
}

// CSVWriter writes a header and the rows of each row set. Status-only
// envelopes produce no output.
type CSVWriter struct {
	writer *csv.Writer
}

func NewCSVWriter(writer io.Writer) *CSVWriter {
	return &CSVWriter{writer: csv.NewWriter(writer)}
}

func (w *CSVWriter) Write(env *models.ResultEnvelope) error {
	if env == nil || !env.HasRows() {
		return nil
	}
	if err := w.writer.Write(columnNames(env)); err != nil {
		return err
	}
	for _, row := range env.Rows {
		record := make([]string, len(row))
		for i, f := range row {
			record[i] = formatCSVValue(f.Value)
		}
		if err := w.writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func (w *CSVWriter) Flush() error {
	w.writer.Flush()
	return w.writer.Error()
}

func formatCSVValue(val interface{}) string {
	if val == nil {
		return ""
	}
	return formatValue(val)
}
