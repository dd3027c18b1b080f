package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/TFMV/hivesql/pkg/models"
)

// jsonEnvelope is the JSON form of an envelope. Rows are arrays ordered like
// columns.
type jsonEnvelope struct {
	Status          models.Status       `json:"status"`
	Category        models.Category     `json:"category,omitempty"`
	Action          models.Action       `json:"action,omitempty"`
	Database        string              `json:"database,omitempty"`
	Columns         []models.Column     `json:"columns,omitempty"`
	Rows            [][]interface{}     `json:"rows,omitempty"`
	RowsAffected    *int64              `json:"rows_affected,omitempty"`
	Message         string              `json:"message,omitempty"`
	Error           *models.ErrorDetail `json:"error,omitempty"`
	ExecutionTimeMs float64             `json:"execution_time_ms"`
}

// JSONWriter writes all envelopes as one JSON array.
type JSONWriter struct {
	writer *bufio.Writer
	first  bool
}

func NewJSONWriter(writer io.Writer) *JSONWriter {
	return &JSONWriter{
		writer: bufio.NewWriter(writer),
		first:  true,
	}
}

func (w *JSONWriter) Write(env *models.ResultEnvelope) error {
	if env == nil {
		return nil
	}
	sep := ","
	if w.first {
		sep = "["
		w.first = false
	}
	if _, err := w.writer.WriteString(sep); err != nil {
		return err
	}

	je := jsonEnvelope{
		Status:          env.Status,
		Category:        env.Category,
		Action:          env.Action,
		Database:        env.Database,
		Columns:         env.Columns,
		RowsAffected:    env.RowsAffected,
		Message:         env.Message,
		Error:           env.Error,
		ExecutionTimeMs: float64(env.ExecutionTime.Microseconds()) / 1000,
	}
	if env.HasRows() {
		je.Rows = make([][]interface{}, len(env.Rows))
		for i, row := range env.Rows {
			je.Rows[i] = row.Values()
		}
	}

	data, err := json.Marshal(je)
	if err != nil {
		return err
	}
	_, err = w.writer.Write(data)
	return err
}

// Flush closes the array. An empty run writes [].
func (w *JSONWriter) Flush() error {
	end := "]\n"
	if w.first {
		end = "[]\n"
	}
	if _, err := w.writer.WriteString(end); err != nil {
		return err
	}
	w.first = true
	return w.writer.Flush()
}
