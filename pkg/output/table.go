package output

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/TFMV/hivesql/pkg/models"
)

// TableWriter draws row sets as ASCII tables.
type TableWriter struct {
	out *bufio.Writer
}

// NewTableWriter creates a table writer.
func NewTableWriter(w io.Writer) *TableWriter {
	return &TableWriter{out: bufio.NewWriter(w)}
}

func (w *TableWriter) Write(env *models.ResultEnvelope) error {
	if env == nil {
		return nil
	}
	if !env.HasRows() {
		_, err := fmt.Fprintln(w.out, statusLine(env))
		return err
	}

	table := tablewriter.NewWriter(w.out)
	table.SetHeader(columnNames(env))
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range env.Rows {
		data := make([]string, len(env.Columns))
		for i, v := range row.Values() {
			if i < len(data) {
				data[i] = formatValue(v)
			}
		}
		table.Append(data)
	}
	table.Render()

	_, err := fmt.Fprintf(w.out, "%s (%s)\n", env.Message, env.ExecutionTime.Round(time.Millisecond))
	return err
}

func (w *TableWriter) Flush() error {
	return w.out.Flush()
}
