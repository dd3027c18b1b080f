package output

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/infrastructure/converter"
	"github.com/TFMV/hivesql/pkg/models"
)

// ArrowWriter writes each row set as a separate Arrow IPC stream with a
// single record batch. Status-only and failed envelopes are skipped.
type ArrowWriter struct {
	w     io.Writer
	alloc memory.Allocator
}

// NewArrowWriter creates an Arrow writer. A nil allocator uses the Go
// allocator.
func NewArrowWriter(w io.Writer, alloc memory.Allocator) *ArrowWriter {
	if alloc == nil {
		alloc = memory.NewGoAllocator()
	}
	return &ArrowWriter{w: w, alloc: alloc}
}

func (w *ArrowWriter) Write(env *models.ResultEnvelope) error {
	if !env.Succeeded() || !env.HasRows() {
		return nil
	}

	b := converter.NewRecordBuilder(w.alloc, env.Columns)
	defer b.Release()
	for _, row := range env.Rows {
		if err := b.Append(row.Values()); err != nil {
			return err
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	iw := ipc.NewWriter(w.w, ipc.WithSchema(b.Schema()), ipc.WithAllocator(w.alloc))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return errors.Wrap(err, errors.CodeInternal, "failed to write arrow record")
	}
	if err := iw.Close(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to close arrow stream")
	}
	return nil
}

func (w *ArrowWriter) Flush() error { return nil }
