package services

import (
	"fmt"

	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/models"
)

// ResultFormatter turns engine responses into ResultEnvelopes so callers never
// branch on statement category to read a result.
type ResultFormatter struct{}

// NewResultFormatter creates a result formatter.
func NewResultFormatter() *ResultFormatter {
	return &ResultFormatter{}
}

// Format normalizes a raw engine response. Row sets always produce a non-nil
// Rows slice; status responses carry RowsAffected when the engine reports it.
func (f *ResultFormatter) Format(raw models.RawResponse) *models.ResultEnvelope {
	switch r := raw.(type) {
	case *models.RowSet:
		if r == nil {
			break
		}
		return f.formatRowSet(r)
	case *models.ExecStatus:
		if r == nil {
			break
		}
		return f.formatStatus(r)
	}
	return f.Failure(errors.New(errors.CodeInternal, "engine returned no response"))
}

func (f *ResultFormatter) formatRowSet(rs *models.RowSet) *models.ResultEnvelope {
	width := len(rs.Columns)
	for _, row := range rs.Rows {
		if len(row) > width {
			width = len(row)
		}
	}

	cols := make([]models.Column, width)
	copy(cols, rs.Columns)
	for i := range cols {
		if cols[i].Name == "" {
			// Hive's name for unnamed expressions
			cols[i].Name = fmt.Sprintf("_c%d", i)
		}
	}

	rows := make([]models.Row, 0, len(rs.Rows))
	for _, values := range rs.Rows {
		row := make(models.Row, width)
		for i := range cols {
			var v interface{}
			if i < len(values) {
				v = normalizeValue(values[i])
			}
			row[i] = models.Field{Name: cols[i].Name, Value: v}
		}
		rows = append(rows, row)
	}

	return &models.ResultEnvelope{
		Status:  models.StatusSuccess,
		State:   models.StateCompleted,
		Columns: cols,
		Rows:    rows,
		Message: rowCountMessage(len(rows)),
	}
}

func (f *ResultFormatter) formatStatus(st *models.ExecStatus) *models.ResultEnvelope {
	env := &models.ResultEnvelope{
		Status:  models.StatusSuccess,
		State:   models.StateCompleted,
		Message: st.Message,
	}
	if st.RowsAffected >= 0 {
		n := st.RowsAffected
		env.RowsAffected = &n
	}
	if env.Message == "" {
		env.Message = "OK"
	}
	return env
}

// Failure builds the envelope for a failed statement.
func (f *ResultFormatter) Failure(err error) *models.ResultEnvelope {
	if err == nil {
		err = errors.New(errors.CodeInternal, "unknown failure")
	}
	return &models.ResultEnvelope{
		Status: models.StatusFailure,
		State:  models.StateFailed,
		Error: &models.ErrorDetail{
			Code:    errors.GetCode(err),
			Message: errorMessage(err),
		},
	}
}

// errorMessage renders the message of err followed by its cause, without the
// code prefix that Error() adds.
func errorMessage(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + e.Cause.Error()
		}
		return e.Message
	}
	return err.Error()
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case *string:
		if val == nil {
			return nil
		}
		return *val
	default:
		return v
	}
}

func rowCountMessage(n int) string {
	if n == 1 {
		return "1 row"
	}
	return fmt.Sprintf("%d rows", n)
}
