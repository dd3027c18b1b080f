package models

import (
	"time"
)

// RawResponse is what an engine driver returns for one statement. It is
// either a *RowSet or an *ExecStatus and is consumed by the result formatter.
type RawResponse interface {
	rawResponse()
}

// Column describes one column of a row set.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// RowSet is a row-bearing engine response (SELECT, SHOW, DESCRIBE).
type RowSet struct {
	Columns []Column
	Rows    [][]interface{}
}

func (*RowSet) rawResponse() {}

// ExecStatus is a status-only engine response (CREATE, DROP, ALTER, INSERT).
// RowsAffected is -1 when the engine does not report a count.
type ExecStatus struct {
	RowsAffected int64
	Message      string
}

func (*ExecStatus) rawResponse() {}

// Status is the outcome of one dispatched statement.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// DispatchState is the per-statement dispatch state.
type DispatchState string

const (
	StateReceived  DispatchState = "RECEIVED"
	StateValidated DispatchState = "VALIDATED"
	StateForwarded DispatchState = "FORWARDED"
	StateCompleted DispatchState = "COMPLETED"
	StateFailed    DispatchState = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s DispatchState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Field is one named value of a row.
type Field struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Row is an ordered sequence of fields.
type Row []Field

// Get returns the value of the named field.
func (r Row) Get(name string) (interface{}, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Values returns the field values in order.
func (r Row) Values() []interface{} {
	vals := make([]interface{}, len(r))
	for i, f := range r {
		vals[i] = f.Value
	}
	return vals
}

// ErrorDetail is the error carried by a failed envelope.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResultEnvelope is the single result shape returned for every statement.
type ResultEnvelope struct {
	Status        Status        `json:"status"`
	State         DispatchState `json:"state,omitempty"`
	Category      Category      `json:"category,omitempty"`
	Action        Action        `json:"action,omitempty"`
	Database      string        `json:"database,omitempty"`
	Columns       []Column      `json:"columns,omitempty"`
	Rows          []Row         `json:"rows,omitempty"`
	RowsAffected  *int64        `json:"rows_affected,omitempty"`
	Message       string        `json:"message,omitempty"`
	Error         *ErrorDetail  `json:"error,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// Succeeded reports whether the statement completed.
func (e *ResultEnvelope) Succeeded() bool {
	return e != nil && e.Status == StatusSuccess
}

// HasRows reports whether the envelope carries a row set, possibly empty.
func (e *ResultEnvelope) HasRows() bool {
	return e != nil && e.Rows != nil
}
