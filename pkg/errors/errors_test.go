package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "error without cause",
			err:      &Error{Code: CodeParse, Message: "unrecognized keyword \"SELEKT\""},
			expected: "PARSE_ERROR: unrecognized keyword \"SELEKT\"",
		},
		{
			name: "error with cause",
			err: &Error{
				Code:    CodeEngine,
				Message: "statement failed",
				Cause:   fmt.Errorf("SemanticException table not found"),
			},
			expected: "ENGINE_ERROR: statement failed (caused by: SemanticException table not found)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_UnwrapAndIs(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, CodeConnectionFailed, "dial hiveserver2")

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, ErrConnection))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrEngine))
	assert.False(t, err.Is(fmt.Errorf("plain")))
}

func TestError_WithDetail(t *testing.T) {
	err := New(CodeParse, "unrecognized keyword").
		WithDetail("token", "FROBNICATE").
		WithDetail("position", 0)

	assert.Equal(t, "FROBNICATE", err.Details["token"])
	assert.Equal(t, 0, err.Details["position"])

	details := map[string]interface{}{"table": "sales"}
	err = err.WithDetails(details)
	assert.Equal(t, details, err.Details)
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")

	err := Wrap(cause, CodeEngine, "wrapped message")
	assert.Equal(t, CodeEngine, err.Code)
	assert.Equal(t, "wrapped message", err.Message)
	assert.Equal(t, cause, err.Cause)

	errf := Wrapf(cause, CodeEngine, "statement %d failed", 3)
	assert.Equal(t, "statement 3 failed", errf.Message)

	assert.Nil(t, Wrap(nil, CodeEngine, "message"))
	assert.Nil(t, Wrapf(nil, CodeEngine, "message %d", 42))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"connection", New(CodeConnectionFailed, "x"), IsConnection, true},
		{"connection wrapped by fmt", fmt.Errorf("outer: %w", New(CodeConnectionFailed, "x")), IsConnection, true},
		{"unauthorized", New(CodeUnauthorized, "x"), IsUnauthorized, true},
		{"parse", New(CodeParse, "x"), IsParse, true},
		{"validation", New(CodeValidation, "x"), IsValidation, true},
		{"unsupported", New(CodeUnsupportedOperation, "x"), IsUnsupported, true},
		{"engine", New(CodeEngine, "x"), IsEngine, true},
		{"engine is not parse", New(CodeEngine, "x"), IsParse, false},
		{"standard error", fmt.Errorf("plain"), IsEngine, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(nil))
	assert.Equal(t, CodeDeadlineExceeded, GetCode(FromContext(context.DeadlineExceeded)))
	assert.Equal(t, CodeCanceled, GetCode(FromContext(fmt.Errorf("query: %w", context.Canceled))))

	plain := fmt.Errorf("plain")
	assert.Equal(t, plain, FromContext(plain))
}

func TestGetCodeAndMessage(t *testing.T) {
	assert.Equal(t, CodeValidation, GetCode(ErrValidation))
	assert.Equal(t, CodeInternal, GetCode(fmt.Errorf("standard error")))

	assert.Equal(t, "statement validation failed", GetMessage(ErrValidation))
	assert.Equal(t, "standard error", GetMessage(fmt.Errorf("standard error")))
}
