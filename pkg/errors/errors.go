// Package errors provides the coded error taxonomy shared by the session,
// classifier and dispatcher layers.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Error codes. Every error surfaced to a caller carries exactly one of these.
const (
	// CodeConnectionFailed is a transient transport failure. The session layer
	// retries it once with an immediate reconnect.
	CodeConnectionFailed = "CONNECTION_FAILED"
	// CodeUnauthorized means the engine rejected the credentials.
	CodeUnauthorized = "UNAUTHORIZED"
	// CodeParse means the statement text could not be classified.
	CodeParse = "PARSE_ERROR"
	// CodeValidation means the statement was classified but is malformed,
	// e.g. a partition spec without values.
	CodeValidation = "VALIDATION_FAILED"
	// CodeUnsupportedOperation means the engine would reject the statement
	// for a known reason, e.g. UPDATE on a non-transactional table.
	CodeUnsupportedOperation = "UNSUPPORTED_OPERATION"
	// CodeEngine is an opaque failure reported by the external engine.
	CodeEngine = "ENGINE_ERROR"

	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeDeadlineExceeded = "DEADLINE_EXCEEDED"
	CodeCanceled         = "CANCELED"
	CodeInternal         = "INTERNAL_ERROR"
)

// Error is a coded error with a message, optional details and an optional cause.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails replaces the error details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Sentinels for errors.Is comparisons. They match any error with the same code.
var (
	ErrConnection  = &Error{Code: CodeConnectionFailed, Message: "connection failed"}
	ErrParse       = &Error{Code: CodeParse, Message: "statement could not be parsed"}
	ErrValidation  = &Error{Code: CodeValidation, Message: "statement validation failed"}
	ErrUnsupported = &Error{Code: CodeUnsupportedOperation, Message: "operation not supported"}
	ErrEngine      = &Error{Code: CodeEngine, Message: "engine error"}
	ErrSessionDone = &Error{Code: CodeConnectionFailed, Message: "session is closed"}
)

// New creates a new Error with the given code and message.
func New(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps err with a coded Error. It returns nil when err is nil.
func Wrap(err error, code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// FromContext maps context cancellation errors to coded errors. Other errors
// are returned unchanged.
func FromContext(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, CodeDeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return Wrap(err, CodeCanceled, "canceled")
	default:
		return err
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func hasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsConnection reports whether err is a transient connection failure.
func IsConnection(err error) bool { return hasCode(err, CodeConnectionFailed) }

// IsUnauthorized reports whether err is an authentication rejection.
func IsUnauthorized(err error) bool { return hasCode(err, CodeUnauthorized) }

// IsParse reports whether err is a classification failure.
func IsParse(err error) bool { return hasCode(err, CodeParse) }

// IsValidation reports whether err is a statement validation failure.
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsUnsupported reports whether err is an unsupported operation.
func IsUnsupported(err error) bool { return hasCode(err, CodeUnsupportedOperation) }

// IsEngine reports whether err is an opaque engine failure.
func IsEngine(err error) bool { return hasCode(err, CodeEngine) }

// GetCode extracts the outermost error code, or CodeInternal for uncoded errors.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// GetMessage extracts the error message from an error.
func GetMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
