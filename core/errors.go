package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// Machine-readable rejection reasons surfaced to API callers.
const (
	ReasonValidation    = "validation_error"
	ReasonForbidden     = "forbidden"
	ReasonNotFound      = "not_found"
	ReasonConflict      = "conflict"
	ReasonInvalidPeriod = "invalid_period"
)

// RequestError is a structured rejection of a single request: a reason code
// from the taxonomy above plus a human-readable message. It never indicates
// a server fault.
type RequestError struct {
	Reason  string
	Message string
}

func NewRequestError(reason, message string) error {
	return &RequestError{Reason: reason, Message: message}
}

func (err RequestError) Error() string {
	return err.Message
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
