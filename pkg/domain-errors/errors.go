// Package derrors provides coded domain errors shared across services.
//
// Services translate infrastructure sentinels (pkg/platform/sentinel) into
// these coded errors at the service boundary; the HTTP layer maps codes to
// status lines in one place (pkg/platform/httputil).
package derrors

import "errors"

// Code classifies a domain error for transport mapping and tests.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeFailedPrecondition Code = "failed_precondition"
	CodeUnavailable        Code = "unavailable"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error is a comparable coded error. New returns a value so tests can use
// errors.Is against a freshly constructed target with the same code/message.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func (e Error) Error() string {
	if e.wrapped != nil {
		return e.Message + ": " + e.wrapped.Error()
	}
	return e.Message
}

func (e Error) Unwrap() error { return e.wrapped }

// Is treats two domain errors with the same code and message as equal even
// when one of them carries a wrapped cause.
func (e Error) Is(target error) bool {
	var other Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// New builds a domain error with the given code and message.
func New(code Code, message string) error {
	return Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return Error{Code: code, Message: message, wrapped: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de Error
	for {
		if errors.As(err, &de) {
			if de.Code == code {
				return true
			}
			err = de.Unwrap()
			continue
		}
		return false
	}
}

// CodeOf returns the outermost domain error code, or CodeInternal when the
// error is not a domain error.
func CodeOf(err error) Code {
	var de Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
