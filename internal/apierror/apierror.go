// Package apierror defines the errors HTTP handlers turn into JSON responses.
package apierror

import (
	"errors"
	"net/http"
)

// Error is an error with the status and client message it should be
// reported with. Err, when set, is the underlying cause; it is logged and,
// for 500 responses, echoed in the "error" field.
type Error struct {
	Status  int
	Message string
	Errors  []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Validation reports field errors under the "Validation failed" message.
func Validation(errs ...string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: "Validation failed", Errors: errs}
}

func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

func Locked(message string) *Error {
	return New(http.StatusLocked, message)
}

func TooManyRequests(message string) *Error {
	return New(http.StatusTooManyRequests, message)
}

func ServiceUnavailable(message string) *Error {
	return New(http.StatusServiceUnavailable, message)
}

// Internal wraps an unexpected failure.
func Internal(err error, message string) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message, Err: err}
}

// As extracts an *Error from err. Anything else becomes Internal with
// fallback as message.
func As(err error, fallback string) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(err, fallback)
}
