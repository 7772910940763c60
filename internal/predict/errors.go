package predict

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a request failure carrying the HTTP status it maps to.
type Error struct {
	Code     int
	Message  string
	Required []string
	Missing  []string
	cause    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// BadRequest reports a client input problem.
func BadRequest(message string) *Error {
	return &Error{Code: http.StatusBadRequest, Message: message}
}

// Internal reports a failure while parsing or scoring.
func Internal(prefix string, cause error) *Error {
	msg := prefix
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", prefix, cause)
	}
	return &Error{Code: http.StatusInternalServerError, Message: msg, cause: cause}
}

// MissingFieldsError reports required features absent from the input.
func MissingFieldsError(required, missing []string) *Error {
	return &Error{
		Code:     http.StatusBadRequest,
		Message:  fmt.Sprintf("missing required columns: %v", missing),
		Required: required,
		Missing:  missing,
	}
}

// ErrModelNotLoaded is returned when the scorer failed to load at startup.
var ErrModelNotLoaded = &Error{Code: http.StatusInternalServerError, Message: "model not loaded"}

// Wrap converts any error into an *Error, defaulting to 500.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: http.StatusInternalServerError, Message: err.Error(), cause: err}
}
