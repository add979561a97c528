package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound covers missing resources and resources the caller does not own.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned for invalid input before any side effect happens.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when the resource is in a state that forbids the operation.
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, message string, err error) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

func Validation(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, "validation_error", fmt.Sprintf(format, args...), ErrValidation)
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, "not_found", what+" not found", ErrNotFound)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, "conflict", fmt.Sprintf(format, args...), ErrConflict)
}

// StatusOf maps an error to the HTTP status handlers should answer with.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
