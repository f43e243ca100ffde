// Package apperr holds the error kinds shared by services and handlers.
// Services wrap one of the kinds with a caller-facing message; handlers map
// the kind to an HTTP status.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Error carries a kind plus the message shown to the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Unauthorized(msg string) error { return New(ErrUnauthorized, msg) }
func Forbidden(msg string) error    { return New(ErrForbidden, msg) }
func Validation(msg string) error   { return New(ErrValidation, msg) }
func NotFound(msg string) error     { return New(ErrNotFound, msg) }
func Conflict(msg string) error     { return New(ErrConflict, msg) }

// Status maps an error to the HTTP status code handlers should return.
// Anything that is not one of the known kinds is a 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing text for err, or "" for internal errors.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	if Status(err) != http.StatusInternalServerError {
		return err.Error()
	}
	return ""
}
