// Package errors defines the sentinel errors shared by the index, the search
// path and the HTTP services, plus an AppError wrapper that carries an HTTP
// status for handlers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrStorageCorrupt   = errors.New("persisted index is corrupt")
	ErrPersistenceWrite = errors.New("persisting index failed")
	ErrDocumentFetch    = errors.New("fetching document failed")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrSuperseded       = errors.New("search superseded by a newer query")
	ErrUnavailable      = errors.New("backend unavailable")
	ErrInternal         = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Invalid is shorthand for a 400 AppError wrapping ErrInvalidInput.
func Invalid(format string, args ...any) *AppError {
	return Newf(ErrInvalidInput, http.StatusBadRequest, format, args...)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrDocumentFetch):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Is, As and Join re-export the standard helpers so callers importing this
// package under its own name do not need a second errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func Join(errs ...error) error { return errors.Join(errs...) }
