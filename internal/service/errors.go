package service

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map them to HTTP status codes; anything else is an
// unexpected failure.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Error is a caller-facing failure of a known kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ValidationError(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

func NotFoundError(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

func ConflictError(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}
