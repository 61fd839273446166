package galleria

import "errors"

var (
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict is returned when a record already exists
	ErrConflict = errors.New("already exists")
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)
