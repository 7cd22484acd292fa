// Package repository holds the sentinel errors shared by every storage
// implementation. Repository interfaces live next to the domain services
// that consume them; testify mocks for all of them are in mocks/.
package repository

import "errors"

var (
	// ErrNotFound is returned when a requested row doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails at the
	// storage boundary.
	ErrInvalidInput = errors.New("invalid input")
)
