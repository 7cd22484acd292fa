package runid

import "errors"

var (
	// ErrEmptyRunID indicates a missing run ID argument.
	ErrEmptyRunID = errors.New("run ID must not be empty")
	// ErrEmptyClientID indicates a missing client ID argument.
	ErrEmptyClientID = errors.New("client ID must not be empty")
)
