package admission

import "errors"

var (
	// ErrEmptyClientID indicates a missing tenant identifier.
	ErrEmptyClientID = errors.New("client ID must not be empty")
	// ErrSnapshotUnavailable wraps a snapshot read failure when the
	// controller runs fail-closed.
	ErrSnapshotUnavailable = errors.New("usage snapshot unavailable")
)
