package tracking

import "errors"

var (
	// ErrRunNotFound indicates no record exists for the run ID.
	ErrRunNotFound = errors.New("run record not found")
	// ErrTerminalState indicates the record is already in a sink state.
	ErrTerminalState = errors.New("record is in a terminal state")
	// ErrNotTerminalStatus indicates a completion with a non-terminal status.
	ErrNotTerminalStatus = errors.New("completion status must be terminal")
	// ErrInvalidStatus indicates an unrecognized status value.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrCounterRegression indicates an update tried to shrink a realized
	// counter.
	ErrCounterRegression = errors.New("realized counters must not decrease")
)
