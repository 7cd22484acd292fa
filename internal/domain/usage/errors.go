package usage

import "errors"

var (
	// ErrEmptyClientID indicates a missing tenant identifier.
	ErrEmptyClientID = errors.New("client ID must not be empty")
	// ErrNegativeTokens indicates a negative token counter.
	ErrNegativeTokens = errors.New("token counts must not be negative")
	// ErrNegativeCost indicates a negative cost value.
	ErrNegativeCost = errors.New("cost must not be negative")
)
