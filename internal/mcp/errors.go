package mcp

import (
	"errors"
	"fmt"

	"github.com/outreachly/costgate/internal/domain/admission"
	"github.com/outreachly/costgate/internal/domain/tracking"
	"github.com/outreachly/costgate/internal/domain/usage"
	"github.com/outreachly/costgate/internal/repository"
	"github.com/outreachly/costgate/internal/runid"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unmapped errors pass
// through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, runid.ErrEmptyRunID):
		return &APIError{Code: "EMPTY_RUN_ID", Message: "run_id is required"}
	case errors.Is(err, runid.ErrEmptyClientID),
		errors.Is(err, usage.ErrEmptyClientID),
		errors.Is(err, admission.ErrEmptyClientID):
		return &APIError{Code: "EMPTY_CLIENT_ID", Message: "client_id is required"}
	case errors.Is(err, usage.ErrNegativeTokens):
		return &APIError{Code: "INVALID_INPUT", Message: "token counts must be non-negative"}
	case errors.Is(err, usage.ErrNegativeCost):
		return &APIError{Code: "INVALID_INPUT", Message: "cost must be non-negative"}
	case errors.Is(err, admission.ErrSnapshotUnavailable):
		return &APIError{Code: "SNAPSHOT_UNAVAILABLE", Message: err.Error(), RecoveryHint: "Retry once usage storage recovers"}
	case errors.Is(err, tracking.ErrRunNotFound):
		return &APIError{Code: "RUN_NOT_FOUND", Message: err.Error(), RecoveryHint: "Check the run ID or create the record first"}
	case errors.Is(err, tracking.ErrTerminalState):
		return &APIError{Code: "TERMINAL_STATE", Message: err.Error(), RecoveryHint: "Terminal records cannot be reopened"}
	case errors.Is(err, tracking.ErrNotTerminalStatus):
		return &APIError{Code: "INVALID_STATUS", Message: err.Error(), RecoveryHint: "Use Completed, Failed or Cancelled"}
	case errors.Is(err, tracking.ErrInvalidStatus):
		return &APIError{Code: "INVALID_STATUS", Message: err.Error()}
	case errors.Is(err, tracking.ErrCounterRegression):
		return &APIError{Code: "COUNTER_REGRESSION", Message: err.Error(), RecoveryHint: "Counters are cumulative and may only grow"}
	case errors.Is(err, repository.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return err
	}
}
