package tracking

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a job or client-run record.
type Status string

const (
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
)

// Terminal reports whether the status is a sink state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// JobRecord tracks one shared pipeline execution, keyed by its base run ID.
type JobRecord struct {
	ID             string     `json:"id"`
	RunID          string     `json:"run_id"`
	JobType        string     `json:"job_type"`
	Status         Status     `json:"status"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Progress       *int64     `json:"progress,omitempty"`
	ItemsProcessed *int64     `json:"items_processed,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	SystemNotes    *string    `json:"system_notes,omitempty"`
}

// ClientRunRecord tracks one client's slice of a shared run, keyed by the
// client-suffixed run ID. The realized counters only ever grow.
type ClientRunRecord struct {
	ID                string     `json:"id"`
	RunID             string     `json:"run_id"` // base run ID + "-" + client ID
	BaseRunID         string     `json:"base_run_id"`
	ClientID          string     `json:"client_id"`
	Status            Status     `json:"status"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	ProfilesExamined  int64      `json:"profiles_examined"`
	PostsExamined     int64      `json:"posts_examined"`
	LeadScoringErrors int64      `json:"lead_scoring_errors"`
	LeadScoringTokens int64      `json:"lead_scoring_tokens"`
	PromptTokens      int64      `json:"prompt_tokens"`
	CompletionTokens  int64      `json:"completion_tokens"`
	TotalTokens       int64      `json:"total_tokens"`
	SystemNotes       *string    `json:"system_notes,omitempty"`
}

// counterColumns are the monotonic counters of a client-run record, by
// storage column name.
var counterColumns = map[string]func(*ClientRunRecord) int64{
	"profiles_examined":   func(r *ClientRunRecord) int64 { return r.ProfilesExamined },
	"posts_examined":      func(r *ClientRunRecord) int64 { return r.PostsExamined },
	"lead_scoring_errors": func(r *ClientRunRecord) int64 { return r.LeadScoringErrors },
	"lead_scoring_tokens": func(r *ClientRunRecord) int64 { return r.LeadScoringTokens },
	"prompt_tokens":       func(r *ClientRunRecord) int64 { return r.PromptTokens },
	"completion_tokens":   func(r *ClientRunRecord) int64 { return r.CompletionTokens },
	"total_tokens":        func(r *ClientRunRecord) int64 { return r.TotalTokens },
}
