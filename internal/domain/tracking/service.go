// Package tracking maintains the system-of-record for pipeline executions:
// one job-tracking record per shared run, plus one client-run record per
// tenant slice of it, both keyed by run IDs from the runid package. Creation
// is idempotent; terminal states are sinks.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/outreachly/costgate/internal/clock"
	"github.com/outreachly/costgate/internal/repository"
	"github.com/outreachly/costgate/internal/runid"
)

// Tracker manages job and client-run records.
type Tracker struct {
	jobs   JobRepository
	runs   ClientRunRepository
	clk    clock.Clock
	logger *slog.Logger
}

// NewTracker creates a run/job tracker.
func NewTracker(jobs JobRepository, runs ClientRunRepository, clk clock.Clock, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{jobs: jobs, runs: runs, clk: clk, logger: logger}
}

// CreateJobRequest describes a new job-tracking record.
type CreateJobRequest struct {
	RunID   string
	JobType string
	// Initial carries optional extra fields, in the same alias vocabulary
	// UpdateJob accepts.
	Initial map[string]any
}

// CreateResult reports the record backing a create call.
type CreateResult struct {
	ID            string `json:"id"`
	RunID         string `json:"run_id"`
	AlreadyExists bool   `json:"already_exists"`
}

// CreateJob creates a job record with status Running, or returns the
// existing record's ID when the run is already tracked. Duplicate creation
// is not an error; the storage unique constraint resolves races.
func (t *Tracker) CreateJob(ctx context.Context, req CreateJobRequest) (*CreateResult, error) {
	if err := runid.Validate(req.RunID); err != nil {
		return nil, err
	}

	existing, err := t.jobs.FindByRunID(ctx, req.RunID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking job %s: %w", req.RunID, err)
	}
	if existing != nil {
		return &CreateResult{ID: existing.ID, RunID: existing.RunID, AlreadyExists: true}, nil
	}

	rec := &JobRecord{
		ID:        uuid.NewString(),
		RunID:     req.RunID,
		JobType:   req.JobType,
		Status:    StatusRunning,
		StartTime: t.clk.Now(),
	}
	if err := t.jobs.Insert(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost the race; the winner's record is the one that counts.
			winner, findErr := t.jobs.FindByRunID(ctx, req.RunID)
			if findErr != nil {
				return nil, fmt.Errorf("loading job %s after duplicate insert: %w", req.RunID, findErr)
			}
			return &CreateResult{ID: winner.ID, RunID: winner.RunID, AlreadyExists: true}, nil
		}
		return nil, fmt.Errorf("creating job %s: %w", req.RunID, err)
	}

	if fields := translateFields(req.Initial); len(fields) > 0 {
		if err := t.jobs.Update(ctx, req.RunID, fields); err != nil {
			return nil, fmt.Errorf("applying initial fields to job %s: %w", req.RunID, err)
		}
	}

	t.logger.Info("job created", "run_id", req.RunID, "operation", "create_job", "job_type", req.JobType)
	return &CreateResult{ID: rec.ID, RunID: rec.RunID}, nil
}

// UpdateJob applies aliased updates to a running job. Updates against a
// terminal record are rejected.
func (t *Tracker) UpdateJob(ctx context.Context, runID string, updates map[string]any) error {
	if err := runid.Validate(runID); err != nil {
		return err
	}

	rec, err := t.jobs.FindByRunID(ctx, runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("job %s: %w", runID, ErrRunNotFound)
		}
		return fmt.Errorf("loading job %s: %w", runID, err)
	}
	if rec.Status.Terminal() {
		return fmt.Errorf("job %s is %s: %w", runID, rec.Status, ErrTerminalState)
	}

	fields, err := t.prepareUpdate(updates)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	if err := t.jobs.Update(ctx, runID, fields); err != nil {
		return fmt.Errorf("updating job %s: %w", runID, err)
	}
	return nil
}

// CompleteJob seals a job with a terminal status and an end time. Calling it
// again with the same terminal status is a no-op.
func (t *Tracker) CompleteJob(ctx context.Context, runID string, status Status, updates map[string]any) error {
	if err := runid.Validate(runID); err != nil {
		return err
	}
	if status == "" {
		status = StatusCompleted
	}
	if !status.Terminal() {
		return fmt.Errorf("%w: %s", ErrNotTerminalStatus, status)
	}

	rec, err := t.jobs.FindByRunID(ctx, runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("job %s: %w", runID, ErrRunNotFound)
		}
		return fmt.Errorf("loading job %s: %w", runID, err)
	}
	if rec.Status.Terminal() {
		if rec.Status == status {
			return nil
		}
		return fmt.Errorf("job %s is already %s: %w", runID, rec.Status, ErrTerminalState)
	}

	fields, err := t.prepareUpdate(updates)
	if err != nil {
		return err
	}
	if fields == nil {
		fields = make(map[string]any, 2)
	}
	fields["status"] = string(status)
	fields["end_time"] = t.clk.Now()

	if err := t.jobs.Update(ctx, runID, fields); err != nil {
		return fmt.Errorf("completing job %s: %w", runID, err)
	}
	t.logger.Info("job completed", "run_id", runID, "operation", "complete_job", "status", string(status))
	return nil
}

// CreateClientRunRequest describes a new client-run record. RunID may be the
// base run ID or already suffixed; the stored key is always the suffixed
// form.
type CreateClientRunRequest struct {
	RunID    string
	ClientID string
	Initial  map[string]any
}

// CreateClientRun creates a client-run record, idempotently, keyed by the
// client-suffixed run ID.
func (t *Tracker) CreateClientRun(ctx context.Context, req CreateClientRunRequest) (*CreateResult, error) {
	suffixed, base, err := t.clientRunKey(req.RunID, req.ClientID)
	if err != nil {
		return nil, err
	}

	existing, err := t.runs.FindByRunID(ctx, suffixed)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking client run %s: %w", suffixed, err)
	}
	if existing != nil {
		return &CreateResult{ID: existing.ID, RunID: existing.RunID, AlreadyExists: true}, nil
	}

	rec := &ClientRunRecord{
		ID:        uuid.NewString(),
		RunID:     suffixed,
		BaseRunID: base,
		ClientID:  req.ClientID,
		Status:    StatusRunning,
		StartTime: t.clk.Now(),
	}
	if err := t.runs.Insert(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			winner, findErr := t.runs.FindByRunID(ctx, suffixed)
			if findErr != nil {
				return nil, fmt.Errorf("loading client run %s after duplicate insert: %w", suffixed, findErr)
			}
			return &CreateResult{ID: winner.ID, RunID: winner.RunID, AlreadyExists: true}, nil
		}
		return nil, fmt.Errorf("creating client run %s: %w", suffixed, err)
	}

	if fields := translateFields(req.Initial); len(fields) > 0 {
		if err := t.runs.Update(ctx, suffixed, fields); err != nil {
			return nil, fmt.Errorf("applying initial fields to client run %s: %w", suffixed, err)
		}
	}

	t.logger.Info("client run created",
		"run_id", suffixed, "client_id", req.ClientID, "operation", "create_client_run")
	return &CreateResult{ID: rec.ID, RunID: rec.RunID}, nil
}

// UpdateClientRunRequest describes an update to a client-run record.
type UpdateClientRunRequest struct {
	RunID    string
	ClientID string
	Updates  map[string]any
	// CreateIfMissing falls through to CreateClientRun when no record
	// exists yet.
	CreateIfMissing bool
}

// UpdateClientRun applies aliased updates to a running client-run record.
// Realized counters may only grow; a shrinking counter is a caller bug and
// is rejected.
func (t *Tracker) UpdateClientRun(ctx context.Context, req UpdateClientRunRequest) error {
	suffixed, _, err := t.clientRunKey(req.RunID, req.ClientID)
	if err != nil {
		return err
	}

	rec, err := t.runs.FindByRunID(ctx, suffixed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if req.CreateIfMissing {
				if _, createErr := t.CreateClientRun(ctx, CreateClientRunRequest{
					RunID:    req.RunID,
					ClientID: req.ClientID,
					Initial:  req.Updates,
				}); createErr != nil {
					return createErr
				}
				return nil
			}
			return fmt.Errorf("client run %s: %w", suffixed, ErrRunNotFound)
		}
		return fmt.Errorf("loading client run %s: %w", suffixed, err)
	}
	if rec.Status.Terminal() {
		return fmt.Errorf("client run %s is %s: %w", suffixed, rec.Status, ErrTerminalState)
	}

	fields, err := t.prepareUpdate(req.Updates)
	if err != nil {
		return err
	}
	if err := checkCounters(rec, fields); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	if err := t.runs.Update(ctx, suffixed, fields); err != nil {
		return fmt.Errorf("updating client run %s: %w", suffixed, err)
	}
	return nil
}

// CompleteClientRun seals a client-run record. Idempotent for repeated calls
// with the same terminal status.
func (t *Tracker) CompleteClientRun(ctx context.Context, req UpdateClientRunRequest, status Status) error {
	suffixed, _, err := t.clientRunKey(req.RunID, req.ClientID)
	if err != nil {
		return err
	}
	if status == "" {
		status = StatusCompleted
	}
	if !status.Terminal() {
		return fmt.Errorf("%w: %s", ErrNotTerminalStatus, status)
	}

	rec, err := t.runs.FindByRunID(ctx, suffixed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("client run %s: %w", suffixed, ErrRunNotFound)
		}
		return fmt.Errorf("loading client run %s: %w", suffixed, err)
	}
	if rec.Status.Terminal() {
		if rec.Status == status {
			return nil
		}
		return fmt.Errorf("client run %s is already %s: %w", suffixed, rec.Status, ErrTerminalState)
	}

	fields, err := t.prepareUpdate(req.Updates)
	if err != nil {
		return err
	}
	if err := checkCounters(rec, fields); err != nil {
		return err
	}
	if fields == nil {
		fields = make(map[string]any, 2)
	}
	fields["status"] = string(status)
	fields["end_time"] = t.clk.Now()

	if err := t.runs.Update(ctx, suffixed, fields); err != nil {
		return fmt.Errorf("completing client run %s: %w", suffixed, err)
	}
	t.logger.Info("client run completed",
		"run_id", suffixed, "client_id", req.ClientID, "operation", "complete_client_run", "status", string(status))
	return nil
}

// GetJob returns a job record by run ID.
func (t *Tracker) GetJob(ctx context.Context, runID string) (*JobRecord, error) {
	if err := runid.Validate(runID); err != nil {
		return nil, err
	}
	rec, err := t.jobs.FindByRunID(ctx, runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("job %s: %w", runID, ErrRunNotFound)
		}
		return nil, fmt.Errorf("loading job %s: %w", runID, err)
	}
	return rec, nil
}

// ListClientRuns returns a tenant's most recent client-run records.
func (t *Tracker) ListClientRuns(ctx context.Context, clientID string, limit int) ([]ClientRunRecord, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, runid.ErrEmptyClientID
	}
	if limit <= 0 {
		limit = 20
	}
	runs, err := t.runs.ListByClient(ctx, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing client runs for %s: %w", clientID, err)
	}
	return runs, nil
}

// prepareUpdate translates aliases and validates a status update. A terminal
// status set through a plain update also seals end_time so the terminal
// invariant holds no matter which door the status came through.
func (t *Tracker) prepareUpdate(updates map[string]any) (map[string]any, error) {
	fields := translateFields(updates)
	raw, ok := fields["status"]
	if !ok {
		return fields, nil
	}
	str, isStr := raw.(string)
	if !isStr {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, raw)
	}
	status, err := ParseStatus(str)
	if err != nil {
		return nil, err
	}
	fields["status"] = string(status)
	if status.Terminal() {
		if _, hasEnd := fields["end_time"]; !hasEnd {
			fields["end_time"] = t.clk.Now()
		}
	}
	return fields, nil
}

// checkCounters rejects updates that would shrink a realized counter.
func checkCounters(rec *ClientRunRecord, fields map[string]any) error {
	for col, current := range counterColumns {
		raw, ok := fields[col]
		if !ok {
			continue
		}
		value, ok := asInt64(raw)
		if !ok {
			return fmt.Errorf("%w: %s must be numeric", repository.ErrInvalidInput, col)
		}
		if value < current(rec) {
			return fmt.Errorf("%s: %d -> %d: %w", col, current(rec), value, ErrCounterRegression)
		}
		fields[col] = value
	}
	return nil
}

// asInt64 coerces the numeric types JSON decoding and Go callers produce.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// clientRunKey derives the suffixed storage key and the base run ID.
func (t *Tracker) clientRunKey(runID, clientID string) (suffixed, base string, err error) {
	suffixed, err = runid.AddClientSuffix(runID, clientID)
	if err != nil {
		return "", "", err
	}
	base = strings.TrimSuffix(suffixed, "-"+clientID)
	return suffixed, base, nil
}
