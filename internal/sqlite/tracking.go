package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/outreachly/costgate/internal/domain/tracking"
	"github.com/outreachly/costgate/internal/repository"
)

// jobColumns are the columns a job update may touch.
var jobColumns = map[string]bool{
	"status":          true,
	"end_time":        true,
	"progress":        true,
	"items_processed": true,
	"error_message":   true,
	"system_notes":    true,
}

// clientRunColumns are the columns a client-run update may touch.
var clientRunColumns = map[string]bool{
	"status":              true,
	"end_time":            true,
	"system_notes":        true,
	"profiles_examined":   true,
	"posts_examined":      true,
	"lead_scoring_errors": true,
	"lead_scoring_tokens": true,
	"prompt_tokens":       true,
	"completion_tokens":   true,
	"total_tokens":        true,
}

// buildSet assembles a deterministic SET clause from whitelisted fields.
// An unknown column is a caller bug, not a storage error.
func buildSet(fields map[string]any, allowed map[string]bool) (string, []any, error) {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !allowed[col] {
			return "", nil, fmt.Errorf("%w: unknown column %q", repository.ErrInvalidInput, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	assignments := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		assignments[i] = col + " = ?"
		args[i] = fields[col]
	}
	return strings.Join(assignments, ", "), args, nil
}

// JobRepository implements tracking.JobRepository for SQLite
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// Insert creates a job row. A second insert for the same run ID returns
// repository.ErrDuplicate; the unique constraint arbitrates races.
func (r *JobRepository) Insert(ctx context.Context, rec *tracking.JobRecord) error {
	query := `
		INSERT INTO job_tracking (id, run_id, job_type, status, start_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.RunID,
		rec.JobType,
		string(rec.Status),
		rec.StartTime,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to insert job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check job insert: %w", err)
	}
	if affected == 0 {
		return repository.ErrDuplicate
	}
	return nil
}

// FindByRunID retrieves a job row by run ID
func (r *JobRepository) FindByRunID(ctx context.Context, runID string) (*tracking.JobRecord, error) {
	query := `
		SELECT id, run_id, job_type, status, start_time, end_time,
		       progress, items_processed, error_message, system_notes
		FROM job_tracking
		WHERE run_id = ?
	`

	var (
		rec            tracking.JobRecord
		status         string
		endTime        sql.NullTime
		progress       sql.NullInt64
		itemsProcessed sql.NullInt64
		errorMessage   sql.NullString
		systemNotes    sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, runID).Scan(
		&rec.ID,
		&rec.RunID,
		&rec.JobType,
		&status,
		&rec.StartTime,
		&endTime,
		&progress,
		&itemsProcessed,
		&errorMessage,
		&systemNotes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	rec.Status = tracking.Status(status)
	if endTime.Valid {
		rec.EndTime = &endTime.Time
	}
	if progress.Valid {
		rec.Progress = &progress.Int64
	}
	if itemsProcessed.Valid {
		rec.ItemsProcessed = &itemsProcessed.Int64
	}
	if errorMessage.Valid {
		rec.ErrorMessage = &errorMessage.String
	}
	if systemNotes.Valid {
		rec.SystemNotes = &systemNotes.String
	}
	return &rec, nil
}

// Update applies whitelisted field updates to a job row
func (r *JobRepository) Update(ctx context.Context, runID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	set, args, err := buildSet(fields, jobColumns)
	if err != nil {
		return err
	}
	args = append(args, runID)

	result, err := r.db.ExecContext(ctx, "UPDATE job_tracking SET "+set+" WHERE run_id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check job update: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ClientRunRepository implements tracking.ClientRunRepository for SQLite
type ClientRunRepository struct {
	db *DB
}

// NewClientRunRepository creates a new ClientRunRepository
func NewClientRunRepository(db *DB) *ClientRunRepository {
	return &ClientRunRepository{db: db}
}

// Insert creates a client-run row, with the same duplicate semantics as
// job inserts.
func (r *ClientRunRepository) Insert(ctx context.Context, rec *tracking.ClientRunRecord) error {
	query := `
		INSERT INTO client_run_results (id, run_id, base_run_id, client_id, status, start_time)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.RunID,
		rec.BaseRunID,
		rec.ClientID,
		string(rec.Status),
		rec.StartTime,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to insert client run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check client run insert: %w", err)
	}
	if affected == 0 {
		return repository.ErrDuplicate
	}
	return nil
}

// FindByRunID retrieves a client-run row by its suffixed run ID
func (r *ClientRunRepository) FindByRunID(ctx context.Context, runID string) (*tracking.ClientRunRecord, error) {
	query := clientRunSelect + " WHERE run_id = ?"

	row := r.db.QueryRowContext(ctx, query, runID)
	rec, err := scanClientRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client run: %w", err)
	}
	return rec, nil
}

// Update applies whitelisted field updates to a client-run row
func (r *ClientRunRepository) Update(ctx context.Context, runID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	set, args, err := buildSet(fields, clientRunColumns)
	if err != nil {
		return err
	}
	args = append(args, runID)

	result, err := r.db.ExecContext(ctx, "UPDATE client_run_results SET "+set+" WHERE run_id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update client run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check client run update: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListByClient returns a tenant's client-run rows, newest first
func (r *ClientRunRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]tracking.ClientRunRecord, error) {
	query := clientRunSelect + " WHERE client_id = ? ORDER BY start_time DESC LIMIT ?"

	rows, err := r.db.QueryContext(ctx, query, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list client runs: %w", err)
	}
	defer rows.Close()

	var records []tracking.ClientRunRecord
	for rows.Next() {
		rec, err := scanClientRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client run: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate client runs: %w", err)
	}
	return records, nil
}

const clientRunSelect = `
	SELECT id, run_id, base_run_id, client_id, status, start_time, end_time,
	       profiles_examined, posts_examined, lead_scoring_errors,
	       lead_scoring_tokens, prompt_tokens, completion_tokens, total_tokens,
	       system_notes
	FROM client_run_results`

func scanClientRun(scan func(...any) error) (*tracking.ClientRunRecord, error) {
	var (
		rec         tracking.ClientRunRecord
		status      string
		endTime     sql.NullTime
		systemNotes sql.NullString
	)
	err := scan(
		&rec.ID,
		&rec.RunID,
		&rec.BaseRunID,
		&rec.ClientID,
		&status,
		&rec.StartTime,
		&endTime,
		&rec.ProfilesExamined,
		&rec.PostsExamined,
		&rec.LeadScoringErrors,
		&rec.LeadScoringTokens,
		&rec.PromptTokens,
		&rec.CompletionTokens,
		&rec.TotalTokens,
		&systemNotes,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = tracking.Status(status)
	if endTime.Valid {
		rec.EndTime = &endTime.Time
	}
	if systemNotes.Valid {
		rec.SystemNotes = &systemNotes.String
	}
	return &rec, nil
}
