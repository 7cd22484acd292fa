package tracking

import "context"

// JobRepository persists job-tracking records. run_id carries a unique
// constraint; Insert returns repository.ErrDuplicate when it trips, which is
// what makes concurrent creates safe without in-process locks.
type JobRepository interface {
	Insert(ctx context.Context, rec *JobRecord) error
	FindByRunID(ctx context.Context, runID string) (*JobRecord, error)
	Update(ctx context.Context, runID string, fields map[string]any) error
}

// ClientRunRepository persists client-run records, keyed by the
// client-suffixed run ID. Same uniqueness contract as JobRepository.
type ClientRunRepository interface {
	Insert(ctx context.Context, rec *ClientRunRecord) error
	FindByRunID(ctx context.Context, runID string) (*ClientRunRecord, error)
	Update(ctx context.Context, runID string, fields map[string]any) error
	ListByClient(ctx context.Context, clientID string, limit int) ([]ClientRunRecord, error)
}
