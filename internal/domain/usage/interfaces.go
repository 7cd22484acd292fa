package usage

import "context"

// EntryRepository persists ledger rows and computes window aggregates.
type EntryRepository interface {
	Append(ctx context.Context, entry *Entry) error
	// Totals sums tokens and cost for the given day and month windows.
	// monthPrefix is YYYY-MM; the month window covers every dateKey starting
	// with it, which includes the day window.
	Totals(ctx context.Context, clientID, dateKey, monthPrefix string) (day Totals, month Totals, err error)
	// ListByDate returns the raw rows for one tenant-day, oldest first.
	// Reconciliation and audit tooling reads these.
	ListByDate(ctx context.Context, clientID, dateKey string) ([]Entry, error)
}

// SnapshotCache stores materialized snapshots with a TTL. Implementations
// must be safe for concurrent use; writes are last-writer-wins.
type SnapshotCache interface {
	Get(key CacheKey) (Snapshot, bool)
	Put(key CacheKey, snap Snapshot)
	// InvalidateClient drops every cached snapshot for a tenant.
	InvalidateClient(clientID string)
}

// CacheKey identifies one tenant's snapshot for a specific day and month.
type CacheKey struct {
	ClientID string
	Day      string
	Month    string
}
