package sqlite

import (
	"context"
	"fmt"

	"github.com/outreachly/costgate/internal/domain/usage"
)

// UsageRepository implements usage.EntryRepository for SQLite
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new UsageRepository
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Append inserts one ledger row. The ledger is append-only; rows are never
// updated or deleted.
func (r *UsageRepository) Append(ctx context.Context, entry *usage.Entry) error {
	query := `
		INSERT INTO usage_tracking (
			id, client_id, usage_date, input_tokens, output_tokens, cost, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ClientID,
		entry.DateKey,
		entry.InputTokens,
		entry.OutputTokens,
		entry.Cost,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append usage entry: %w", err)
	}
	return nil
}

// Totals aggregates the tenant's ledger for one day and one month in a
// single scan over the month's rows.
func (r *UsageRepository) Totals(ctx context.Context, clientID, dateKey, monthPrefix string) (usage.Totals, usage.Totals, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN usage_date = ? THEN input_tokens + output_tokens ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN usage_date = ? THEN cost ELSE 0 END), 0),
			COALESCE(SUM(input_tokens + output_tokens), 0),
			COALESCE(SUM(cost), 0)
		FROM usage_tracking
		WHERE client_id = ? AND usage_date LIKE ? || '%'
	`

	var day, month usage.Totals
	err := r.db.QueryRowContext(ctx, query, dateKey, dateKey, clientID, monthPrefix).Scan(
		&day.Tokens,
		&day.Cost,
		&month.Tokens,
		&month.Cost,
	)
	if err != nil {
		return usage.Totals{}, usage.Totals{}, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	return day, month, nil
}

// ListByDate returns a tenant's ledger rows for one day, oldest first.
func (r *UsageRepository) ListByDate(ctx context.Context, clientID, dateKey string) ([]usage.Entry, error) {
	query := `
		SELECT id, client_id, usage_date, input_tokens, output_tokens, cost, created_at
		FROM usage_tracking
		WHERE client_id = ? AND usage_date = ?
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, clientID, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage entries: %w", err)
	}
	defer rows.Close()

	var entries []usage.Entry
	for rows.Next() {
		var e usage.Entry
		if err := rows.Scan(
			&e.ID,
			&e.ClientID,
			&e.DateKey,
			&e.InputTokens,
			&e.OutputTokens,
			&e.Cost,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage entries: %w", err)
	}
	return entries, nil
}
