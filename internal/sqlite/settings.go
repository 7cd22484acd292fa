package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/outreachly/costgate/internal/domain/budget"
	"github.com/outreachly/costgate/internal/repository"
)

// SettingsRepository implements budget.SettingsRepository for SQLite
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSettings returns the tenant's override row, or repository.ErrNotFound
// when the tenant has none. NULL columns come back as nil pointers.
func (r *SettingsRepository) GetSettings(ctx context.Context, clientID string) (*budget.Overrides, error) {
	query := `
		SELECT daily_token_limit, monthly_token_limit,
		       daily_cost_limit, monthly_cost_limit,
		       max_batch_size, max_prompt_tokens
		FROM client_settings
		WHERE client_id = ?
	`

	var (
		dailyTokens   sql.NullInt64
		monthlyTokens sql.NullInt64
		dailyCost     sql.NullFloat64
		monthlyCost   sql.NullFloat64
		maxBatch      sql.NullInt64
		maxPrompt     sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, clientID).Scan(
		&dailyTokens,
		&monthlyTokens,
		&dailyCost,
		&monthlyCost,
		&maxBatch,
		&maxPrompt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	o := &budget.Overrides{}
	if dailyTokens.Valid {
		o.DailyTokenLimit = &dailyTokens.Int64
	}
	if monthlyTokens.Valid {
		o.MonthlyTokenLimit = &monthlyTokens.Int64
	}
	if dailyCost.Valid {
		o.DailyCostLimit = &dailyCost.Float64
	}
	if monthlyCost.Valid {
		o.MonthlyCostLimit = &monthlyCost.Float64
	}
	if maxBatch.Valid {
		v := int(maxBatch.Int64)
		o.MaxBatchSize = &v
	}
	if maxPrompt.Valid {
		o.MaxPromptTokens = &maxPrompt.Int64
	}
	return o, nil
}

// UpsertSettings writes a tenant's override row, replacing any existing one.
func (r *SettingsRepository) UpsertSettings(ctx context.Context, clientID string, o *budget.Overrides) error {
	query := `
		INSERT INTO client_settings (
			client_id, daily_token_limit, monthly_token_limit,
			daily_cost_limit, monthly_cost_limit,
			max_batch_size, max_prompt_tokens
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			daily_token_limit = excluded.daily_token_limit,
			monthly_token_limit = excluded.monthly_token_limit,
			daily_cost_limit = excluded.daily_cost_limit,
			monthly_cost_limit = excluded.monthly_cost_limit,
			max_batch_size = excluded.max_batch_size,
			max_prompt_tokens = excluded.max_prompt_tokens,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query,
		clientID,
		o.DailyTokenLimit,
		o.MonthlyTokenLimit,
		o.DailyCostLimit,
		o.MonthlyCostLimit,
		o.MaxBatchSize,
		o.MaxPromptTokens,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	return nil
}
