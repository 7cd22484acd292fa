package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations runs the migrations directly (for testing)
// In production, migrations should be run via the migrate CLI or embed package
func (db *DB) RunMigrations() error {
	migration := `
-- Per-tenant budget overrides. Absent row or NULL column means the
-- built-in default applies.
CREATE TABLE client_settings (
    client_id TEXT PRIMARY KEY,
    daily_token_limit INTEGER,
    monthly_token_limit INTEGER,
    daily_cost_limit REAL,
    monthly_cost_limit REAL,
    max_batch_size INTEGER,
    max_prompt_tokens INTEGER,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Append-only usage ledger, one row per scoring call
CREATE TABLE usage_tracking (
    id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    usage_date TEXT NOT NULL,
    input_tokens INTEGER NOT NULL DEFAULT 0,
    output_tokens INTEGER NOT NULL DEFAULT 0,
    cost REAL NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_usage_client_date ON usage_tracking(client_id, usage_date);

-- One job record per shared pipeline run. The unique run_id constraint
-- is what makes concurrent creation idempotent.
CREATE TABLE job_tracking (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL UNIQUE,
    job_type TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL CHECK(status IN ('Running', 'Completed', 'Failed', 'Cancelled')),
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP,
    progress INTEGER,
    items_processed INTEGER,
    error_message TEXT,
    system_notes TEXT
);
CREATE INDEX idx_job_status ON job_tracking(status);

-- One record per tenant slice of a shared run, keyed by the
-- client-suffixed run ID
CREATE TABLE client_run_results (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL UNIQUE,
    base_run_id TEXT NOT NULL,
    client_id TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('Running', 'Completed', 'Failed', 'Cancelled')),
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP,
    profiles_examined INTEGER NOT NULL DEFAULT 0,
    posts_examined INTEGER NOT NULL DEFAULT 0,
    lead_scoring_errors INTEGER NOT NULL DEFAULT 0,
    lead_scoring_tokens INTEGER NOT NULL DEFAULT 0,
    prompt_tokens INTEGER NOT NULL DEFAULT 0,
    completion_tokens INTEGER NOT NULL DEFAULT 0,
    total_tokens INTEGER NOT NULL DEFAULT 0,
    system_notes TEXT
);
CREATE INDEX idx_client_runs ON client_run_results(client_id, start_time);
CREATE INDEX idx_base_run ON client_run_results(base_run_id);

-- API keys for authentication
CREATE TABLE api_keys (
    key_hash TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_used TIMESTAMP,
    description TEXT
);
CREATE INDEX idx_client_keys ON api_keys(client_id);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
