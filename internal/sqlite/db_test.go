package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"client_settings",
		"usage_tracking",
		"job_tracking",
		"client_run_results",
		"api_keys",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

// TestRunIDUniqueness verifies the constraints idempotent creation relies on
func TestRunIDUniqueness(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO job_tracking (id, run_id, status, start_time) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		"j1", "260825-143000", "Running")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO job_tracking (id, run_id, status, start_time) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		"j2", "260825-143000", "Running")
	require.Error(t, err, "duplicate run_id should violate the unique constraint")
	require.True(t, isUniqueViolation(err))

	_, err = db.ExecContext(ctx,
		`INSERT INTO client_run_results (id, run_id, base_run_id, client_id, status, start_time)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		"r1", "260825-143000-acme", "260825-143000", "acme", "Running")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO client_run_results (id, run_id, base_run_id, client_id, status, start_time)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		"r2", "260825-143000-acme", "260825-143000", "acme", "Running")
	require.Error(t, err)
}

// TestStatusConstraint verifies the status CHECK constraints
func TestStatusConstraint(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO job_tracking (id, run_id, status, start_time) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		"j1", "260825-143000", "Paused")
	require.Error(t, err, "unknown status should violate the check constraint")
}
