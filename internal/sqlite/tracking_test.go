package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/outreachly/costgate/internal/domain/tracking"
	"github.com/outreachly/costgate/internal/repository"
	"github.com/stretchr/testify/require"
)

var trackingStart = time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)

func TestJobRepository_InsertAndFind(t *testing.T) {
	db := NewTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	err := repo.Insert(ctx, &tracking.JobRecord{
		ID:        "j1",
		RunID:     "260825-143000",
		JobType:   "lead_scoring",
		Status:    tracking.StatusRunning,
		StartTime: trackingStart,
	})
	require.NoError(t, err)

	rec, err := repo.FindByRunID(ctx, "260825-143000")
	require.NoError(t, err)
	require.Equal(t, "j1", rec.ID)
	require.Equal(t, "lead_scoring", rec.JobType)
	require.Equal(t, tracking.StatusRunning, rec.Status)
	require.Nil(t, rec.EndTime)
	require.Nil(t, rec.Progress)
	require.Nil(t, rec.ErrorMessage)

	_, err = repo.FindByRunID(ctx, "260825-999999")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestJobRepository_DuplicateInsert(t *testing.T) {
	db := NewTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	rec := &tracking.JobRecord{
		ID:        "j1",
		RunID:     "260825-143000",
		Status:    tracking.StatusRunning,
		StartTime: trackingStart,
	}
	require.NoError(t, repo.Insert(ctx, rec))

	dup := &tracking.JobRecord{
		ID:        "j2",
		RunID:     "260825-143000",
		Status:    tracking.StatusRunning,
		StartTime: trackingStart,
	}
	require.ErrorIs(t, repo.Insert(ctx, dup), repository.ErrDuplicate)

	// The winner's row is untouched
	found, err := repo.FindByRunID(ctx, "260825-143000")
	require.NoError(t, err)
	require.Equal(t, "j1", found.ID)
}

func TestJobRepository_Update(t *testing.T) {
	db := NewTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &tracking.JobRecord{
		ID:        "j1",
		RunID:     "260825-143000",
		Status:    tracking.StatusRunning,
		StartTime: trackingStart,
	}))

	end := trackingStart.Add(10 * time.Minute)
	err := repo.Update(ctx, "260825-143000", map[string]any{
		"status":          "Completed",
		"end_time":        end,
		"progress":        int64(100),
		"items_processed": int64(42),
		"error_message":   "partial: 2 leads skipped",
	})
	require.NoError(t, err)

	rec, err := repo.FindByRunID(ctx, "260825-143000")
	require.NoError(t, err)
	require.Equal(t, tracking.StatusCompleted, rec.Status)
	require.NotNil(t, rec.EndTime)
	require.True(t, rec.EndTime.Equal(end))
	require.EqualValues(t, 100, *rec.Progress)
	require.EqualValues(t, 42, *rec.ItemsProcessed)
	require.Equal(t, "partial: 2 leads skipped", *rec.ErrorMessage)
}

func TestJobRepository_UpdateRejectsUnknownColumn(t *testing.T) {
	db := NewTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &tracking.JobRecord{
		ID:        "j1",
		RunID:     "260825-143000",
		Status:    tracking.StatusRunning,
		StartTime: trackingStart,
	}))

	err := repo.Update(ctx, "260825-143000", map[string]any{"run_id": "owned"})
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestJobRepository_UpdateMissingRow(t *testing.T) {
	db := NewTestDB(t)
	repo := NewJobRepository(db)

	err := repo.Update(context.Background(), "260825-143000", map[string]any{"progress": int64(1)})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func newClientRun(id, runID, baseRunID, clientID string, start time.Time) *tracking.ClientRunRecord {
	return &tracking.ClientRunRecord{
		ID:        id,
		RunID:     runID,
		BaseRunID: baseRunID,
		ClientID:  clientID,
		Status:    tracking.StatusRunning,
		StartTime: start,
	}
}

func TestClientRunRepository_InsertAndFind(t *testing.T) {
	db := NewTestDB(t)
	repo := NewClientRunRepository(db)
	ctx := context.Background()

	err := repo.Insert(ctx, newClientRun("r1", "260825-143000-Guy-Wilson", "260825-143000", "Guy-Wilson", trackingStart))
	require.NoError(t, err)

	rec, err := repo.FindByRunID(ctx, "260825-143000-Guy-Wilson")
	require.NoError(t, err)
	require.Equal(t, "260825-143000", rec.BaseRunID)
	require.Equal(t, "Guy-Wilson", rec.ClientID)
	require.Zero(t, rec.ProfilesExamined)
	require.Zero(t, rec.TotalTokens)

	dup := newClientRun("r2", "260825-143000-Guy-Wilson", "260825-143000", "Guy-Wilson", trackingStart)
	require.ErrorIs(t, repo.Insert(ctx, dup), repository.ErrDuplicate)
}

func TestClientRunRepository_UpdateCounters(t *testing.T) {
	db := NewTestDB(t)
	repo := NewClientRunRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newClientRun("r1", "260825-143000-acme", "260825-143000", "acme", trackingStart)))

	err := repo.Update(ctx, "260825-143000-acme", map[string]any{
		"profiles_examined": int64(55),
		"prompt_tokens":     int64(12_400),
		"completion_tokens": int64(4_800),
		"total_tokens":      int64(17_200),
	})
	require.NoError(t, err)

	rec, err := repo.FindByRunID(ctx, "260825-143000-acme")
	require.NoError(t, err)
	require.EqualValues(t, 55, rec.ProfilesExamined)
	require.EqualValues(t, 12_400, rec.PromptTokens)
	require.EqualValues(t, 4_800, rec.CompletionTokens)
	require.EqualValues(t, 17_200, rec.TotalTokens)
}

func TestClientRunRepository_ListByClient(t *testing.T) {
	db := NewTestDB(t)
	repo := NewClientRunRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newClientRun("r1", "260824-090000-acme", "260824-090000", "acme", trackingStart.Add(-24*time.Hour))))
	require.NoError(t, repo.Insert(ctx, newClientRun("r2", "260825-143000-acme", "260825-143000", "acme", trackingStart)))
	require.NoError(t, repo.Insert(ctx, newClientRun("r3", "260825-143000-globex", "260825-143000", "globex", trackingStart)))

	runs, err := repo.ListByClient(ctx, "acme", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first
	require.Equal(t, "r2", runs[0].ID)
	require.Equal(t, "r1", runs[1].ID)

	runs, err = repo.ListByClient(ctx, "acme", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "r2", runs[0].ID)
}
