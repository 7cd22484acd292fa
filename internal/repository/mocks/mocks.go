// Package mocks provides testify mocks for the repository interfaces
// declared by the domain packages.
package mocks

import (
	"context"

	"github.com/outreachly/costgate/internal/domain/budget"
	"github.com/outreachly/costgate/internal/domain/tracking"
	"github.com/outreachly/costgate/internal/domain/usage"
	"github.com/stretchr/testify/mock"
)

// SettingsRepository is a mock for budget.SettingsRepository.
type SettingsRepository struct {
	mock.Mock
}

func (m *SettingsRepository) GetSettings(ctx context.Context, clientID string) (*budget.Overrides, error) {
	args := m.Called(ctx, clientID)
	if o, ok := args.Get(0).(*budget.Overrides); ok {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

// EntryRepository is a mock for usage.EntryRepository.
type EntryRepository struct {
	mock.Mock
}

func (m *EntryRepository) Append(ctx context.Context, entry *usage.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *EntryRepository) Totals(ctx context.Context, clientID, dateKey, monthPrefix string) (usage.Totals, usage.Totals, error) {
	args := m.Called(ctx, clientID, dateKey, monthPrefix)
	day, _ := args.Get(0).(usage.Totals)
	month, _ := args.Get(1).(usage.Totals)
	return day, month, args.Error(2)
}

func (m *EntryRepository) ListByDate(ctx context.Context, clientID, dateKey string) ([]usage.Entry, error) {
	args := m.Called(ctx, clientID, dateKey)
	if rows, ok := args.Get(0).([]usage.Entry); ok {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}

// JobRepository is a mock for tracking.JobRepository.
type JobRepository struct {
	mock.Mock
}

func (m *JobRepository) Insert(ctx context.Context, rec *tracking.JobRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *JobRepository) FindByRunID(ctx context.Context, runID string) (*tracking.JobRecord, error) {
	args := m.Called(ctx, runID)
	if rec, ok := args.Get(0).(*tracking.JobRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *JobRepository) Update(ctx context.Context, runID string, fields map[string]any) error {
	args := m.Called(ctx, runID, fields)
	return args.Error(0)
}

// ClientRunRepository is a mock for tracking.ClientRunRepository.
type ClientRunRepository struct {
	mock.Mock
}

func (m *ClientRunRepository) Insert(ctx context.Context, rec *tracking.ClientRunRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *ClientRunRepository) FindByRunID(ctx context.Context, runID string) (*tracking.ClientRunRecord, error) {
	args := m.Called(ctx, runID)
	if rec, ok := args.Get(0).(*tracking.ClientRunRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClientRunRepository) Update(ctx context.Context, runID string, fields map[string]any) error {
	args := m.Called(ctx, runID, fields)
	return args.Error(0)
}

func (m *ClientRunRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]tracking.ClientRunRecord, error) {
	args := m.Called(ctx, clientID, limit)
	if runs, ok := args.Get(0).([]tracking.ClientRunRecord); ok {
		return runs, args.Error(1)
	}
	return nil, args.Error(1)
}
