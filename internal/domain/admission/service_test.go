package admission_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/outreachly/costgate/internal/clock"
	"github.com/outreachly/costgate/internal/domain/admission"
	"github.com/outreachly/costgate/internal/domain/budget"
	"github.com/outreachly/costgate/internal/domain/pricing"
	"github.com/outreachly/costgate/internal/domain/usage"
	"github.com/outreachly/costgate/internal/repository"
	"github.com/outreachly/costgate/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testInstant = time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)

type fixture struct {
	controller *admission.Controller
	entries    *mocks.EntryRepository
	settings   *mocks.SettingsRepository
}

func newFixture(t *testing.T, failClosed bool) *fixture {
	t.Helper()
	settings := &mocks.SettingsRepository{}
	entries := &mocks.EntryRepository{}
	model := pricing.NewModel(pricing.DefaultRates(), pricing.DefaultOutputPerItem)
	ledger := usage.NewLedger(entries, usage.NewMemoryCache(time.Minute), model, clock.Fixed(testInstant), 0, nil)
	resolver := budget.NewResolver(settings, nil)
	return &fixture{
		controller: admission.NewController(resolver, ledger, model, failClosed, nil),
		entries:    entries,
		settings:   settings,
	}
}

func (f *fixture) withDefaultBudget(clientID string) {
	f.settings.On("GetSettings", mock.Anything, clientID).Return(nil, repository.ErrNotFound)
}

func (f *fixture) withUsage(clientID string, day, month usage.Totals) {
	f.entries.On("Totals", mock.Anything, clientID, "2026-08-25", "2026-08").Return(day, month, nil)
}

func TestAdmit_HappyPath(t *testing.T) {
	f := newFixture(t, false)
	f.withDefaultBudget("acme")
	f.withUsage("acme", usage.Totals{}, usage.Totals{})

	verdict, err := f.controller.Admit(context.Background(), admission.Request{
		ClientID:     "acme",
		SystemPrompt: strings.Repeat("p", 10_000),
		LeadBatch:    []byte(strings.Repeat("l", 40_000)),
		BatchSize:    5,
	})
	require.NoError(t, err)
	require.True(t, verdict.Allowed)
	require.EqualValues(t, 12_500, verdict.EstimatedTokens)
	require.InDelta(t, 0.004875, verdict.EstimatedCost, 1e-9)
	require.NotNil(t, verdict.BudgetStatus)
	require.EqualValues(t, 500_000, verdict.BudgetStatus.DailyTokenLimit)
	require.Zero(t, verdict.BudgetStatus.DailyTokensUsed)
}

func TestAdmit_BatchSizeExceeded(t *testing.T) {
	f := newFixture(t, false)
	f.withDefaultBudget("acme")

	verdict, err := f.controller.Admit(context.Background(), admission.Request{
		ClientID:     "acme",
		SystemPrompt: "prompt",
		BatchSize:    25, // default MaxBatchSize is 10
	})
	require.NoError(t, err)
	require.False(t, verdict.Allowed)
	require.Equal(t, admission.CodeBatchSizeExceeded, verdict.Code)
	// Rejected before token estimation.
	require.Zero(t, verdict.EstimatedTokens)
	f.entries.AssertNotCalled(t, "Totals", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdmit_PromptTooLarge_BeforeSnapshot(t *testing.T) {
	f := newFixture(t, false)
	f.withDefaultBudget("acme")

	// 16M chars estimate to 4M tokens, past the 900k safe threshold.
	verdict, err := f.controller.Admit(context.Background(), admission.Request{
		ClientID:     "acme",
		SystemPrompt: strings.Repeat("p", 16_000_000),
		BatchSize:    5,
	})
	require.NoError(t, err)
	require.False(t, verdict.Allowed)
	require.Equal(t, admission.CodePromptTooLarge, verdict.Code)
	require.EqualValues(t, 4_000_000, verdict.EstimatedTokens)
	f.entries.AssertNotCalled(t, "Totals", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdmit_ClientPromptLimit(t *testing.T) {
	f := newFixture(t, false)
	f.withDefaultBudget("acme")

	// Past the 200k default tenant cap but under the 900k model threshold.
	verdict, err := f.controller.Admit(context.Background(), admission.Request{
		ClientID:     "acme",
		SystemPrompt: strings.Repeat("p", 1_200_000),
		BatchSize:    5,
	})
	require.NoError(t, err)
	require.Equal(t, admission.CodeClientPromptLimit, verdict.Code)
}

func TestAdmit_DailyTokenLimit(t *testing.T) {
	f := newFixture(t, false)
	f.withDefaultBudget("acme")
	f.withUsage("acme", usage.Totals{Tokens: 495_000}, usage.Totals{Tokens: 495_000})

	verdict, err := f.controller.Admit(context.Background(), admission.Request{
		ClientID:     "acme",
		SystemPrompt: strings.Repeat("p", 40_000), // 10k tokens
		BatchSize:    5,
	})
	require.NoError(t, err)
	require.False(t, verdict.Allowed)
	require.Equal(t, admission.CodeDailyTokenLimit, verdict.Code)
	require.EqualValues(t, 495_000, verdict.Details["current_usage"])
	require.EqualValues(t, 10_000, verdict.Details["request_tokens"])
	require.EqualValues(t, 500_000, verdict.Details["limit"])
}

func TestAdmit_ExactlyAtLimitIsAllowed(t *testing.T) {
	f := newFixture(t, false)
	f.withDefaultBudget("acme")
	f.withUsage("acme", usage.Totals{Tokens: 490_000}, usage.Totals{Tokens: 490_000})

	// 490k used + 10k request lands exactly on the 500k ceiling.
	verdict, err := f.controller.Admit(context.Background(), admission.Request{
		ClientID:     "acme",
		SystemPrompt: strings.Repeat("p", 40_000),
		BatchSize:    5,
	})
	require.NoError(t, err)
	require.True(t, verdict.Allowed)
}

func TestAdmit_MonthlyTokenLimit(t *testing.T) {
	f := newFixture(t, false)
	f.withDefaultBudget("acme")
	f.withUsage("acme", usage.Totals{Tokens: 1_000}, usage.Totals{Tokens: 9_995_000})

	verdict, err := f.controller.Admit(context.Background(), admission.Request{
		ClientID:     "acme",
		SystemPrompt: strings.Repeat("p", 40_000),
		BatchSize:    5,
	})
	require.NoError(t, err)
	require.Equal(t, admission.CodeMonthlyTokenLimit, verdict.Code)
}

func TestAdmit_DailyCostLimit(t *testing.T) {
	f := newFixture(t, false)
	f.settings.On("GetSettings", mock.Anything, "acme").Return(&budget.Overrides{
		DailyCostLimit: floatPtr(0.001),
	}, nil)
	f.withUsage("acme", usage.Totals{}, usage.Totals{})

	verdict, err := f.controller.Admit(context.Background(), admission.Request{
		ClientID:     "acme",
		SystemPrompt: strings.Repeat("p", 40_000),
		BatchSize:    5,
	})
	require.NoError(t, err)
	require.Equal(t, admission.CodeDailyCostLimit, verdict.Code)
	require.Positive(t, verdict.EstimatedCost)
}

func TestAdmit_ModelHardLimitOnProjectedOutput(t *testing.T) {
	f := newFixture(t, false)
	f.settings.On("GetSettings", mock.Anything, "acme").Return(&budget.Overrides{
		MaxBatchSize: intPtr(500),
	}, nil)
	f.withUsage("acme", usage.Totals{}, usage.Totals{})

	// 200 items * 1000 tokens each projects past the 128k output limit.
	verdict, err := f.controller.Admit(context.Background(), admission.Request{
		ClientID:     "acme",
		SystemPrompt: "prompt",
		BatchSize:    200,
	})
	require.NoError(t, err)
	require.Equal(t, admission.CodeModelHardLimit, verdict.Code)
}

func TestAdmit_FailOpenOnSnapshotError(t *testing.T) {
	f := newFixture(t, false)
	f.withDefaultBudget("acme")
	f.entries.On("Totals", mock.Anything, "acme", "2026-08-25", "2026-08").
		Return(usage.Totals{}, usage.Totals{}, errors.New("network error"))

	verdict, err := f.controller.Admit(context.Background(), admission.Request{
		ClientID:     "acme",
		SystemPrompt: strings.Repeat("p", 10_000),
		BatchSize:    5,
	})
	require.NoError(t, err)
	require.True(t, verdict.Allowed)
}

func TestAdmit_FailClosedOnSnapshotError(t *testing.T) {
	f := newFixture(t, true)
	f.withDefaultBudget("acme")
	f.entries.On("Totals", mock.Anything, "acme", "2026-08-25", "2026-08").
		Return(usage.Totals{}, usage.Totals{}, errors.New("network error"))

	_, err := f.controller.Admit(context.Background(), admission.Request{
		ClientID:     "acme",
		SystemPrompt: strings.Repeat("p", 10_000),
		BatchSize:    5,
	})
	require.ErrorIs(t, err, admission.ErrSnapshotUnavailable)
}

func TestAdmit_EmptyClientID(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.controller.Admit(context.Background(), admission.Request{BatchSize: 1})
	require.ErrorIs(t, err, admission.ErrEmptyClientID)
}

func TestAdmit_SmallerBatchStillAllowed(t *testing.T) {
	f := newFixture(t, false)
	f.withDefaultBudget("acme")
	f.withUsage("acme", usage.Totals{}, usage.Totals{})

	prompt := strings.Repeat("p", 10_000)
	for _, size := range []int{5, 3, 1} {
		verdict, err := f.controller.Admit(context.Background(), admission.Request{
			ClientID:     "acme",
			SystemPrompt: prompt,
			BatchSize:    size,
		})
		require.NoError(t, err)
		require.True(t, verdict.Allowed, "batch size %d", size)
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t, false)
	f.withDefaultBudget("acme")
	f.withUsage("acme", usage.Totals{Tokens: 250_000, Cost: 50}, usage.Totals{Tokens: 1_000_000, Cost: 200})

	summary, err := f.controller.Summary(context.Background(), "acme")
	require.NoError(t, err)
	require.False(t, summary.Known)
	require.EqualValues(t, 250_000, summary.Remaining.DailyTokens)
	require.InDelta(t, 150, summary.Remaining.DailyCost, 1e-9)
	require.InDelta(t, 50.0, summary.Utilization.DailyTokens, 1e-9)
	require.InDelta(t, 10.0, summary.Utilization.MonthlyTokens, 1e-9)
	require.InDelta(t, 25.0, summary.Utilization.DailyCost, 1e-9)
}

func TestSummary_SnapshotErrorPropagates(t *testing.T) {
	f := newFixture(t, false)
	f.withDefaultBudget("acme")
	f.entries.On("Totals", mock.Anything, "acme", "2026-08-25", "2026-08").
		Return(usage.Totals{}, usage.Totals{}, errors.New("timeout"))

	_, err := f.controller.Summary(context.Background(), "acme")
	require.Error(t, err)
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
