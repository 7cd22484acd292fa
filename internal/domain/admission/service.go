// Package admission is the pre-flight gate in front of every scoring call.
// It combines the tenant budget, the usage snapshot and the cost model into
// a single ordered check sequence and returns a typed verdict. Admitting
// never mutates ledger state.
package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/outreachly/costgate/internal/domain/budget"
	"github.com/outreachly/costgate/internal/domain/pricing"
	"github.com/outreachly/costgate/internal/domain/usage"
)

// BudgetSource resolves the effective budget for a tenant.
type BudgetSource interface {
	ResolveKnown(ctx context.Context, clientID string) (budget.Budget, bool, error)
}

// SnapshotSource materializes the tenant's current usage aggregates.
type SnapshotSource interface {
	Snapshot(ctx context.Context, clientID string) (usage.Snapshot, error)
}

// Request describes one proposed scoring invocation.
type Request struct {
	ClientID     string
	SystemPrompt string
	// LeadBatch is the JSON-serialized lead payload exactly as it will be
	// sent to the model; estimation runs over these bytes.
	LeadBatch json.RawMessage
	BatchSize int
}

// Controller decides whether a scoring request may proceed.
type Controller struct {
	budgets    BudgetSource
	snapshots  SnapshotSource
	model      *pricing.Model
	failClosed bool
	logger     *slog.Logger
}

// NewController creates an admission controller. With failClosed set, a
// snapshot read failure rejects the request instead of degrading to a zero
// snapshot.
func NewController(
	budgets BudgetSource,
	snapshots SnapshotSource,
	model *pricing.Model,
	failClosed bool,
	logger *slog.Logger,
) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		budgets:    budgets,
		snapshots:  snapshots,
		model:      model,
		failClosed: failClosed,
		logger:     logger,
	}
}

// Admit runs the ordered check sequence and returns the first failure, or an
// allowed verdict carrying the estimates and the budget status. Checks run
// strictly in order: batch cap, model prompt safety, tenant prompt cap,
// token ceilings, model output cap, cost ceilings. Ceilings are inclusive; a
// request landing exactly on a limit passes.
func (c *Controller) Admit(ctx context.Context, req Request) (*Verdict, error) {
	if strings.TrimSpace(req.ClientID) == "" {
		return nil, ErrEmptyClientID
	}

	b, _, err := c.budgets.ResolveKnown(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	if req.BatchSize > b.MaxBatchSize {
		return rejected(CodeBatchSizeExceeded,
			fmt.Sprintf("batch of %d exceeds the maximum of %d", req.BatchSize, b.MaxBatchSize),
			map[string]any{
				"requested_batch_size": req.BatchSize,
				"max_batch_size":       b.MaxBatchSize,
			}), nil
	}

	estInput := pricing.EstimateTokens(req.SystemPrompt) + pricing.EstimateTokens(string(req.LeadBatch))

	if estInput > pricing.SafeInputThreshold {
		v := rejected(CodePromptTooLarge,
			fmt.Sprintf("estimated %d input tokens exceeds the safe model threshold of %d", estInput, int64(pricing.SafeInputThreshold)),
			map[string]any{
				"estimated_tokens": estInput,
				"safe_threshold":   int64(pricing.SafeInputThreshold),
			})
		v.EstimatedTokens = estInput
		return v, nil
	}

	if estInput > b.MaxPromptTokens {
		v := rejected(CodeClientPromptLimit,
			fmt.Sprintf("estimated %d input tokens exceeds the tenant prompt cap of %d", estInput, b.MaxPromptTokens),
			map[string]any{
				"estimated_tokens":  estInput,
				"max_prompt_tokens": b.MaxPromptTokens,
			})
		v.EstimatedTokens = estInput
		return v, nil
	}

	snap, err := c.snapshots.Snapshot(ctx, req.ClientID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if c.failClosed {
			return nil, fmt.Errorf("%w for %s: %v", ErrSnapshotUnavailable, req.ClientID, err)
		}
		// Fail-open: quota checks run against a zero snapshot. The prompt
		// and batch checks above still protect against runaway requests.
		c.logger.Warn("usage snapshot unavailable, admitting against zero usage",
			"client_id", req.ClientID, "operation", "admit", "error", err)
		snap = usage.Snapshot{}
	}

	if snap.DailyTokens+estInput > b.DailyTokenLimit {
		v := rejected(CodeDailyTokenLimit,
			fmt.Sprintf("request of %d tokens exceeds the daily token budget (%d of %d used)", estInput, snap.DailyTokens, b.DailyTokenLimit),
			map[string]any{
				"current_usage":  snap.DailyTokens,
				"request_tokens": estInput,
				"limit":          b.DailyTokenLimit,
				"remaining":      max(int64(0), b.DailyTokenLimit-snap.DailyTokens),
			})
		v.EstimatedTokens = estInput
		return v, nil
	}

	if snap.MonthlyTokens+estInput > b.MonthlyTokenLimit {
		v := rejected(CodeMonthlyTokenLimit,
			fmt.Sprintf("request of %d tokens exceeds the monthly token budget (%d of %d used)", estInput, snap.MonthlyTokens, b.MonthlyTokenLimit),
			map[string]any{
				"current_usage":  snap.MonthlyTokens,
				"request_tokens": estInput,
				"limit":          b.MonthlyTokenLimit,
				"remaining":      max(int64(0), b.MonthlyTokenLimit-snap.MonthlyTokens),
			})
		v.EstimatedTokens = estInput
		return v, nil
	}

	estOutput := c.model.EstimateOutput(req.BatchSize)
	if estOutput > pricing.OutputTokenLimit {
		v := rejected(CodeModelHardLimit,
			fmt.Sprintf("projected %d output tokens exceeds the model output limit of %d", estOutput, int64(pricing.OutputTokenLimit)),
			map[string]any{
				"estimated_output_tokens": estOutput,
				"output_token_limit":      int64(pricing.OutputTokenLimit),
			})
		v.EstimatedTokens = estInput
		return v, nil
	}
	estCost := c.model.Cost(estInput, estOutput)

	if snap.DailyCost+estCost > b.DailyCostLimit {
		v := rejected(CodeDailyCostLimit,
			fmt.Sprintf("projected cost $%.4f exceeds the daily cost budget ($%.4f of $%.2f used)", estCost, snap.DailyCost, b.DailyCostLimit),
			map[string]any{
				"current_cost":   snap.DailyCost,
				"estimated_cost": estCost,
				"limit":          b.DailyCostLimit,
				"remaining":      math.Max(0, b.DailyCostLimit-snap.DailyCost),
			})
		v.EstimatedTokens = estInput
		v.EstimatedCost = estCost
		return v, nil
	}

	if snap.MonthlyCost+estCost > b.MonthlyCostLimit {
		v := rejected(CodeMonthlyCostLimit,
			fmt.Sprintf("projected cost $%.4f exceeds the monthly cost budget ($%.4f of $%.2f used)", estCost, snap.MonthlyCost, b.MonthlyCostLimit),
			map[string]any{
				"current_cost":   snap.MonthlyCost,
				"estimated_cost": estCost,
				"limit":          b.MonthlyCostLimit,
				"remaining":      math.Max(0, b.MonthlyCostLimit-snap.MonthlyCost),
			})
		v.EstimatedTokens = estInput
		v.EstimatedCost = estCost
		return v, nil
	}

	return &Verdict{
		Allowed:         true,
		EstimatedTokens: estInput,
		EstimatedCost:   estCost,
		BudgetStatus: &BudgetStatus{
			DailyTokensUsed:   snap.DailyTokens,
			DailyTokenLimit:   b.DailyTokenLimit,
			MonthlyTokensUsed: snap.MonthlyTokens,
			MonthlyTokenLimit: b.MonthlyTokenLimit,
			DailyCostUsed:     snap.DailyCost,
			DailyCostLimit:    b.DailyCostLimit,
			MonthlyCostUsed:   snap.MonthlyCost,
			MonthlyCostLimit:  b.MonthlyCostLimit,
		},
	}, nil
}
