package admission

import (
	"context"
	"math"
	"strings"

	"github.com/outreachly/costgate/internal/domain/budget"
	"github.com/outreachly/costgate/internal/domain/usage"
)

// Summary reports a tenant's budget, current usage and headroom in one
// shape, for dashboards and the CRM glue.
type Summary struct {
	ClientID string `json:"client_id"`
	// Known is false when the tenant has no settings row; the budget shown
	// is then the default.
	Known       bool            `json:"known"`
	Budget      budget.Budget   `json:"budget"`
	Usage       usage.Snapshot  `json:"usage"`
	Remaining   Remaining       `json:"remaining"`
	Utilization UtilizationPcts `json:"utilization_pct"`
}

// Remaining is limit minus used per dimension, floored at zero.
type Remaining struct {
	DailyTokens   int64   `json:"daily_tokens"`
	MonthlyTokens int64   `json:"monthly_tokens"`
	DailyCost     float64 `json:"daily_cost"`
	MonthlyCost   float64 `json:"monthly_cost"`
}

// UtilizationPcts is used/limit per dimension, as percentages rounded to one
// decimal place.
type UtilizationPcts struct {
	DailyTokens   float64 `json:"daily_tokens"`
	MonthlyTokens float64 `json:"monthly_tokens"`
	DailyCost     float64 `json:"daily_cost"`
	MonthlyCost   float64 `json:"monthly_cost"`
}

// Summary builds the governance summary for a tenant. Unlike Admit, a
// snapshot read failure is returned: the summary exists to report accounting
// state, so it must not fabricate one.
func (c *Controller) Summary(ctx context.Context, clientID string) (*Summary, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, ErrEmptyClientID
	}

	b, known, err := c.budgets.ResolveKnown(ctx, clientID)
	if err != nil {
		return nil, err
	}

	snap, err := c.snapshots.Snapshot(ctx, clientID)
	if err != nil {
		return nil, err
	}

	return &Summary{
		ClientID: clientID,
		Known:    known,
		Budget:   b,
		Usage:    snap,
		Remaining: Remaining{
			DailyTokens:   max(int64(0), b.DailyTokenLimit-snap.DailyTokens),
			MonthlyTokens: max(int64(0), b.MonthlyTokenLimit-snap.MonthlyTokens),
			DailyCost:     math.Max(0, b.DailyCostLimit-snap.DailyCost),
			MonthlyCost:   math.Max(0, b.MonthlyCostLimit-snap.MonthlyCost),
		},
		Utilization: UtilizationPcts{
			DailyTokens:   pct(float64(snap.DailyTokens), float64(b.DailyTokenLimit)),
			MonthlyTokens: pct(float64(snap.MonthlyTokens), float64(b.MonthlyTokenLimit)),
			DailyCost:     pct(snap.DailyCost, b.DailyCostLimit),
			MonthlyCost:   pct(snap.MonthlyCost, b.MonthlyCostLimit),
		},
	}, nil
}

// pct returns used/limit as a percentage rounded to one decimal place.
func pct(used, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Round(used/limit*1000) / 10
}
