// Package budget resolves the effective quota set for a tenant: the
// compile-time defaults overlaid with whatever the tenant's settings row
// carries. Bad configuration never fails a caller; offending fields are
// dropped and logged.
package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/outreachly/costgate/internal/repository"
)

// Resolver merges defaults with per-tenant overrides.
type Resolver struct {
	settings SettingsRepository
	logger   *slog.Logger
}

// NewResolver creates a budget resolver.
func NewResolver(settings SettingsRepository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{settings: settings, logger: logger}
}

// Resolve returns the effective budget for a tenant. Unknown tenants and
// settings-read failures both degrade to the default budget; the only error
// ever returned is caller cancellation.
func (r *Resolver) Resolve(ctx context.Context, clientID string) (Budget, error) {
	b, _, err := r.ResolveKnown(ctx, clientID)
	return b, err
}

// ResolveKnown is Resolve plus a flag reporting whether the tenant has a
// settings row. The governance summary uses the flag to mark unknown
// tenants.
func (r *Resolver) ResolveKnown(ctx context.Context, clientID string) (Budget, bool, error) {
	def := Default()

	overrides, err := r.settings.GetSettings(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.logger.Warn("no settings row for tenant, using default budget",
				"client_id", clientID, "operation", "resolve_budget")
			return def, false, nil
		}
		if ctx.Err() != nil {
			return def, false, fmt.Errorf("resolving budget for %s: %w", clientID, err)
		}
		r.logger.Warn("settings read failed, using default budget",
			"client_id", clientID, "operation", "resolve_budget", "error", err)
		return def, false, nil
	}

	merged, rejected := Merge(def, overrides)
	for _, field := range rejected {
		r.logger.Warn("ignoring invalid budget override",
			"client_id", clientID, "operation", "resolve_budget", "field", field)
	}
	return merged, true, nil
}

// Merge overlays present-and-positive override fields onto base. Overrides
// that would leave a monthly limit below its daily counterpart are rejected
// pair-wise: the overridden fields of the violating pair fall back to base.
// Returns the merged budget and the names of rejected fields.
func Merge(base Budget, o *Overrides) (Budget, []string) {
	merged := base
	var rejected []string

	overlayInt := func(dst *int64, src *int64, name string) bool {
		if src == nil {
			return false
		}
		if *src <= 0 {
			rejected = append(rejected, name)
			return false
		}
		*dst = *src
		return true
	}
	overlayFloat := func(dst *float64, src *float64, name string) bool {
		if src == nil {
			return false
		}
		if *src <= 0 {
			rejected = append(rejected, name)
			return false
		}
		*dst = *src
		return true
	}

	dailyTokSet := overlayInt(&merged.DailyTokenLimit, o.DailyTokenLimit, "daily_token_limit")
	monthlyTokSet := overlayInt(&merged.MonthlyTokenLimit, o.MonthlyTokenLimit, "monthly_token_limit")
	if merged.MonthlyTokenLimit < merged.DailyTokenLimit {
		if dailyTokSet {
			merged.DailyTokenLimit = base.DailyTokenLimit
			rejected = append(rejected, "daily_token_limit")
		}
		if monthlyTokSet {
			merged.MonthlyTokenLimit = base.MonthlyTokenLimit
			rejected = append(rejected, "monthly_token_limit")
		}
	}

	dailyCostSet := overlayFloat(&merged.DailyCostLimit, o.DailyCostLimit, "daily_cost_limit")
	monthlyCostSet := overlayFloat(&merged.MonthlyCostLimit, o.MonthlyCostLimit, "monthly_cost_limit")
	if merged.MonthlyCostLimit < merged.DailyCostLimit {
		if dailyCostSet {
			merged.DailyCostLimit = base.DailyCostLimit
			rejected = append(rejected, "daily_cost_limit")
		}
		if monthlyCostSet {
			merged.MonthlyCostLimit = base.MonthlyCostLimit
			rejected = append(rejected, "monthly_cost_limit")
		}
	}

	if o.MaxBatchSize != nil {
		if *o.MaxBatchSize <= 0 {
			rejected = append(rejected, "max_batch_size")
		} else {
			merged.MaxBatchSize = *o.MaxBatchSize
		}
	}
	overlayInt(&merged.MaxPromptTokens, o.MaxPromptTokens, "max_prompt_tokens")

	return merged, rejected
}
