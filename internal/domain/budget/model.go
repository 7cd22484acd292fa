package budget

// Budget is the immutable set of quotas constraining one tenant's model
// usage. Token limits gate volume, cost limits gate spend, and the batch and
// prompt caps bound a single request.
type Budget struct {
	DailyTokenLimit   int64
	MonthlyTokenLimit int64
	DailyCostLimit    float64
	MonthlyCostLimit  float64
	MaxBatchSize      int
	MaxPromptTokens   int64
}

// Default returns the compile-time budget applied to every tenant before
// per-tenant overrides are overlaid.
func Default() Budget {
	return Budget{
		DailyTokenLimit:   500_000,
		MonthlyTokenLimit: 10_000_000,
		DailyCostLimit:    200,
		MonthlyCostLimit:  2_000,
		MaxBatchSize:      10,
		MaxPromptTokens:   200_000,
	}
}

// Overrides is the optional per-tenant settings row. Nil fields mean "use
// the default"; present fields are overlaid only when they keep the budget
// invariants intact.
type Overrides struct {
	DailyTokenLimit   *int64
	MonthlyTokenLimit *int64
	DailyCostLimit    *float64
	MonthlyCostLimit  *float64
	MaxBatchSize      *int
	MaxPromptTokens   *int64
}
