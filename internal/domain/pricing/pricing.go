// Package pricing holds the token estimator and the cost model for the
// external scoring model. Everything here is pure arithmetic; the admission
// controller and the usage ledger both depend on it.
package pricing

import "math"

// Hard properties of the external model. These belong to the model, not to
// any tenant; per-tenant caps live in the budget.
const (
	InputTokenLimit  = 1_000_000
	OutputTokenLimit = 128_000

	// SafeInputThreshold trips PROMPT_TOO_LARGE well before the raw context
	// window so a single oversized batch cannot brick the call.
	SafeInputThreshold = InputTokenLimit * 9 / 10
)

const (
	charsPerToken = 4

	// DefaultOutputPerItem is the assumed completion size per scored lead.
	DefaultOutputPerItem = 1000

	defaultInputRatePer1K  = 0.00015
	defaultOutputRatePer1K = 0.0006
)

// costScale fixes ledger-boundary rounding at 6 decimal places.
const costScale = 1e6

// Rates are the per-1K-token prices for the configured model.
type Rates struct {
	InputPer1K  float64
	OutputPer1K float64
}

// DefaultRates returns the built-in rates for the default scoring model.
func DefaultRates() Rates {
	return Rates{InputPer1K: defaultInputRatePer1K, OutputPer1K: defaultOutputRatePer1K}
}

// Model combines rates with the per-item output estimate used for cost
// projection.
type Model struct {
	rates         Rates
	outputPerItem int
}

// NewModel builds a cost model. Non-positive arguments fall back to the
// defaults so a partially filled config cannot zero out cost projection.
func NewModel(rates Rates, outputPerItem int) *Model {
	if rates.InputPer1K <= 0 {
		rates.InputPer1K = defaultInputRatePer1K
	}
	if rates.OutputPer1K <= 0 {
		rates.OutputPer1K = defaultOutputRatePer1K
	}
	if outputPerItem <= 0 {
		outputPerItem = DefaultOutputPerItem
	}
	return &Model{rates: rates, outputPerItem: outputPerItem}
}

// EstimateTokens returns ceil(len(text)/4). The heuristic is deliberately
// crude but deterministic; realized counts come back from the model itself.
func EstimateTokens(text string) int64 {
	if len(text) == 0 {
		return 0
	}
	return int64((len(text) + charsPerToken - 1) / charsPerToken)
}

// EstimateOutput projects completion tokens for a batch of the given size.
func (m *Model) EstimateOutput(batchSize int) int64 {
	if batchSize <= 0 {
		return 0
	}
	return int64(batchSize) * int64(m.outputPerItem)
}

// Cost prices a call from token counts using the per-1K rates. The result is
// not rounded; rounding happens once, at the ledger boundary.
func (m *Model) Cost(inputTokens, outputTokens int64) float64 {
	return float64(inputTokens)/1000*m.rates.InputPer1K +
		float64(outputTokens)/1000*m.rates.OutputPer1K
}

// RoundCost rounds a dollar amount to 6 decimal places, half away from zero.
// Applied exactly once, when a cost is written to the usage ledger.
func RoundCost(cost float64) float64 {
	return math.Round(cost*costScale) / costScale
}
