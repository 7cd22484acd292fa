package pricing_test

import (
	"strings"
	"testing"

	"github.com/outreachly/costgate/internal/domain/pricing"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	require.EqualValues(t, 0, pricing.EstimateTokens(""))
	require.EqualValues(t, 1, pricing.EstimateTokens("a"))
	require.EqualValues(t, 1, pricing.EstimateTokens("abcd"))
	require.EqualValues(t, 2, pricing.EstimateTokens("abcde"))
	require.EqualValues(t, 2500, pricing.EstimateTokens(strings.Repeat("x", 10_000)))
}

func TestModelCost(t *testing.T) {
	m := pricing.NewModel(pricing.DefaultRates(), pricing.DefaultOutputPerItem)

	// 12_500 input and 5_000 output tokens at the default rates.
	got := m.Cost(12_500, 5_000)
	require.InDelta(t, 0.004875, got, 1e-9)

	require.Zero(t, m.Cost(0, 0))
}

func TestModelEstimateOutput(t *testing.T) {
	m := pricing.NewModel(pricing.DefaultRates(), 1000)
	require.EqualValues(t, 5000, m.EstimateOutput(5))
	require.EqualValues(t, 0, m.EstimateOutput(0))
	require.EqualValues(t, 0, m.EstimateOutput(-3))
}

func TestNewModel_DefaultsOnBadInput(t *testing.T) {
	m := pricing.NewModel(pricing.Rates{}, 0)
	want := pricing.NewModel(pricing.DefaultRates(), pricing.DefaultOutputPerItem)
	require.Equal(t, want.Cost(1000, 1000), m.Cost(1000, 1000))
	require.Equal(t, want.EstimateOutput(3), m.EstimateOutput(3))
}

func TestRoundCost(t *testing.T) {
	require.Equal(t, 0.004875, pricing.RoundCost(0.004875))
	require.Equal(t, 0.000001, pricing.RoundCost(0.0000006))
	require.Equal(t, 0.0, pricing.RoundCost(0.0000004))
	require.Equal(t, -0.000001, pricing.RoundCost(-0.0000006))
	require.Equal(t, 1.234568, pricing.RoundCost(1.23456789))
}

func TestSafeInputThreshold(t *testing.T) {
	require.EqualValues(t, 900_000, pricing.SafeInputThreshold)
}
