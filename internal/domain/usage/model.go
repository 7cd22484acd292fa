package usage

import "time"

// Entry is one append-only row in the usage ledger: the realized token and
// cost consumption of a single model call.
type Entry struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id"`
	DateKey      string    `json:"date_key"` // YYYY-MM-DD, UTC
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	Cost         float64   `json:"cost"`
	Timestamp    time.Time `json:"timestamp"`
}

// Snapshot is the cached day/month aggregate for one tenant.
type Snapshot struct {
	DailyTokens   int64     `json:"daily_tokens"`
	MonthlyTokens int64     `json:"monthly_tokens"`
	DailyCost     float64   `json:"daily_cost"`
	MonthlyCost   float64   `json:"monthly_cost"`
	AsOf          time.Time `json:"as_of"`
}

// Totals is a token/cost sum over one aggregation window.
type Totals struct {
	Tokens int64
	Cost   float64
}
