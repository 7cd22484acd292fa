package admission

// Code is a machine-readable rejection code. Codes are part of the external
// contract consumed by the CRM glue; never rename one.
type Code string

const (
	CodeBatchSizeExceeded Code = "BATCH_SIZE_EXCEEDED"
	CodePromptTooLarge    Code = "PROMPT_TOO_LARGE"
	CodeClientPromptLimit Code = "CLIENT_PROMPT_LIMIT"
	CodeDailyTokenLimit   Code = "DAILY_TOKEN_LIMIT"
	CodeMonthlyTokenLimit Code = "MONTHLY_TOKEN_LIMIT"
	CodeDailyCostLimit    Code = "DAILY_COST_LIMIT"
	CodeMonthlyCostLimit  Code = "MONTHLY_COST_LIMIT"
	CodeModelHardLimit    Code = "MODEL_HARD_LIMIT"
)

// Verdict is the structured result of one pre-flight admission check. It is
// a value, not an error: a rejection is normal control flow.
type Verdict struct {
	Allowed bool `json:"allowed"`

	// EstimatedTokens is the projected input token count. Zero when the
	// request was rejected before estimation (batch-size check).
	EstimatedTokens int64 `json:"estimated_tokens"`
	// EstimatedCost is the projected call cost. Zero when the request was
	// rejected before cost projection.
	EstimatedCost float64 `json:"estimated_cost"`

	// BudgetStatus carries used/limit pairs for every dimension; set on
	// allowed verdicts.
	BudgetStatus *BudgetStatus `json:"budget_status,omitempty"`

	// Code, Reason and Details describe a rejection. Reason is one human
	// line; Details carries the numbers for the violated dimension.
	Code    Code           `json:"code,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// BudgetStatus reports consumption against every budget dimension at the
// moment of admission.
type BudgetStatus struct {
	DailyTokensUsed   int64   `json:"daily_tokens_used"`
	DailyTokenLimit   int64   `json:"daily_token_limit"`
	MonthlyTokensUsed int64   `json:"monthly_tokens_used"`
	MonthlyTokenLimit int64   `json:"monthly_token_limit"`
	DailyCostUsed     float64 `json:"daily_cost_used"`
	DailyCostLimit    float64 `json:"daily_cost_limit"`
	MonthlyCostUsed   float64 `json:"monthly_cost_used"`
	MonthlyCostLimit  float64 `json:"monthly_cost_limit"`
}

func rejected(code Code, reason string, details map[string]any) *Verdict {
	return &Verdict{Code: code, Reason: reason, Details: details}
}
