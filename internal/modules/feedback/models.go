// Package feedback scores closed positions and aggregates recent outcomes
// into the performance summary that steers future oracle prompts.
package feedback

// Category buckets a closed trade's percentage gain.
type Category string

const (
	SignificantProfit Category = "significant_profit"
	ModerateProfit    Category = "moderate_profit"
	BreakEven         Category = "break_even"
	ModerateLoss      Category = "moderate_loss"
	SignificantLoss   Category = "significant_loss"
)

// Classification thresholds on percentage gain (exit-entry)/entry.
const (
	significantProfitThreshold = 0.05
	breakEvenFloor             = -0.02
	significantLossThreshold   = -0.10
)

// TradeOutcome is created exactly once per executed sell and is immutable.
type TradeOutcome struct {
	ID               int64    `json:"id"`
	Symbol           string   `json:"symbol"`
	CloseTime        int64    `json:"close_time"` // Unix timestamp
	EntryPrice       float64  `json:"entry_price"`
	ExitPrice        float64  `json:"exit_price"`
	Shares           float64  `json:"shares"`
	GainAmount       float64  `json:"gain_amount"`
	GainPercentage   float64  `json:"gain_percentage"`
	HoldDurationDays int      `json:"hold_duration_days"`
	EntryReason      string   `json:"entry_reason"`
	ExitReason       string   `json:"exit_reason"`
	Category         Category `json:"category"`
}

// Summary is the structured aggregate over a lookback window, persisted
// together with the oracle critique as a feedback record.
type Summary struct {
	ID                      int64          `json:"id"`
	AnalyzedAt              int64          `json:"analyzed_at"`
	LookbackDays            int            `json:"lookback_days"`
	TotalTrades             int            `json:"total_trades"`
	SuccessRate             float64        `json:"success_rate"`
	AvgGainPercentage       float64        `json:"avg_gain_percentage"`
	CategoryHistogram       map[string]int `json:"category_histogram"`
	SuccessfulPatterns      []string       `json:"successful_patterns"`
	UnsuccessfulPatterns    []string       `json:"unsuccessful_patterns"`
	AvgHoldDaysProfitable   float64        `json:"avg_hold_days_profitable"`
	AvgHoldDaysUnprofitable float64        `json:"avg_hold_days_unprofitable"`
	Critique                string         `json:"critique"`
}
