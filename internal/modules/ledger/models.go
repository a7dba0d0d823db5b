// Package ledger holds the durable table of per-symbol holdings plus the
// synthetic cash row, and the portfolio arithmetic derived from it.
package ledger

// CashSymbol is the reserved symbol for the synthetic cash row. The cash row
// always carries shares == 1 with average_cost == current_price == cost_basis
// == market_value, so the free cash balance is stored directly as a price.
const CashSymbol = "CASH"

// Holding is one row of the ledger: a position in a single instrument.
type Holding struct {
	Symbol             string  `json:"symbol"`
	Shares             float64 `json:"shares"`
	AverageCost        float64 `json:"average_cost"`
	CostBasis          float64 `json:"cost_basis"`
	CurrentPrice       float64 `json:"current_price"`
	CurrentPriceAt     *int64  `json:"current_price_at,omitempty"` // Unix timestamp
	MarketValue        float64 `json:"market_value"`
	UnrealizedGainLoss float64 `json:"unrealized_gain_loss"`
	IsActive           bool    `json:"is_active"`
	Memo               string  `json:"memo"`
	PurchasedAt        *int64  `json:"purchased_at,omitempty"` // Unix timestamp of first buy of this position
}

// IsCash reports whether the holding is the synthetic cash row.
func (h Holding) IsCash() bool {
	return h.Symbol == CashSymbol
}

// Totals summarizes the portfolio at an observation instant.
type Totals struct {
	TotalValue         float64 `json:"total_value"`
	CashBalance        float64 `json:"cash_balance"`
	TotalInvested      float64 `json:"total_invested"`
	UnrealizedGainLoss float64 `json:"unrealized_gain_loss"`
	PercentageGain     float64 `json:"percentage_gain"`
}
