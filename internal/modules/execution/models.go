// Package execution consumes oracle decision batches and applies them to the
// ledger, emitting skip records for every decision it cannot honor.
package execution

import "fmt"

// Action is the oracle's recommendation for a single instrument.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// ParseAction validates a raw action string from the oracle. Anything that is
// not a known action is a data-quality failure at the boundary.
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionBuy, ActionSell, ActionHold:
		return Action(raw), nil
	default:
		return "", fmt.Errorf("unknown action %q", raw)
	}
}

// TradeDecision is a single proposed trade as returned by the advisory oracle.
// AmountUSD is the requested notional for a buy; for a sell it is informational
// only, since sells always liquidate the full position.
type TradeDecision struct {
	Action    Action  `json:"action"`
	Symbol    string  `json:"ticker"`
	AmountUSD float64 `json:"amount_usd"`
	Reason    string  `json:"reason"`
}

// Skip reasons for decisions the engine does not honor. Every skipped decision
// is persisted with one of these; nothing is silently dropped.
const (
	SkipMarketClosed      = "market-closed"
	SkipNoPriceData       = "no-price-data"
	SkipInsufficientFunds = "insufficient-funds-for-one-unit"
	SkipBufferBreach      = "would-breach-minimum-buffer"
	SkipInvalidSymbol     = "invalid-symbol"
	SkipNoActiveHolding   = "no-active-holding"
	SkipUnknownAction     = "unknown-action"
)

// SkippedDecision is a TradeDecision the engine declined, plus the reason.
type SkippedDecision struct {
	TradeDecision
	SkipReason string `json:"skip_reason"`
}

// AppliedTrade records a committed buy or sell.
type AppliedTrade struct {
	Action Action  `json:"action"`
	Symbol string  `json:"symbol"`
	Shares float64 `json:"shares"`
	Price  float64 `json:"price"`
	Value  float64 `json:"value"`
	Reason string  `json:"reason"`
}
