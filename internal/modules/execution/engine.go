package execution

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/adobi/dtrader/internal/modules/ledger"
)

// PriceSource provides a current price for a symbol. False means every
// sub-strategy of the source was exhausted.
type PriceSource interface {
	Price(symbol string) (float64, bool)
}

// WindowEvaluator gates the batch on the venue trading window.
type WindowEvaluator interface {
	IsTradingOpen(t time.Time) bool
}

// OutcomeRecorder classifies and persists a closed position. It must be handed
// the holding before the sell mutates it, so entry cost data is intact.
type OutcomeRecorder interface {
	RecordSellOutcome(holding ledger.Holding, exitPrice float64, exitReason string, at time.Time) (string, error)
}

// Engine applies a batch of oracle decisions against the ledger. All ledger
// mutation funnels through Execute; callers serialize batches through the
// ledger-writer lock.
type Engine struct {
	holdings  *ledger.HoldingRepository
	decisions *DecisionRepository
	prices    PriceSource
	windows   WindowEvaluator
	outcomes  OutcomeRecorder
	minBuffer float64
	log       zerolog.Logger
}

// NewEngine creates a new trade execution engine
func NewEngine(
	holdings *ledger.HoldingRepository,
	decisions *DecisionRepository,
	prices PriceSource,
	windows WindowEvaluator,
	outcomes OutcomeRecorder,
	minBuffer float64,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		holdings:  holdings,
		decisions: decisions,
		prices:    prices,
		windows:   windows,
		outcomes:  outcomes,
		minBuffer: minBuffer,
		log:       log.With().Str("component", "execution_engine").Logger(),
	}
}

// Execute applies the batch in oracle order: a sell earlier in the list frees
// cash for a later buy within the same batch. Skipped decisions are persisted
// under "<runID>_skipped" before returning.
//
// When the trading window is closed the whole batch is skipped and the ledger
// is left untouched.
func (e *Engine) Execute(runID string, batch []TradeDecision, at time.Time) ([]AppliedTrade, []SkippedDecision, error) {
	var applied []AppliedTrade
	var skipped []SkippedDecision

	// Batch precondition, checked once rather than per decision.
	if !e.windows.IsTradingOpen(at) {
		for _, d := range batch {
			skipped = append(skipped, SkippedDecision{TradeDecision: d, SkipReason: SkipMarketClosed})
		}
		e.log.Warn().Int("count", len(batch)).Msg("Trading window closed, whole batch skipped")
		return applied, skipped, e.persistSkipped(runID, skipped)
	}

	cashBalance, err := e.holdings.CashBalance()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read cash balance: %w", err)
	}
	cash := decimal.NewFromFloat(cashBalance)
	buffer := decimal.NewFromFloat(e.minBuffer)

	for _, d := range batch {
		switch d.Action {
		case ActionHold:
			// No ledger effect; kept on the audit trail and not counted
			// against the oracle's trade budget.
			skipped = append(skipped, SkippedDecision{
				TradeDecision: d,
				SkipReason:    fmt.Sprintf("Hold decision: %s", d.Reason),
			})
			continue

		case ActionBuy, ActionSell:
			// Processed below.

		default:
			skipped = append(skipped, SkippedDecision{TradeDecision: d, SkipReason: SkipUnknownAction})
			continue
		}

		symbol := ResolveSymbol(d.Symbol)
		if symbol == "" || symbol == ledger.CashSymbol {
			e.log.Warn().Str("raw", d.Symbol).Msg("Unresolvable symbol, decision skipped")
			skipped = append(skipped, SkippedDecision{TradeDecision: d, SkipReason: SkipInvalidSymbol})
			continue
		}

		price, ok := e.prices.Price(symbol)
		if !ok {
			skipped = append(skipped, SkippedDecision{TradeDecision: d, SkipReason: SkipNoPriceData})
			continue
		}

		switch d.Action {
		case ActionBuy:
			trade, skip, newCash, err := e.applyBuy(d, symbol, price, cash, buffer, at)
			if err != nil {
				return applied, skipped, err
			}
			if skip != nil {
				skipped = append(skipped, *skip)
				continue
			}
			applied = append(applied, *trade)
			cash = newCash

		case ActionSell:
			trade, skip, newCash, err := e.applySell(d, symbol, price, cash, at)
			if err != nil {
				return applied, skipped, err
			}
			if skip != nil {
				skipped = append(skipped, *skip)
				continue
			}
			applied = append(applied, *trade)
			cash = newCash
		}
	}

	// Reconciliation pass: one final cash write after all decisions absorbs
	// any residual drift from the per-trade updates.
	if len(applied) > 0 {
		if err := e.holdings.SetCashBalance(cash.InexactFloat64()); err != nil {
			return applied, skipped, err
		}
	}

	e.log.Info().
		Str("run_id", runID).
		Int("applied", len(applied)).
		Int("skipped", len(skipped)).
		Msg("Batch executed")

	return applied, skipped, e.persistSkipped(runID, skipped)
}

// applyBuy commits a single buy. Buys are all-or-nothing: a decision that
// cannot fill at least one whole unit, or whose full fill would breach the
// minimum cash buffer, is rejected rather than partially filled.
func (e *Engine) applyBuy(
	d TradeDecision,
	symbol string,
	price float64,
	cash, buffer decimal.Decimal,
	at time.Time,
) (*AppliedTrade, *SkippedDecision, decimal.Decimal, error) {
	shares := math.Floor(d.AmountUSD / price)
	if shares <= 0 {
		return nil, &SkippedDecision{TradeDecision: d, SkipReason: SkipInsufficientFunds}, cash, nil
	}

	spend := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(shares))
	if cash.Sub(spend).LessThan(buffer) {
		e.log.Warn().
			Str("symbol", symbol).
			Str("spend", spend.StringFixed(2)).
			Str("cash", cash.StringFixed(2)).
			Msg("Buy would breach minimum buffer")
		return nil, &SkippedDecision{TradeDecision: d, SkipReason: SkipBufferBreach}, cash, nil
	}

	existing, err := e.holdings.Get(symbol)
	if err != nil {
		return nil, nil, cash, err
	}

	switch {
	case existing != nil && existing.IsActive:
		err = e.holdings.AccumulateBuy(existing, shares, price, d.Reason, at)
	case existing != nil:
		// Inactive row: reopen as a brand-new position.
		err = e.holdings.Reopen(symbol, shares, price, d.Reason, at)
	default:
		err = e.holdings.Insert(symbol, shares, price, d.Reason, at)
	}
	if err != nil {
		return nil, nil, cash, err
	}

	cash = cash.Sub(spend)
	if err := e.holdings.SetCashBalance(cash.InexactFloat64()); err != nil {
		return nil, nil, cash, err
	}

	return &AppliedTrade{
		Action: ActionBuy,
		Symbol: symbol,
		Shares: shares,
		Price:  price,
		Value:  spend.InexactFloat64(),
		Reason: d.Reason,
	}, nil, cash, nil
}

// applySell liquidates the full position of an active holding. Selling a
// symbol with no active holding leaves the ledger untouched and produces no
// outcome record.
func (e *Engine) applySell(
	d TradeDecision,
	symbol string,
	price float64,
	cash decimal.Decimal,
	at time.Time,
) (*AppliedTrade, *SkippedDecision, decimal.Decimal, error) {
	existing, err := e.holdings.Get(symbol)
	if err != nil {
		return nil, nil, cash, err
	}
	if existing == nil || !existing.IsActive || existing.Shares <= 0 {
		e.log.Warn().Str("symbol", symbol).Msg("Sell without active holding, decision skipped")
		return nil, &SkippedDecision{TradeDecision: d, SkipReason: SkipNoActiveHolding}, cash, nil
	}

	// Classification must see the pre-mutation cost data.
	category, err := e.outcomes.RecordSellOutcome(*existing, price, d.Reason, at)
	if err != nil {
		return nil, nil, cash, fmt.Errorf("failed to record sell outcome for %s: %w", symbol, err)
	}

	proceeds := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(existing.Shares))

	if err := e.holdings.CloseOut(symbol, price, at); err != nil {
		return nil, nil, cash, err
	}

	cash = cash.Add(proceeds)
	if err := e.holdings.SetCashBalance(cash.InexactFloat64()); err != nil {
		return nil, nil, cash, err
	}

	e.log.Info().
		Str("symbol", symbol).
		Float64("shares", existing.Shares).
		Float64("exit_price", price).
		Str("category", category).
		Msg("Position sold")

	return &AppliedTrade{
		Action: ActionSell,
		Symbol: symbol,
		Shares: existing.Shares,
		Price:  price,
		Value:  proceeds.InexactFloat64(),
		Reason: d.Reason,
	}, nil, cash, nil
}

func (e *Engine) persistSkipped(runID string, skipped []SkippedDecision) error {
	if len(skipped) == 0 {
		return nil
	}
	return e.decisions.RecordSkipped(runID+"_skipped", skipped)
}
