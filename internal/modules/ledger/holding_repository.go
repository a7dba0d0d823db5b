package ledger

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// holdingsColumns is the list of columns for the holdings table.
// Used to avoid SELECT * which can break when schema changes.
// Column order must match scanHolding().
const holdingsColumns = `symbol, shares, average_cost, cost_basis, current_price,
	current_price_at, market_value, unrealized_gain_loss, is_active, memo, purchased_at`

// HoldingRepository handles holding database operations. All mutation funnels
// through the execution engine's batch entry point; the repository itself only
// performs the individual read-modify-write steps.
type HoldingRepository struct {
	portfolioDB *sql.DB
	log         zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(portfolioDB *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		portfolioDB: portfolioDB,
		log:         log.With().Str("repo", "holding").Logger(),
	}
}

// EnsureCash makes sure the synthetic cash row exists, seeding it with the
// initial funds on first run.
func (r *HoldingRepository) EnsureCash(initialFunds float64) error {
	var exists int
	err := r.portfolioDB.QueryRow("SELECT COUNT(*) FROM holdings WHERE symbol = ?", CashSymbol).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check cash row: %w", err)
	}
	if exists > 0 {
		return nil
	}

	now := time.Now().Unix()
	_, err = r.portfolioDB.Exec(`
		INSERT INTO holdings
		(symbol, shares, average_cost, cost_basis, current_price, current_price_at,
		 market_value, unrealized_gain_loss, is_active, memo, purchased_at, created_at, updated_at)
		VALUES (?, 1, ?, ?, ?, ?, ?, 0, 1, 'Initial cash', ?, ?, ?)`,
		CashSymbol, initialFunds, initialFunds, initialFunds, now, initialFunds, now, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to seed cash row: %w", err)
	}

	r.log.Info().Float64("initial_funds", initialFunds).Msg("Cash row seeded")
	return nil
}

// GetActive returns all active holdings, cash row included.
func (r *HoldingRepository) GetActive() ([]Holding, error) {
	query := "SELECT " + holdingsColumns + " FROM holdings WHERE is_active = 1 ORDER BY symbol"

	rows, err := r.portfolioDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// Get returns a holding by symbol, active or not. Returns nil when the symbol
// has never been seen.
func (r *HoldingRepository) Get(symbol string) (*Holding, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	query := "SELECT " + holdingsColumns + " FROM holdings WHERE symbol = ?"

	rows, err := r.portfolioDB.Query(query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding %s: %w", symbol, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}

	h, err := scanHolding(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan holding %s: %w", symbol, err)
	}

	return &h, nil
}

// CashBalance returns the free cash balance from the cash row.
func (r *HoldingRepository) CashBalance() (float64, error) {
	var balance float64
	err := r.portfolioDB.QueryRow(
		"SELECT market_value FROM holdings WHERE symbol = ?", CashSymbol,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to read cash balance: %w", err)
	}
	return balance, nil
}

// SetCashBalance rewrites the cash row to the given balance, preserving the
// shares == 1 invariant.
func (r *HoldingRepository) SetCashBalance(balance float64) error {
	now := time.Now().Unix()
	result, err := r.portfolioDB.Exec(`
		UPDATE holdings SET
			average_cost = ?,
			cost_basis = ?,
			current_price = ?,
			market_value = ?,
			current_price_at = ?,
			updated_at = ?
		WHERE symbol = ?`,
		balance, balance, balance, balance, now, now, CashSymbol,
	)
	if err != nil {
		return fmt.Errorf("failed to update cash balance: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("cash row missing, cannot set balance")
	}

	r.log.Debug().Float64("balance", balance).Msg("Cash balance updated")
	return nil
}

// Insert creates a new active holding for a first-time buy.
func (r *HoldingRepository) Insert(symbol string, shares, price float64, memo string, at time.Time) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	now := at.Unix()
	spend := shares * price

	_, err := r.portfolioDB.Exec(`
		INSERT INTO holdings
		(symbol, shares, average_cost, cost_basis, current_price, current_price_at,
		 market_value, unrealized_gain_loss, is_active, memo, purchased_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, 1, ?, ?, ?, ?)`,
		symbol, shares, price, spend, price, now, spend, memo, now, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert holding %s: %w", symbol, err)
	}

	r.log.Info().Str("symbol", symbol).Float64("shares", shares).Float64("price", price).Msg("New position opened")
	return nil
}

// AccumulateBuy merges an additional buy into an existing active holding using
// a shares-weighted average cost. The cost basis is tracked explicitly rather
// than recomputed so rounding never drifts it away from the cash actually spent.
func (r *HoldingRepository) AccumulateBuy(h *Holding, shares, price float64, memo string, at time.Time) error {
	now := at.Unix()
	spend := shares * price

	newShares := h.Shares + shares
	newCostBasis := h.CostBasis + spend
	newAverageCost := newCostBasis / newShares
	newMarketValue := newShares * price
	newUnrealized := newMarketValue - newCostBasis

	newMemo := h.Memo
	if newMemo != "" {
		newMemo += " + "
	}
	newMemo += memo

	_, err := r.portfolioDB.Exec(`
		UPDATE holdings SET
			shares = ?,
			average_cost = ?,
			cost_basis = ?,
			current_price = ?,
			current_price_at = ?,
			market_value = ?,
			unrealized_gain_loss = ?,
			memo = ?,
			updated_at = ?
		WHERE symbol = ?`,
		newShares, newAverageCost, newCostBasis, price, now, newMarketValue, newUnrealized, newMemo, now, h.Symbol,
	)
	if err != nil {
		return fmt.Errorf("failed to accumulate buy for %s: %w", h.Symbol, err)
	}

	r.log.Info().
		Str("symbol", h.Symbol).
		Float64("added_shares", shares).
		Float64("total_shares", newShares).
		Float64("average_cost", newAverageCost).
		Msg("Position accumulated")
	return nil
}

// Reopen resets an inactive holding as a brand-new position. Prior cost and
// realized history on the row are discarded; the closed trade already produced
// its outcome record when the position was sold.
func (r *HoldingRepository) Reopen(symbol string, shares, price float64, memo string, at time.Time) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	now := at.Unix()
	spend := shares * price

	_, err := r.portfolioDB.Exec(`
		UPDATE holdings SET
			shares = ?,
			average_cost = ?,
			cost_basis = ?,
			current_price = ?,
			current_price_at = ?,
			market_value = ?,
			unrealized_gain_loss = 0,
			is_active = 1,
			memo = ?,
			purchased_at = ?,
			updated_at = ?
		WHERE symbol = ?`,
		shares, price, spend, price, now, spend, memo, now, now, symbol,
	)
	if err != nil {
		return fmt.Errorf("failed to reopen holding %s: %w", symbol, err)
	}

	r.log.Info().Str("symbol", symbol).Float64("shares", shares).Float64("price", price).Msg("Position reopened")
	return nil
}

// CloseOut liquidates a holding: shares drop to zero and the row is
// deactivated, keeping the final mark for the audit trail.
func (r *HoldingRepository) CloseOut(symbol string, exitPrice float64, at time.Time) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	now := at.Unix()

	_, err := r.portfolioDB.Exec(`
		UPDATE holdings SET
			shares = 0,
			current_price = ?,
			current_price_at = ?,
			market_value = 0,
			unrealized_gain_loss = 0,
			is_active = 0,
			updated_at = ?
		WHERE symbol = ?`,
		exitPrice, now, now, symbol,
	)
	if err != nil {
		return fmt.Errorf("failed to close out holding %s: %w", symbol, err)
	}

	r.log.Info().Str("symbol", symbol).Float64("exit_price", exitPrice).Msg("Position closed")
	return nil
}

// UpdatePrice stores a new mark price and recomputes market value and
// unrealized P/L for the holding.
func (r *HoldingRepository) UpdatePrice(symbol string, price float64, at time.Time) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	now := at.Unix()

	result, err := r.portfolioDB.Exec(`
		UPDATE holdings SET
			current_price = ?,
			current_price_at = ?,
			market_value = shares * ?,
			unrealized_gain_loss = shares * ? - cost_basis,
			updated_at = ?
		WHERE symbol = ? AND is_active = 1 AND symbol != ?`,
		price, now, price, price, now, symbol, CashSymbol,
	)
	if err != nil {
		return fmt.Errorf("failed to update price for %s: %w", symbol, err)
	}

	affected, _ := result.RowsAffected()
	r.log.Debug().
		Str("symbol", symbol).
		Float64("price", price).
		Int64("rows_affected", affected).
		Msg("Holding price updated")

	return nil
}

// scanHolding scans a database row into a Holding struct.
// Column order must match holdingsColumns.
func scanHolding(rows *sql.Rows) (Holding, error) {
	var h Holding
	var priceAt, purchasedAt sql.NullInt64
	var active int64

	err := rows.Scan(
		&h.Symbol,
		&h.Shares,
		&h.AverageCost,
		&h.CostBasis,
		&h.CurrentPrice,
		&priceAt,
		&h.MarketValue,
		&h.UnrealizedGainLoss,
		&active,
		&h.Memo,
		&purchasedAt,
	)
	if err != nil {
		return h, err
	}

	h.IsActive = active != 0
	if priceAt.Valid {
		h.CurrentPriceAt = &priceAt.Int64
	}
	if purchasedAt.Valid {
		h.PurchasedAt = &purchasedAt.Int64
	}

	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	return h, nil
}
