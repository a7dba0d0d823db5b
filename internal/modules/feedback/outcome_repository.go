package feedback

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const outcomeColumns = `id, symbol, close_time, entry_price, exit_price, shares,
	gain_amount, gain_percentage, hold_duration_days, entry_reason, exit_reason, category`

// OutcomeRepository persists immutable trade outcomes in the ledger database.
type OutcomeRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

func NewOutcomeRepository(ledgerDB *sql.DB, log zerolog.Logger) *OutcomeRepository {
	return &OutcomeRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "outcomes").Logger(),
	}
}

// Insert appends one outcome row and returns its id.
func (r *OutcomeRepository) Insert(o *TradeOutcome) (int64, error) {
	res, err := r.ledgerDB.Exec(`
		INSERT INTO trade_outcomes (symbol, close_time, entry_price, exit_price, shares,
			gain_amount, gain_percentage, hold_duration_days, entry_reason, exit_reason, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Symbol, o.CloseTime, o.EntryPrice, o.ExitPrice, o.Shares,
		o.GainAmount, o.GainPercentage, o.HoldDurationDays, o.EntryReason, o.ExitReason, string(o.Category),
		time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade outcome for %s: %w", o.Symbol, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get outcome id: %w", err)
	}
	return id, nil
}

// ListSince returns outcomes closed at or after the given Unix timestamp,
// oldest first.
func (r *OutcomeRepository) ListSince(since int64) ([]TradeOutcome, error) {
	rows, err := r.ledgerDB.Query(
		"SELECT "+outcomeColumns+" FROM trade_outcomes WHERE close_time >= ? ORDER BY close_time ASC",
		since)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade outcomes: %w", err)
	}
	defer rows.Close()
	return scanOutcomes(rows)
}

// ListRecent returns the most recently closed outcomes, newest first.
func (r *OutcomeRepository) ListRecent(limit int) ([]TradeOutcome, error) {
	rows, err := r.ledgerDB.Query(
		"SELECT "+outcomeColumns+" FROM trade_outcomes ORDER BY close_time DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent outcomes: %w", err)
	}
	defer rows.Close()
	return scanOutcomes(rows)
}

func scanOutcomes(rows *sql.Rows) ([]TradeOutcome, error) {
	var outcomes []TradeOutcome
	for rows.Next() {
		var o TradeOutcome
		var category string
		if err := rows.Scan(&o.ID, &o.Symbol, &o.CloseTime, &o.EntryPrice, &o.ExitPrice,
			&o.Shares, &o.GainAmount, &o.GainPercentage, &o.HoldDurationDays,
			&o.EntryReason, &o.ExitReason, &category); err != nil {
			return nil, fmt.Errorf("failed to scan trade outcome: %w", err)
		}
		o.Category = Category(category)
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trade outcomes: %w", err)
	}
	return outcomes, nil
}
