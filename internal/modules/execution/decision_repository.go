package execution

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/adobi/dtrader/internal/database"
)

// DecisionRepository persists decision batches and skipped decisions in the
// append-only ledger database. Rows are facts and are never updated.
type DecisionRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(ledgerDB *sql.DB, log zerolog.Logger) *DecisionRepository {
	return &DecisionRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "decision").Logger(),
	}
}

// RecordBatch stores a decision batch under its run id.
func (r *DecisionRepository) RecordBatch(runID string, decisions []TradeDecision) error {
	now := time.Now().Unix()

	err := database.WithTransaction(r.ledgerDB, func(tx *sql.Tx) error {
		for _, d := range decisions {
			_, err := tx.Exec(`
				INSERT INTO trade_decisions (run_id, recorded_at, action, symbol, amount_usd, reason)
				VALUES (?, ?, ?, ?, ?, ?)`,
				runID, now, string(d.Action), d.Symbol, d.AmountUSD, d.Reason,
			)
			if err != nil {
				return fmt.Errorf("failed to record decision: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().Str("run_id", runID).Int("count", len(decisions)).Msg("Decision batch recorded")
	return nil
}

// RecordSkipped stores skipped decisions for audit under the batch's run id.
func (r *DecisionRepository) RecordSkipped(runID string, skipped []SkippedDecision) error {
	if len(skipped) == 0 {
		return nil
	}
	now := time.Now().Unix()

	err := database.WithTransaction(r.ledgerDB, func(tx *sql.Tx) error {
		for _, s := range skipped {
			_, err := tx.Exec(`
				INSERT INTO skipped_decisions (run_id, recorded_at, action, symbol, amount_usd, reason, skip_reason)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runID, now, string(s.Action), s.Symbol, s.AmountUSD, s.Reason, s.SkipReason,
			)
			if err != nil {
				return fmt.Errorf("failed to record skipped decision: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().Str("run_id", runID).Int("count", len(skipped)).Msg("Skipped decisions recorded")
	return nil
}

// ListSkipped returns the most recent skipped decisions, newest first.
func (r *DecisionRepository) ListSkipped(limit int) ([]SkippedDecision, error) {
	rows, err := r.ledgerDB.Query(`
		SELECT action, symbol, amount_usd, reason, skip_reason
		FROM skipped_decisions
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query skipped decisions: %w", err)
	}
	defer rows.Close()

	var result []SkippedDecision
	for rows.Next() {
		var s SkippedDecision
		var action string
		if err := rows.Scan(&action, &s.Symbol, &s.AmountUSD, &s.Reason, &s.SkipReason); err != nil {
			return nil, fmt.Errorf("failed to scan skipped decision: %w", err)
		}
		s.Action = Action(action)
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating skipped decisions: %w", err)
	}

	return result, nil
}
