package feedback

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const summaryColumns = `id, analyzed_at, lookback_days, total_trades, success_rate,
	avg_gain_percentage, category_histogram, successful_patterns, unsuccessful_patterns,
	avg_hold_days_profitable, avg_hold_days_unprofitable, critique`

// FeedbackRepository persists analysis summaries in the ledger database.
// Structured fields that SQLite has no natural shape for (the histogram
// and the pattern lists) are stored as JSON text columns.
type FeedbackRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

func NewFeedbackRepository(ledgerDB *sql.DB, log zerolog.Logger) *FeedbackRepository {
	return &FeedbackRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "feedback").Logger(),
	}
}

// Insert appends one summary row and returns its id.
func (r *FeedbackRepository) Insert(s *Summary) (int64, error) {
	histogram, err := json.Marshal(s.CategoryHistogram)
	if err != nil {
		return 0, fmt.Errorf("failed to encode category histogram: %w", err)
	}
	successful, err := json.Marshal(s.SuccessfulPatterns)
	if err != nil {
		return 0, fmt.Errorf("failed to encode successful patterns: %w", err)
	}
	unsuccessful, err := json.Marshal(s.UnsuccessfulPatterns)
	if err != nil {
		return 0, fmt.Errorf("failed to encode unsuccessful patterns: %w", err)
	}

	res, err := r.ledgerDB.Exec(`
		INSERT INTO feedback_records (analyzed_at, lookback_days, total_trades, success_rate,
			avg_gain_percentage, category_histogram, successful_patterns, unsuccessful_patterns,
			avg_hold_days_profitable, avg_hold_days_unprofitable, critique)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.AnalyzedAt, s.LookbackDays, s.TotalTrades, s.SuccessRate,
		s.AvgGainPercentage, string(histogram), string(successful), string(unsuccessful),
		s.AvgHoldDaysProfitable, s.AvgHoldDaysUnprofitable, s.Critique)
	if err != nil {
		return 0, fmt.Errorf("failed to insert feedback record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get feedback record id: %w", err)
	}
	return id, nil
}

// Latest returns the most recent summary, or nil when none exists yet.
func (r *FeedbackRepository) Latest() (*Summary, error) {
	row := r.ledgerDB.QueryRow(
		"SELECT " + summaryColumns + " FROM feedback_records ORDER BY analyzed_at DESC, id DESC LIMIT 1")

	var s Summary
	var histogram, successful, unsuccessful string
	err := row.Scan(&s.ID, &s.AnalyzedAt, &s.LookbackDays, &s.TotalTrades, &s.SuccessRate,
		&s.AvgGainPercentage, &histogram, &successful, &unsuccessful,
		&s.AvgHoldDaysProfitable, &s.AvgHoldDaysUnprofitable, &s.Critique)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest feedback record: %w", err)
	}

	if err := json.Unmarshal([]byte(histogram), &s.CategoryHistogram); err != nil {
		return nil, fmt.Errorf("failed to decode category histogram: %w", err)
	}
	if err := json.Unmarshal([]byte(successful), &s.SuccessfulPatterns); err != nil {
		return nil, fmt.Errorf("failed to decode successful patterns: %w", err)
	}
	if err := json.Unmarshal([]byte(unsuccessful), &s.UnsuccessfulPatterns); err != nil {
		return nil, fmt.Errorf("failed to decode unsuccessful patterns: %w", err)
	}
	return &s, nil
}
