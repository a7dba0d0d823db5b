package feedback

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/adobi/dtrader/internal/modules/ledger"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE trade_outcomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			close_time INTEGER NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL NOT NULL,
			shares REAL NOT NULL,
			gain_amount REAL NOT NULL,
			gain_percentage REAL NOT NULL,
			hold_duration_days INTEGER NOT NULL,
			entry_reason TEXT NOT NULL DEFAULT '',
			exit_reason TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE feedback_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			analyzed_at INTEGER NOT NULL,
			lookback_days INTEGER NOT NULL,
			total_trades INTEGER NOT NULL,
			success_rate REAL NOT NULL,
			avg_gain_percentage REAL NOT NULL,
			category_histogram TEXT NOT NULL,
			successful_patterns TEXT NOT NULL,
			unsuccessful_patterns TEXT NOT NULL,
			avg_hold_days_profitable REAL NOT NULL DEFAULT 0,
			avg_hold_days_unprofitable REAL NOT NULL DEFAULT 0,
			critique TEXT NOT NULL DEFAULT ''
		);
	`)
	require.NoError(t, err)
	return db
}

type stubCritic struct {
	critique string
	err      error
}

func (c *stubCritic) Critique(_ *Summary, _ []TradeOutcome) (string, error) {
	return c.critique, c.err
}

func newTestService(t *testing.T, critic Critic) (*Service, *sql.DB) {
	db := setupTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	svc := NewService(NewOutcomeRepository(db, log), NewFeedbackRepository(db, log), critic, log)
	return svc, db
}

func TestRecordSellOutcome_ScoresAndPersists(t *testing.T) {
	svc, db := newTestService(t, &stubCritic{})
	defer db.Close()

	purchased := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC).Unix()
	h := ledger.Holding{
		Symbol:      "NVDA",
		Shares:      4,
		AverageCost: 100,
		Memo:        "strong datacenter demand",
		PurchasedAt: &purchased,
	}
	closedAt := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	category, err := svc.RecordSellOutcome(h, 112, "taking profit", closedAt)
	require.NoError(t, err)
	assert.Equal(t, string(SignificantProfit), category)

	outcomes, err := svc.RecentOutcomes(10)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	o := outcomes[0]
	assert.Equal(t, "NVDA", o.Symbol)
	assert.InDelta(t, 48.0, o.GainAmount, 1e-9)
	assert.InDelta(t, 0.12, o.GainPercentage, 1e-9)
	assert.Equal(t, 10, o.HoldDurationDays)
	assert.Equal(t, "strong datacenter demand", o.EntryReason)
	assert.Equal(t, "taking profit", o.ExitReason)
}

func TestRecordSellOutcome_NoPurchaseDate(t *testing.T) {
	svc, db := newTestService(t, &stubCritic{})
	defer db.Close()

	h := ledger.Holding{Symbol: "AAPL", Shares: 2, AverageCost: 200}
	_, err := svc.RecordSellOutcome(h, 190, "cutting exposure", time.Now())
	require.NoError(t, err)

	outcomes, err := svc.RecentOutcomes(1)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, 0, outcomes[0].HoldDurationDays)
	assert.Equal(t, ModerateLoss, outcomes[0].Category)
}

func TestAnalyze_AggregatesWindow(t *testing.T) {
	svc, db := newTestService(t, &stubCritic{critique: "lean into winners"})
	defer db.Close()

	now := time.Date(2026, 3, 1, 16, 30, 0, 0, time.UTC)
	purchased := now.AddDate(0, 0, -12).Unix()

	sells := []struct {
		symbol string
		entry  float64
		exit   float64
		memo   string
	}{
		{"NVDA", 100, 110, "ai capex cycle"},
		{"AAPL", 200, 202, "services growth"},
		{"XOM", 100, 85, "crude rally"},
	}
	for _, s := range sells {
		h := ledger.Holding{Symbol: s.symbol, Shares: 1, AverageCost: s.entry, Memo: s.memo, PurchasedAt: &purchased}
		_, err := svc.RecordSellOutcome(h, s.exit, "rebalance", now.AddDate(0, 0, -2))
		require.NoError(t, err)
	}

	summary, err := svc.Analyze(30, now)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalTrades)
	assert.InDelta(t, 2.0/3.0, summary.SuccessRate, 1e-9)
	assert.InDelta(t, (0.10+0.01-0.15)/3, summary.AvgGainPercentage, 1e-9)
	assert.Equal(t, 1, summary.CategoryHistogram[string(SignificantProfit)])
	assert.Equal(t, 1, summary.CategoryHistogram[string(ModerateProfit)])
	assert.Equal(t, 1, summary.CategoryHistogram[string(SignificantLoss)])
	assert.Equal(t, []string{"ai capex cycle"}, summary.SuccessfulPatterns)
	assert.Equal(t, []string{"crude rally"}, summary.UnsuccessfulPatterns)
	assert.Equal(t, "lean into winners", summary.Critique)

	latest, err := svc.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, summary.TotalTrades, latest.TotalTrades)
	assert.Equal(t, summary.Critique, latest.Critique)
}

func TestAnalyze_ExcludesOutcomesOutsideWindow(t *testing.T) {
	svc, db := newTestService(t, &stubCritic{})
	defer db.Close()

	now := time.Now()
	h := ledger.Holding{Symbol: "TSLA", Shares: 1, AverageCost: 300}
	_, err := svc.RecordSellOutcome(h, 330, "momentum", now.AddDate(0, 0, -45))
	require.NoError(t, err)

	summary, err := svc.Analyze(30, now)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalTrades)
	assert.Zero(t, summary.AvgGainPercentage)
}

func TestAnalyze_CriticFailureFallsBack(t *testing.T) {
	svc, db := newTestService(t, &stubCritic{err: errors.New("oracle unreachable")})
	defer db.Close()

	summary, err := svc.Analyze(30, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "No critique available for this period.", summary.Critique)

	latest, err := svc.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, summary.Critique, latest.Critique)
}

func TestLatest_EmptyReturnsNil(t *testing.T) {
	svc, db := newTestService(t, &stubCritic{})
	defer db.Close()

	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Nil(t, latest)
}
