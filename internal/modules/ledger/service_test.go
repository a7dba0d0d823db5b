package ledger

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPrices struct {
	prices map[string]float64
}

func (s *stubPrices) Price(symbol string) (float64, bool) {
	p, ok := s.prices[symbol]
	return p, ok
}

func newTestService(t *testing.T, prices *stubPrices) (*Service, *HoldingRepository) {
	db := setupTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewHoldingRepository(db, log)
	return NewService(repo, prices, log), repo
}

func TestTotals(t *testing.T) {
	svc, repo := newTestService(t, &stubPrices{})
	at := time.Date(2026, 2, 3, 10, 30, 0, 0, time.UTC)

	require.NoError(t, repo.EnsureCash(10000))
	require.NoError(t, repo.Insert("NVDA", 5, 100, "entry", at))
	require.NoError(t, repo.UpdatePrice("NVDA", 120, at))
	require.NoError(t, repo.SetCashBalance(9500))

	totals, err := svc.Totals()
	require.NoError(t, err)
	assert.Equal(t, 9500.0, totals.CashBalance)
	assert.Equal(t, 500.0, totals.TotalInvested)
	assert.InDelta(t, 100.0, totals.UnrealizedGainLoss, 1e-9)
	assert.InDelta(t, 10100.0, totals.TotalValue, 1e-9)
	assert.InDelta(t, 20.0, totals.PercentageGain, 1e-9)
}

func TestTotals_CashOnly(t *testing.T) {
	svc, repo := newTestService(t, &stubPrices{})
	require.NoError(t, repo.EnsureCash(10000))

	totals, err := svc.Totals()
	require.NoError(t, err)
	assert.Equal(t, 10000.0, totals.CashBalance)
	assert.Equal(t, 10000.0, totals.TotalValue)
	assert.Zero(t, totals.TotalInvested)
	assert.Zero(t, totals.PercentageGain)
}

func TestRefreshPrices_KeepsLastKnownMarkOnFailure(t *testing.T) {
	prices := &stubPrices{prices: map[string]float64{"NVDA": 130}}
	svc, repo := newTestService(t, prices)
	at := time.Date(2026, 2, 3, 10, 30, 0, 0, time.UTC)

	require.NoError(t, repo.EnsureCash(10000))
	require.NoError(t, repo.Insert("NVDA", 5, 100, "entry", at))
	require.NoError(t, repo.Insert("AAPL", 2, 200, "entry", at))

	updated, failed, err := svc.RefreshPrices(at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, []string{"AAPL"}, failed)

	nvda, err := repo.Get("NVDA")
	require.NoError(t, err)
	assert.Equal(t, 130.0, nvda.CurrentPrice)

	aapl, err := repo.Get("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 200.0, aapl.CurrentPrice)
}

func TestPromptSnapshot(t *testing.T) {
	svc, repo := newTestService(t, &stubPrices{})
	at := time.Date(2026, 2, 3, 10, 30, 0, 0, time.UTC)

	require.NoError(t, repo.EnsureCash(10000))
	require.NoError(t, repo.Insert("NVDA", 5, 100, "ai demand", at))
	require.NoError(t, repo.UpdatePrice("NVDA", 120, at))

	text, err := svc.PromptSnapshot()
	require.NoError(t, err)
	assert.Equal(t, "NVDA: 5 shares at $100.00 -> Current: $120.00 (Gain/Loss: $100.00) (Reason: ai demand)", text)
}

func TestPromptSnapshot_Empty(t *testing.T) {
	svc, repo := newTestService(t, &stubPrices{})
	require.NoError(t, repo.EnsureCash(10000))

	text, err := svc.PromptSnapshot()
	require.NoError(t, err)
	assert.Equal(t, "No current holdings.", text)
}
