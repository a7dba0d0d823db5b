package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// PriceSource provides current prices for symbols. Defined here to avoid an
// import cycle with the clients package; nil result means every sub-strategy
// of the source was exhausted.
type PriceSource interface {
	Price(symbol string) (float64, bool)
}

// Service exposes portfolio-level reads and the price refresh cycle on top of
// the holding repository.
type Service struct {
	holdings *HoldingRepository
	prices   PriceSource
	log      zerolog.Logger
}

// NewService creates a new ledger service
func NewService(holdings *HoldingRepository, prices PriceSource, log zerolog.Logger) *Service {
	return &Service{
		holdings: holdings,
		prices:   prices,
		log:      log.With().Str("service", "ledger").Logger(),
	}
}

// Holdings returns all active holdings, cash row included.
func (s *Service) Holdings() ([]Holding, error) {
	return s.holdings.GetActive()
}

// Totals computes the portfolio summary over active holdings. The sum of
// market_value over active rows, cash included, is the total portfolio value.
func (s *Service) Totals() (Totals, error) {
	holdings, err := s.holdings.GetActive()
	if err != nil {
		return Totals{}, fmt.Errorf("failed to load holdings for totals: %w", err)
	}

	var t Totals
	for _, h := range holdings {
		if h.IsCash() {
			t.CashBalance = h.MarketValue
		} else {
			t.TotalInvested += h.CostBasis
			t.UnrealizedGainLoss += h.UnrealizedGainLoss
		}
		t.TotalValue += h.MarketValue
	}

	if t.TotalInvested > 0 {
		t.PercentageGain = t.UnrealizedGainLoss / t.TotalInvested * 100
	}

	return t, nil
}

// RefreshPrices re-marks every active non-cash holding from the price source.
// A symbol whose price cannot be obtained keeps its last known mark; the
// refresh continues with the remaining symbols.
func (s *Service) RefreshPrices(at time.Time) (updated int, failed []string, err error) {
	holdings, err := s.holdings.GetActive()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load holdings for refresh: %w", err)
	}

	for _, h := range holdings {
		if h.IsCash() {
			continue
		}

		price, ok := s.prices.Price(h.Symbol)
		if !ok {
			s.log.Warn().
				Str("symbol", h.Symbol).
				Float64("last_known", h.CurrentPrice).
				Msg("No price available, keeping last known mark")
			failed = append(failed, h.Symbol)
			continue
		}

		if err := s.holdings.UpdatePrice(h.Symbol, price, at); err != nil {
			return updated, failed, err
		}
		updated++
	}

	s.log.Info().Int("updated", updated).Int("failed", len(failed)).Msg("Price refresh completed")
	return updated, failed, nil
}

// PromptSnapshot renders active non-cash holdings as the plain-text block the
// advisory oracle receives with each decision request.
func (s *Service) PromptSnapshot() (string, error) {
	holdings, err := s.holdings.GetActive()
	if err != nil {
		return "", fmt.Errorf("failed to load holdings for prompt: %w", err)
	}

	var lines []string
	for _, h := range holdings {
		if h.IsCash() {
			continue
		}
		lines = append(lines, fmt.Sprintf(
			"%s: %.0f shares at $%.2f -> Current: $%.2f (Gain/Loss: $%.2f) (Reason: %s)",
			h.Symbol, h.Shares, h.AverageCost, h.CurrentPrice, h.UnrealizedGainLoss, h.Memo,
		))
	}

	if len(lines) == 0 {
		return "No current holdings.", nil
	}
	return strings.Join(lines, "\n"), nil
}
