package feedback

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/adobi/dtrader/internal/modules/ledger"
)

// Critic produces a short narrative critique of recent performance.
// Defined here so the oracle client stays decoupled from this package.
type Critic interface {
	Critique(summary *Summary, outcomes []TradeOutcome) (string, error)
}

// Service scores sells as they happen and periodically aggregates
// recent outcomes into a summary for the decision prompts.
type Service struct {
	outcomes *OutcomeRepository
	records  *FeedbackRepository
	critic   Critic
	log      zerolog.Logger
}

func NewService(outcomes *OutcomeRepository, records *FeedbackRepository, critic Critic, log zerolog.Logger) *Service {
	return &Service{
		outcomes: outcomes,
		records:  records,
		critic:   critic,
		log:      log.With().Str("service", "feedback").Logger(),
	}
}

// RecordSellOutcome scores a position being closed and appends the
// immutable outcome row. The holding must carry its pre-sale state.
// Returns the assigned category.
func (s *Service) RecordSellOutcome(h ledger.Holding, exitPrice float64, exitReason string, at time.Time) (string, error) {
	gainAmount := (exitPrice - h.AverageCost) * h.Shares
	gainPct := 0.0
	if h.AverageCost != 0 {
		gainPct = (exitPrice - h.AverageCost) / h.AverageCost
	}

	holdDays := 0
	if h.PurchasedAt != nil {
		held := at.Sub(time.Unix(*h.PurchasedAt, 0))
		if held > 0 {
			holdDays = int(held.Hours() / 24)
		}
	}

	category := Classify(h.AverageCost, exitPrice)
	outcome := &TradeOutcome{
		Symbol:           h.Symbol,
		CloseTime:        at.Unix(),
		EntryPrice:       h.AverageCost,
		ExitPrice:        exitPrice,
		Shares:           h.Shares,
		GainAmount:       gainAmount,
		GainPercentage:   gainPct,
		HoldDurationDays: holdDays,
		EntryReason:      h.Memo,
		ExitReason:       exitReason,
		Category:         category,
	}
	if _, err := s.outcomes.Insert(outcome); err != nil {
		return "", err
	}

	s.log.Info().
		Str("symbol", h.Symbol).
		Float64("gain", gainAmount).
		Str("category", string(category)).
		Msg("Recorded trade outcome")
	return string(category), nil
}

// Analyze aggregates outcomes closed within the lookback window and
// persists the resulting summary. A window with no closed trades still
// produces a record so the cadence of the review job stays visible.
func (s *Service) Analyze(lookbackDays int, at time.Time) (*Summary, error) {
	since := at.AddDate(0, 0, -lookbackDays).Unix()
	outcomes, err := s.outcomes.ListSince(since)
	if err != nil {
		return nil, err
	}

	summary := s.aggregate(outcomes, lookbackDays, at)

	critique, err := s.critic.Critique(summary, outcomes)
	if err != nil {
		s.log.Warn().Err(err).Msg("Critique unavailable, storing summary without one")
		critique = "No critique available for this period."
	}
	summary.Critique = critique

	id, err := s.records.Insert(summary)
	if err != nil {
		return nil, err
	}
	summary.ID = id

	s.log.Info().
		Int("trades", summary.TotalTrades).
		Float64("success_rate", summary.SuccessRate).
		Msg("Recorded performance summary")
	return summary, nil
}

// Latest returns the most recent stored summary, or nil when the
// review job has never completed.
func (s *Service) Latest() (*Summary, error) {
	return s.records.Latest()
}

// RecentOutcomes exposes the newest closed trades for the API.
func (s *Service) RecentOutcomes(limit int) ([]TradeOutcome, error) {
	return s.outcomes.ListRecent(limit)
}

func (s *Service) aggregate(outcomes []TradeOutcome, lookbackDays int, at time.Time) *Summary {
	summary := &Summary{
		AnalyzedAt:        at.Unix(),
		LookbackDays:      lookbackDays,
		TotalTrades:       len(outcomes),
		CategoryHistogram: map[string]int{},
	}
	if len(outcomes) == 0 {
		return summary
	}

	var gains []float64
	var profitableDays, unprofitableDays []float64
	profitable := 0
	for _, o := range outcomes {
		gains = append(gains, o.GainPercentage)
		summary.CategoryHistogram[string(o.Category)]++
		if o.GainAmount > 0 {
			profitable++
			profitableDays = append(profitableDays, float64(o.HoldDurationDays))
		} else {
			unprofitableDays = append(unprofitableDays, float64(o.HoldDurationDays))
		}
		switch o.Category {
		case SignificantProfit:
			if o.EntryReason != "" {
				summary.SuccessfulPatterns = append(summary.SuccessfulPatterns, o.EntryReason)
			}
		case SignificantLoss:
			if o.EntryReason != "" {
				summary.UnsuccessfulPatterns = append(summary.UnsuccessfulPatterns, o.EntryReason)
			}
		}
	}

	summary.SuccessRate = float64(profitable) / float64(len(outcomes))
	summary.AvgGainPercentage = stat.Mean(gains, nil)
	if len(profitableDays) > 0 {
		summary.AvgHoldDaysProfitable = stat.Mean(profitableDays, nil)
	}
	if len(unprofitableDays) > 0 {
		summary.AvgHoldDaysUnprofitable = stat.Mean(unprofitableDays, nil)
	}
	if math.IsNaN(summary.AvgGainPercentage) {
		summary.AvgGainPercentage = 0
	}
	return summary
}
