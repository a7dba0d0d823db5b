// Package clients holds the external collaborators: the advisory oracle and
// the market data price source.
package clients

import (
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/rs/zerolog"
)

// chartLookbacks are the historical windows tried, shortest first, when no
// live quote is available.
var chartLookbacks = []time.Duration{
	24 * time.Hour,
	5 * 24 * time.Hour,
	30 * 24 * time.Hour,
}

// PriceClient resolves current prices from Yahoo Finance. It tries the live
// quote first, then the previous close, then progressively longer historical
// windows. False means every strategy was exhausted.
type PriceClient struct {
	log zerolog.Logger
}

func NewPriceClient(log zerolog.Logger) *PriceClient {
	return &PriceClient{
		log: log.With().Str("client", "prices").Logger(),
	}
}

// Price returns the best available price for the symbol.
func (c *PriceClient) Price(symbol string) (float64, bool) {
	if price, ok := c.fromQuote(symbol); ok {
		return price, true
	}

	for _, lookback := range chartLookbacks {
		if price, ok := c.fromChart(symbol, lookback); ok {
			return price, true
		}
	}

	c.log.Warn().Str("symbol", symbol).Msg("All price strategies exhausted")
	return 0, false
}

func (c *PriceClient) fromQuote(symbol string) (float64, bool) {
	q, err := quote.Get(symbol)
	if err != nil || q == nil {
		if err != nil {
			c.log.Debug().Err(err).Str("symbol", symbol).Msg("Quote lookup failed")
		}
		return 0, false
	}
	if q.RegularMarketPrice > 0 {
		return q.RegularMarketPrice, true
	}
	if q.RegularMarketPreviousClose > 0 {
		return q.RegularMarketPreviousClose, true
	}
	return 0, false
}

// fromChart returns the close of the last bar within the lookback window.
func (c *PriceClient) fromChart(symbol string, lookback time.Duration) (float64, bool) {
	end := time.Now()
	start := end.Add(-lookback)

	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	lastClose := 0.0
	for iter.Next() {
		bar := iter.Bar()
		if close := bar.Close.InexactFloat64(); close > 0 {
			lastClose = close
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Debug().Err(err).Str("symbol", symbol).Dur("lookback", lookback).Msg("Chart lookup failed")
		return 0, false
	}
	if lastClose <= 0 {
		return 0, false
	}
	return lastClose, true
}
