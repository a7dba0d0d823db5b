// Package snapshots records periodic portfolio value snapshots for charting.
package snapshots

import "github.com/adobi/dtrader/internal/modules/ledger"

// Snapshot is one point on the portfolio value timeline. Holdings carries the
// full holdings state at capture time, stored as a msgpack blob.
type Snapshot struct {
	ID                 int64            `json:"id"`
	TakenAt            int64            `json:"taken_at"`
	TotalValue         float64          `json:"total_value"`
	CashBalance        float64          `json:"cash_balance"`
	TotalInvested      float64          `json:"total_invested"`
	UnrealizedGainLoss float64          `json:"unrealized_gain_loss"`
	PercentageGain     float64          `json:"percentage_gain"`
	Holdings           []ledger.Holding `json:"holdings,omitempty"`
}
