package snapshots

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/adobi/dtrader/internal/modules/ledger"
)

const snapshotColumns = `id, taken_at, total_value, cash_balance, total_invested,
	unrealized_gain_loss, percentage_gain, holdings_blob`

// Repository stores portfolio snapshots in the portfolio database.
type Repository struct {
	portfolioDB *sql.DB
	log         zerolog.Logger
}

func NewRepository(portfolioDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		portfolioDB: portfolioDB,
		log:         log.With().Str("repo", "snapshots").Logger(),
	}
}

// Record captures the given totals and holdings as a new snapshot.
func (r *Repository) Record(totals ledger.Totals, holdings []ledger.Holding, at time.Time) (int64, error) {
	blob, err := msgpack.Marshal(holdings)
	if err != nil {
		return 0, fmt.Errorf("failed to encode holdings blob: %w", err)
	}

	res, err := r.portfolioDB.Exec(`
		INSERT INTO portfolio_snapshots
		(taken_at, total_value, cash_balance, total_invested, unrealized_gain_loss, percentage_gain, holdings_blob)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		at.Unix(), totals.TotalValue, totals.CashBalance, totals.TotalInvested,
		totals.UnrealizedGainLoss, totals.PercentageGain, blob)
	if err != nil {
		return 0, fmt.Errorf("failed to record snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot id: %w", err)
	}

	r.log.Debug().Float64("total_value", totals.TotalValue).Msg("Snapshot recorded")
	return id, nil
}

// List returns snapshots taken at or after the given time, oldest first.
// Holdings blobs are decoded so the API can serve them directly.
func (r *Repository) List(since time.Time) ([]Snapshot, error) {
	rows, err := r.portfolioDB.Query(
		"SELECT "+snapshotColumns+" FROM portfolio_snapshots WHERE taken_at >= ? ORDER BY taken_at ASC",
		since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		var blob []byte
		if err := rows.Scan(&s.ID, &s.TakenAt, &s.TotalValue, &s.CashBalance,
			&s.TotalInvested, &s.UnrealizedGainLoss, &s.PercentageGain, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if len(blob) > 0 {
			if err := msgpack.Unmarshal(blob, &s.Holdings); err != nil {
				return nil, fmt.Errorf("failed to decode holdings blob for snapshot %d: %w", s.ID, err)
			}
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return snapshots, nil
}

// Latest returns the most recent snapshot, or nil when none exists.
func (r *Repository) Latest() (*Snapshot, error) {
	snapshots, err := r.List(time.Unix(0, 0))
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return &snapshots[len(snapshots)-1], nil
}
