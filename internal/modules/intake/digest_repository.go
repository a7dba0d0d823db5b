package intake

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adobi/dtrader/internal/database"
)

const digestColumns = "id, source, run_id, created_at, headlines, insights"

// DigestRepository stores digests and their consumption markers in the cache
// database. The (digest_id, consumer) primary key makes consumption
// at-most-once: a second MarkConsumed for the same pair is a no-op.
type DigestRepository struct {
	cacheDB *sql.DB
	log     zerolog.Logger
}

func NewDigestRepository(cacheDB *sql.DB, log zerolog.Logger) *DigestRepository {
	return &DigestRepository{
		cacheDB: cacheDB,
		log:     log.With().Str("repo", "digests").Logger(),
	}
}

// Store persists a digest and returns its id.
func (r *DigestRepository) Store(d *Digest) (int64, error) {
	headlines, err := json.Marshal(d.Headlines)
	if err != nil {
		return 0, fmt.Errorf("failed to encode headlines: %w", err)
	}

	res, err := r.cacheDB.Exec(`
		INSERT INTO digests (source, run_id, created_at, headlines, insights)
		VALUES (?, ?, ?, ?, ?)`,
		d.Source, d.RunID, d.CreatedAt, string(headlines), d.Insights)
	if err != nil {
		return 0, fmt.Errorf("failed to store digest from %s: %w", d.Source, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get digest id: %w", err)
	}
	return id, nil
}

// Unconsumed returns digests the given consumer has not marked yet, oldest
// first so the decision prompt reads chronologically.
func (r *DigestRepository) Unconsumed(consumer string) ([]Digest, error) {
	rows, err := r.cacheDB.Query(`
		SELECT `+digestColumns+` FROM digests d
		WHERE NOT EXISTS (
			SELECT 1 FROM consumption_markers m
			WHERE m.digest_id = d.id AND m.consumer = ?
		)
		ORDER BY d.created_at ASC, d.id ASC`,
		consumer)
	if err != nil {
		return nil, fmt.Errorf("failed to query unconsumed digests: %w", err)
	}
	defer rows.Close()
	return scanDigests(rows)
}

// ByRunID returns the digests produced by one intake run, consumed or not.
func (r *DigestRepository) ByRunID(runID string) ([]Digest, error) {
	rows, err := r.cacheDB.Query(
		"SELECT "+digestColumns+" FROM digests WHERE run_id = ? ORDER BY id ASC",
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query digests for run %s: %w", runID, err)
	}
	defer rows.Close()
	return scanDigests(rows)
}

// ListRecent returns the newest digests for the API.
func (r *DigestRepository) ListRecent(limit int) ([]Digest, error) {
	rows, err := r.cacheDB.Query(
		"SELECT "+digestColumns+" FROM digests ORDER BY created_at DESC, id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent digests: %w", err)
	}
	defer rows.Close()
	return scanDigests(rows)
}

// MarkConsumed records consumption of the given digests by one consumer.
// Digests already marked by the same consumer are left untouched, so
// retries after a partial failure are safe.
func (r *DigestRepository) MarkConsumed(ids []int64, consumer, runID string) error {
	if len(ids) == 0 {
		return nil
	}

	now := time.Now().Unix()
	err := database.WithTransaction(r.cacheDB, func(tx *sql.Tx) error {
		for _, id := range ids {
			_, err := tx.Exec(`
				INSERT INTO consumption_markers (digest_id, consumer, run_id, consumed_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (digest_id, consumer) DO NOTHING`,
				id, consumer, runID, now)
			if err != nil {
				return fmt.Errorf("failed to mark digest %d consumed: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().Int("count", len(ids)).Str("consumer", consumer).Msg("Digests marked consumed")
	return nil
}

func scanDigests(rows *sql.Rows) ([]Digest, error) {
	var digests []Digest
	for rows.Next() {
		var d Digest
		var headlines string
		if err := rows.Scan(&d.ID, &d.Source, &d.RunID, &d.CreatedAt, &headlines, &d.Insights); err != nil {
			return nil, fmt.Errorf("failed to scan digest: %w", err)
		}
		if strings.TrimSpace(headlines) != "" {
			if err := json.Unmarshal([]byte(headlines), &d.Headlines); err != nil {
				return nil, fmt.Errorf("failed to decode headlines for digest %d: %w", d.ID, err)
			}
		}
		digests = append(digests, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate digests: %w", err)
	}
	return digests, nil
}
