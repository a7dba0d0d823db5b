package scheduler

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Job types recorded per run.
const (
	JobTypeIntake    = "intake"
	JobTypeExecution = "execution"
	JobTypeReview    = "review"
)

// Run statuses. A crash mid-run leaves the record at "running"; nothing
// gates on run records, so stale ones are an operator signal only.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunRecord is one observed job execution.
type RunRecord struct {
	ID            int64  `json:"id"`
	JobType       string `json:"job_type"`
	CorrelationID string `json:"correlation_id"`
	StartTime     int64  `json:"start_time"`
	EndTime       *int64 `json:"end_time,omitempty"`
	Status        string `json:"status"`
}

// RunRepository persists run records in the cache database.
type RunRepository struct {
	cacheDB *sql.DB
	log     zerolog.Logger
}

func NewRunRepository(cacheDB *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		cacheDB: cacheDB,
		log:     log.With().Str("repo", "runs").Logger(),
	}
}

// Start opens a run record and returns its id and a fresh correlation id.
func (r *RunRepository) Start(jobType string, at time.Time) (int64, string, error) {
	correlationID := uuid.New().String()
	res, err := r.cacheDB.Exec(`
		INSERT INTO run_records (job_type, correlation_id, start_time, status)
		VALUES (?, ?, ?, ?)`,
		jobType, correlationID, at.Unix(), RunStatusRunning)
	if err != nil {
		return 0, "", fmt.Errorf("failed to start run record for %s: %w", jobType, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", fmt.Errorf("failed to get run record id: %w", err)
	}
	return id, correlationID, nil
}

// Finish closes a run record with the given terminal status.
func (r *RunRepository) Finish(id int64, status string, at time.Time) error {
	_, err := r.cacheDB.Exec(
		"UPDATE run_records SET end_time = ?, status = ? WHERE id = ?",
		at.Unix(), status, id)
	if err != nil {
		return fmt.Errorf("failed to finish run record %d: %w", id, err)
	}
	return nil
}

// ListRecent returns the newest run records, newest first.
func (r *RunRepository) ListRecent(limit int) ([]RunRecord, error) {
	rows, err := r.cacheDB.Query(`
		SELECT id, job_type, correlation_id, start_time, end_time, status
		FROM run_records ORDER BY start_time DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run records: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var endTime sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.JobType, &rec.CorrelationID, &rec.StartTime, &endTime, &rec.Status); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		if endTime.Valid {
			rec.EndTime = &endTime.Int64
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run records: %w", err)
	}
	return records, nil
}
