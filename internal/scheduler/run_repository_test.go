package scheduler

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupRunRepo(t *testing.T) *RunRepository {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE run_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_type TEXT NOT NULL CHECK (job_type IN ('intake', 'execution', 'review')),
			correlation_id TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			end_time INTEGER,
			status TEXT NOT NULL DEFAULT 'running' CHECK (status IN ('running', 'completed', 'failed'))
		)
	`)
	require.NoError(t, err)

	return NewRunRepository(db, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestRunRepository_StartAndFinish(t *testing.T) {
	repo := setupRunRepo(t)
	start := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

	id, correlationID, err := repo.Start(JobTypeExecution, start)
	require.NoError(t, err)
	assert.NotEmpty(t, correlationID)

	records, err := repo.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, JobTypeExecution, records[0].JobType)
	assert.Equal(t, RunStatusRunning, records[0].Status)
	assert.Nil(t, records[0].EndTime)

	end := start.Add(2 * time.Minute)
	require.NoError(t, repo.Finish(id, RunStatusCompleted, end))

	records, err = repo.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, RunStatusCompleted, records[0].Status)
	require.NotNil(t, records[0].EndTime)
	assert.Equal(t, end.Unix(), *records[0].EndTime)
}

func TestRunRepository_CorrelationIDsAreUnique(t *testing.T) {
	repo := setupRunRepo(t)
	now := time.Now()

	_, first, err := repo.Start(JobTypeIntake, now)
	require.NoError(t, err)
	_, second, err := repo.Start(JobTypeIntake, now)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestRunRepository_ListRecentOrdersNewestFirst(t *testing.T) {
	repo := setupRunRepo(t)
	base := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

	_, _, err := repo.Start(JobTypeIntake, base)
	require.NoError(t, err)
	_, _, err = repo.Start(JobTypeReview, base.Add(time.Hour))
	require.NoError(t, err)

	records, err := repo.ListRecent(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, JobTypeReview, records[0].JobType)
}
