package intake

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE digests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			run_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			headlines TEXT NOT NULL,
			insights TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE consumption_markers (
			digest_id INTEGER NOT NULL,
			consumer TEXT NOT NULL,
			run_id TEXT NOT NULL,
			consumed_at INTEGER NOT NULL,
			PRIMARY KEY (digest_id, consumer)
		);
	`)
	require.NoError(t, err)
	return db
}

func newTestRepo(t *testing.T) *DigestRepository {
	return NewDigestRepository(setupTestDB(t), zerolog.New(nil).Level(zerolog.Disabled))
}

func storeDigest(t *testing.T, repo *DigestRepository, source, runID string, at time.Time) int64 {
	id, err := repo.Store(&Digest{
		Source:    source,
		RunID:     runID,
		CreatedAt: at.Unix(),
		Headlines: []string{"headline one", "headline two"},
		Insights:  "markets drifted sideways",
	})
	require.NoError(t, err)
	return id
}

func TestUnconsumed_ConsumptionIsAtMostOnce(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	first := storeDigest(t, repo, "marketwatch", "intake-1", now.Add(-2*time.Hour))
	second := storeDigest(t, repo, "cnbc", "intake-2", now.Add(-time.Hour))

	unconsumed, err := repo.Unconsumed("execution")
	require.NoError(t, err)
	require.Len(t, unconsumed, 2)
	assert.Equal(t, first, unconsumed[0].ID)
	assert.Equal(t, second, unconsumed[1].ID)
	assert.Equal(t, []string{"headline one", "headline two"}, unconsumed[0].Headlines)

	require.NoError(t, repo.MarkConsumed([]int64{first}, "execution", "exec-1"))

	unconsumed, err = repo.Unconsumed("execution")
	require.NoError(t, err)
	require.Len(t, unconsumed, 1)
	assert.Equal(t, second, unconsumed[0].ID)

	// Marking again must not fail or duplicate.
	require.NoError(t, repo.MarkConsumed([]int64{first, second}, "execution", "exec-2"))

	unconsumed, err = repo.Unconsumed("execution")
	require.NoError(t, err)
	assert.Empty(t, unconsumed)
}

func TestUnconsumed_PerConsumerIsolation(t *testing.T) {
	repo := newTestRepo(t)
	id := storeDigest(t, repo, "marketwatch", "intake-1", time.Now())

	require.NoError(t, repo.MarkConsumed([]int64{id}, "execution", "exec-1"))

	forReview, err := repo.Unconsumed("review")
	require.NoError(t, err)
	assert.Len(t, forReview, 1)
}

func TestByRunID(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	a := storeDigest(t, repo, "marketwatch", "intake-1", now)
	storeDigest(t, repo, "cnbc", "intake-2", now)
	b := storeDigest(t, repo, "yahoo", "intake-1", now)

	digests, err := repo.ByRunID("intake-1")
	require.NoError(t, err)
	require.Len(t, digests, 2)
	assert.Equal(t, a, digests[0].ID)
	assert.Equal(t, b, digests[1].ID)
}

func TestSelectors(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	first := storeDigest(t, repo, "marketwatch", "intake-1", now)
	storeDigest(t, repo, "cnbc", "intake-2", now)
	require.NoError(t, repo.MarkConsumed([]int64{first}, "execution", "exec-1"))

	unconsumed, err := AllUnconsumed().Select(repo, "execution")
	require.NoError(t, err)
	require.Len(t, unconsumed, 1)
	assert.Equal(t, "cnbc", unconsumed[0].Source)

	byRun, err := ByRun("intake-1").Select(repo, "execution")
	require.NoError(t, err)
	require.Len(t, byRun, 1)
	assert.Equal(t, first, byRun[0].ID)
}

func TestMarkConsumed_EmptyIsNoOp(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.MarkConsumed(nil, "execution", "exec-1"))
}
