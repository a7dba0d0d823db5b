package intake

// Selector picks the digests an execution cycle should consume. The scheduled
// job uses AllUnconsumed; a manual trigger can narrow to a single intake run.
type Selector interface {
	Select(repo *DigestRepository, consumer string) ([]Digest, error)
}

type allUnconsumedSelector struct{}

func (allUnconsumedSelector) Select(repo *DigestRepository, consumer string) ([]Digest, error) {
	return repo.Unconsumed(consumer)
}

// AllUnconsumed selects every digest the consumer has not processed yet.
func AllUnconsumed() Selector {
	return allUnconsumedSelector{}
}

type runSelector struct {
	runID string
}

func (s runSelector) Select(repo *DigestRepository, _ string) ([]Digest, error) {
	return repo.ByRunID(s.runID)
}

// ByRun selects the digests of one specific intake run regardless of
// consumption state.
func ByRun(runID string) Selector {
	return runSelector{runID: runID}
}
