// Package intake collects news digests from configured sources and hands them
// to the execution cycle exactly once per consumer.
package intake

// Digest is one summarized news bundle from a single source run.
type Digest struct {
	ID        int64    `json:"id"`
	Source    string   `json:"source"`
	RunID     string   `json:"run_id"`
	CreatedAt int64    `json:"created_at"`
	Headlines []string `json:"headlines"`
	Insights  string   `json:"insights"`
}

// Source is a configured news page the intake job fetches.
type Source struct {
	Name string
	URL  string
}
