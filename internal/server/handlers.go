package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/adobi/dtrader/internal/modules/execution"
	"github.com/adobi/dtrader/internal/modules/feedback"
	"github.com/adobi/dtrader/internal/modules/intake"
	"github.com/adobi/dtrader/internal/modules/ledger"
	"github.com/adobi/dtrader/internal/modules/market_hours"
	"github.com/adobi/dtrader/internal/modules/snapshots"
	"github.com/adobi/dtrader/internal/scheduler"
)

const (
	defaultListLimit   = 50
	defaultHistoryDays = 30
	maxListLimit       = 500
)

// Handlers serves the read side of the dashboard API.
type Handlers struct {
	ledger      *ledger.Service
	snapshots   *snapshots.Repository
	decisions   *execution.DecisionRepository
	feedback    *feedback.Service
	digests     *intake.DigestRepository
	runs        *scheduler.RunRepository
	marketHours *market_hours.Service
	log         zerolog.Logger
}

func NewHandlers(
	ledgerSvc *ledger.Service,
	snapshotRepo *snapshots.Repository,
	decisionRepo *execution.DecisionRepository,
	feedbackSvc *feedback.Service,
	digestRepo *intake.DigestRepository,
	runRepo *scheduler.RunRepository,
	marketHours *market_hours.Service,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		ledger:      ledgerSvc,
		snapshots:   snapshotRepo,
		decisions:   decisionRepo,
		feedback:    feedbackSvc,
		digests:     digestRepo,
		runs:        runRepo,
		marketHours: marketHours,
		log:         log.With().Str("handler", "api").Logger(),
	}
}

// HandlePortfolio handles GET /api/portfolio
func (h *Handlers) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.ledger.Holdings()
	if err != nil {
		h.writeError(w, err)
		return
	}
	totals, err := h.ledger.Totals()
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"holdings": holdings,
		"totals":   totals,
	})
}

// HandleSnapshots handles GET /api/snapshots?days=N
func (h *Handlers) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", defaultHistoryDays)
	since := time.Now().AddDate(0, 0, -days)

	history, err := h.snapshots.List(since)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, map[string]interface{}{"snapshots": history})
}

// HandleOutcomes handles GET /api/outcomes?limit=N
func (h *Handlers) HandleOutcomes(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.feedback.RecentOutcomes(queryLimit(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, map[string]interface{}{"outcomes": outcomes})
}

// HandleLatestFeedback handles GET /api/feedback/latest
func (h *Handlers) HandleLatestFeedback(w http.ResponseWriter, r *http.Request) {
	summary, err := h.feedback.Latest()
	if err != nil {
		h.writeError(w, err)
		return
	}
	if summary == nil {
		http.Error(w, "no feedback recorded yet", http.StatusNotFound)
		return
	}
	h.writeJSON(w, summary)
}

// HandleSkippedDecisions handles GET /api/decisions/skipped?limit=N
func (h *Handlers) HandleSkippedDecisions(w http.ResponseWriter, r *http.Request) {
	skipped, err := h.decisions.ListSkipped(queryLimit(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, map[string]interface{}{"skipped": skipped})
}

// HandleDigests handles GET /api/digests?limit=N
func (h *Handlers) HandleDigests(w http.ResponseWriter, r *http.Request) {
	digests, err := h.digests.ListRecent(queryLimit(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, map[string]interface{}{"digests": digests})
}

// HandleRuns handles GET /api/runs?limit=N
func (h *Handlers) HandleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.ListRecent(queryLimit(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, map[string]interface{}{"runs": runs})
}

// HandleMarketStatus handles GET /api/market/status
func (h *Handlers) HandleMarketStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.marketHours.StatusAt(time.Now()))
}

func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	h.log.Error().Err(err).Msg("Request failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func queryLimit(r *http.Request) int {
	limit := queryInt(r, "limit", defaultListLimit)
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
