package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/adobi/dtrader/internal/modules/intake"
	"github.com/adobi/dtrader/internal/scheduler"
)

// SystemHandlers serves system status and manual job triggers.
type SystemHandlers struct {
	dataDir      string
	intakeJob    *scheduler.IntakeJob
	executionJob *scheduler.ExecutionJob
	reviewJob    *scheduler.ReviewJob
	log          zerolog.Logger
}

func NewSystemHandlers(
	dataDir string,
	intakeJob *scheduler.IntakeJob,
	executionJob *scheduler.ExecutionJob,
	reviewJob *scheduler.ReviewJob,
	log zerolog.Logger,
) *SystemHandlers {
	return &SystemHandlers{
		dataDir:      dataDir,
		intakeJob:    intakeJob,
		executionJob: executionJob,
		reviewJob:    reviewJob,
		log:          log.With().Str("handler", "system").Logger(),
	}
}

// HandleHealth handles GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"})
}

// SystemStatusResponse is the payload of GET /api/system/status.
type SystemStatusResponse struct {
	Time       string  `json:"time"`
	CPUPercent float64 `json:"cpu_percent"`
	RAMPercent float64 `json:"ram_percent"`
	DataDirMB  float64 `json:"data_dir_mb"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuAvg, ramPercent := h.systemStats()
	h.writeJSON(w, SystemStatusResponse{
		Time:       time.Now().Format(time.RFC3339),
		CPUPercent: cpuAvg,
		RAMPercent: ramPercent,
		DataDirMB:  h.dirSizeMB(h.dataDir),
	})
}

// HandleTriggerIntake handles POST /api/system/jobs/intake
func (h *SystemHandlers) HandleTriggerIntake(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, "intake", h.intakeJob.Run)
}

// HandleTriggerExecution handles POST /api/system/jobs/execution. An
// optional run_id query parameter replays the digests of one intake run
// instead of all unconsumed digests.
func (h *SystemHandlers) HandleTriggerExecution(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	run := h.executionJob.Run
	if runID != "" {
		run = func() error { return h.executionJob.RunWith(intake.ByRun(runID)) }
	}
	h.trigger(w, "execution", run)
}

// HandleTriggerReview handles POST /api/system/jobs/review
func (h *SystemHandlers) HandleTriggerReview(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, "review", h.reviewJob.Run)
}

// trigger starts a job on a background goroutine and returns immediately.
// Concurrent execution triggers serialize on the ledger-writer lock inside
// the job itself.
func (h *SystemHandlers) trigger(w http.ResponseWriter, name string, run func() error) {
	h.log.Info().Str("job", name).Msg("Manual job trigger")

	go func() {
		if err := run(); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		}
	}()

	h.writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "started", "job": name})
}

// systemStats returns CPU and RAM usage percentages. The short CPU sampling
// window keeps the status endpoint responsive.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) dirSizeMB(dirPath string) float64 {
	var totalSize int64
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}
	return float64(totalSize) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

// writeJSONStatus sets headers before the status line; anything set after
// WriteHeader is discarded.
func (h *SystemHandlers) writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
