package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/adobi/dtrader/internal/modules/execution"
	"github.com/adobi/dtrader/internal/modules/feedback"
	"github.com/adobi/dtrader/internal/modules/intake"
	"github.com/adobi/dtrader/internal/modules/ledger"
	"github.com/adobi/dtrader/internal/modules/market_hours"
	"github.com/adobi/dtrader/internal/modules/snapshots"
)

// ExecutionSchedule is interval-based and independent of the host clock.
// Windows are still enforced inside the job's Run.
const ExecutionSchedule = "@every 30m"

// The remaining schedules must land inside windows that are evaluated in the
// venue timezone, so each spec carries a CRON_TZ prefix. Without it the cron
// fires in host local time and on a non-Eastern host never intersects the
// window it targets.

// IntakeSchedule fires hourly at minute 25 on trading weekdays.
func IntakeSchedule(venueTZ string) string {
	return "CRON_TZ=" + venueTZ + " 0 25 * * * MON-FRI"
}

// WeekendIntakeSchedule fires once per non-trading day, on the target instant
// of the weekend intake band.
func WeekendIntakeSchedule(venueTZ string) string {
	return "CRON_TZ=" + venueTZ + " 0 0 15 * * SAT,SUN"
}

// ReviewSchedule fires half an hour into the post-close review window.
func ReviewSchedule(venueTZ string) string {
	return "CRON_TZ=" + venueTZ + " 0 30 16 * * MON-FRI"
}

// digestConsumer is the consumption marker identity of the execution cycle.
const digestConsumer = "execution"

// Decider asks the advisory oracle for a decision batch.
type Decider interface {
	Decide(digests []intake.Digest, holdingsText, feedbackContext string) ([]execution.TradeDecision, error)
}

// feedbackContext renders the latest performance summary as the one-line
// context string the oracle prompts carry.
func feedbackContext(svc *feedback.Service, log zerolog.Logger) string {
	summary, err := svc.Latest()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load feedback context")
		return "Feedback system unavailable."
	}
	if summary == nil {
		return "No recent performance data available."
	}
	return fmt.Sprintf("Recent Success Rate: %.1f%%, Avg Gain: %.2f%%",
		summary.SuccessRate*100, summary.AvgGainPercentage*100)
}

// IntakeJob fetches and summarizes news sources during the intake window.
type IntakeJob struct {
	intake   *intake.Service
	feedback *feedback.Service
	windows  *market_hours.Service
	runs     *RunRepository
	log      zerolog.Logger
}

func NewIntakeJob(
	intakeSvc *intake.Service,
	feedbackSvc *feedback.Service,
	windows *market_hours.Service,
	runs *RunRepository,
	log zerolog.Logger,
) *IntakeJob {
	return &IntakeJob{
		intake:   intakeSvc,
		feedback: feedbackSvc,
		windows:  windows,
		runs:     runs,
		log:      log.With().Str("job", "intake").Logger(),
	}
}

func (j *IntakeJob) Name() string { return JobTypeIntake }

func (j *IntakeJob) Run() error {
	now := time.Now()
	if !j.windows.IsIntakeOpen(now) {
		j.log.Debug().Msg("Intake window closed, skipping")
		return nil
	}

	recordID, runID, err := j.runs.Start(JobTypeIntake, now)
	if err != nil {
		return err
	}

	stored, err := j.intake.Run(runID, feedbackContext(j.feedback, j.log), now)
	if err != nil {
		j.finish(recordID, RunStatusFailed)
		return fmt.Errorf("intake run %s failed: %w", runID, err)
	}

	j.log.Info().Str("run_id", runID).Int("digests", stored).Msg("Intake cycle completed")
	j.finish(recordID, RunStatusCompleted)
	return nil
}

func (j *IntakeJob) finish(recordID int64, status string) {
	if err := j.runs.Finish(recordID, status, time.Now()); err != nil {
		j.log.Error().Err(err).Int64("record_id", recordID).Msg("Failed to finish run record")
	}
}

// ExecutionJob turns unconsumed digests into trades during the trading
// window. All ledger mutation happens under the ledger-writer lock.
type ExecutionJob struct {
	locks     *LockRegistry
	runs      *RunRepository
	digests   *intake.DigestRepository
	selector  intake.Selector
	ledger    *ledger.Service
	decisions *execution.DecisionRepository
	engine    *execution.Engine
	decider   Decider
	feedback  *feedback.Service
	snapshots *snapshots.Repository
	windows   *market_hours.Service
	log       zerolog.Logger
}

// ExecutionJobConfig wires the execution job's collaborators.
type ExecutionJobConfig struct {
	Locks     *LockRegistry
	Runs      *RunRepository
	Digests   *intake.DigestRepository
	Ledger    *ledger.Service
	Decisions *execution.DecisionRepository
	Engine    *execution.Engine
	Decider   Decider
	Feedback  *feedback.Service
	Snapshots *snapshots.Repository
	Windows   *market_hours.Service
	Log       zerolog.Logger
}

func NewExecutionJob(cfg ExecutionJobConfig) *ExecutionJob {
	return &ExecutionJob{
		locks:     cfg.Locks,
		runs:      cfg.Runs,
		digests:   cfg.Digests,
		selector:  intake.AllUnconsumed(),
		ledger:    cfg.Ledger,
		decisions: cfg.Decisions,
		engine:    cfg.Engine,
		decider:   cfg.Decider,
		feedback:  cfg.Feedback,
		snapshots: cfg.Snapshots,
		windows:   cfg.Windows,
		log:       cfg.Log.With().Str("job", "execution").Logger(),
	}
}

func (j *ExecutionJob) Name() string { return JobTypeExecution }

func (j *ExecutionJob) Run() error {
	return j.RunWith(j.selector)
}

// RunWith executes one cycle with an explicit digest selector. Manual
// triggers use this to replay the digests of a specific intake run.
func (j *ExecutionJob) RunWith(selector intake.Selector) error {
	now := time.Now()
	if !j.windows.IsTradingOpen(now) {
		j.log.Debug().Msg("Trading window closed, skipping")
		return nil
	}

	release, ok := j.locks.TryAcquire(LedgerWriterLock)
	if !ok {
		j.log.Warn().Msg("Ledger writer busy, skipping cycle")
		return nil
	}
	defer release()

	digests, err := selector.Select(j.digests, digestConsumer)
	if err != nil {
		return err
	}
	if len(digests) == 0 {
		j.log.Debug().Msg("No unconsumed digests, nothing to do")
		return nil
	}

	recordID, runID, err := j.runs.Start(JobTypeExecution, now)
	if err != nil {
		return err
	}
	log := j.log.With().Str("run_id", runID).Logger()

	updated, failed, err := j.ledger.RefreshPrices(now)
	if err != nil {
		j.finish(recordID, RunStatusFailed)
		return fmt.Errorf("price refresh failed: %w", err)
	}
	log.Info().Int("updated", updated).Strs("failed", failed).Msg("Prices refreshed")

	holdingsText, err := j.ledger.PromptSnapshot()
	if err != nil {
		j.finish(recordID, RunStatusFailed)
		return err
	}

	// A decider failure leaves the digests unconsumed; the next cycle
	// picks them up again.
	batch, err := j.decider.Decide(digests, holdingsText, feedbackContext(j.feedback, log))
	if err != nil {
		j.finish(recordID, RunStatusFailed)
		return fmt.Errorf("decision request failed: %w", err)
	}

	if err := j.decisions.RecordBatch(runID, batch); err != nil {
		j.finish(recordID, RunStatusFailed)
		return err
	}

	applied, skipped, err := j.engine.Execute(runID, batch, time.Now())
	if err != nil {
		j.finish(recordID, RunStatusFailed)
		return fmt.Errorf("batch execution failed: %w", err)
	}

	ids := make([]int64, len(digests))
	for i, d := range digests {
		ids[i] = d.ID
	}
	if err := j.digests.MarkConsumed(ids, digestConsumer, runID); err != nil {
		j.finish(recordID, RunStatusFailed)
		return err
	}

	if err := j.recordSnapshot(); err != nil {
		log.Warn().Err(err).Msg("Failed to record snapshot")
	}

	log.Info().
		Int("digests", len(digests)).
		Int("applied", len(applied)).
		Int("skipped", len(skipped)).
		Msg("Execution cycle completed")
	j.finish(recordID, RunStatusCompleted)
	return nil
}

func (j *ExecutionJob) recordSnapshot() error {
	totals, err := j.ledger.Totals()
	if err != nil {
		return err
	}
	holdings, err := j.ledger.Holdings()
	if err != nil {
		return err
	}
	_, err = j.snapshots.Record(totals, holdings, time.Now())
	return err
}

func (j *ExecutionJob) finish(recordID int64, status string) {
	if err := j.runs.Finish(recordID, status, time.Now()); err != nil {
		j.log.Error().Err(err).Int64("record_id", recordID).Msg("Failed to finish run record")
	}
}

// ReviewJob aggregates recent trade outcomes into a feedback record after
// the trading day closes.
type ReviewJob struct {
	feedback     *feedback.Service
	windows      *market_hours.Service
	runs         *RunRepository
	lookbackDays int
	log          zerolog.Logger
}

func NewReviewJob(
	feedbackSvc *feedback.Service,
	windows *market_hours.Service,
	runs *RunRepository,
	lookbackDays int,
	log zerolog.Logger,
) *ReviewJob {
	return &ReviewJob{
		feedback:     feedbackSvc,
		windows:      windows,
		runs:         runs,
		lookbackDays: lookbackDays,
		log:          log.With().Str("job", "review").Logger(),
	}
}

func (j *ReviewJob) Name() string { return JobTypeReview }

func (j *ReviewJob) Run() error {
	now := time.Now()
	if !j.windows.IsReviewOpen(now) {
		j.log.Debug().Msg("Review window closed, skipping")
		return nil
	}

	recordID, runID, err := j.runs.Start(JobTypeReview, now)
	if err != nil {
		return err
	}

	summary, err := j.feedback.Analyze(j.lookbackDays, now)
	if err != nil {
		j.finish(recordID, RunStatusFailed)
		return fmt.Errorf("review run %s failed: %w", runID, err)
	}

	j.log.Info().
		Str("run_id", runID).
		Int("trades", summary.TotalTrades).
		Float64("success_rate", summary.SuccessRate).
		Msg("Review cycle completed")
	j.finish(recordID, RunStatusCompleted)
	return nil
}

func (j *ReviewJob) finish(recordID int64, status string) {
	if err := j.runs.Finish(recordID, status, time.Now()); err != nil {
		j.log.Error().Err(err).Int64("record_id", recordID).Msg("Failed to finish run record")
	}
}
