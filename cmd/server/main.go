// Package main is the entry point for the dtrader autonomous day trading
// system. It wires the three databases, the ledger and execution services,
// the scheduled intake/execution/review cycles and the dashboard API.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/adobi/dtrader/internal/clients"
	"github.com/adobi/dtrader/internal/config"
	"github.com/adobi/dtrader/internal/database"
	"github.com/adobi/dtrader/internal/modules/execution"
	"github.com/adobi/dtrader/internal/modules/feedback"
	"github.com/adobi/dtrader/internal/modules/intake"
	"github.com/adobi/dtrader/internal/modules/ledger"
	"github.com/adobi/dtrader/internal/modules/market_hours"
	"github.com/adobi/dtrader/internal/modules/snapshots"
	"github.com/adobi/dtrader/internal/scheduler"
	"github.com/adobi/dtrader/internal/server"
	"github.com/adobi/dtrader/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting dtrader")

	// Three databases, one per durability profile: the ledger is the audit
	// trail, the portfolio holds current state, the cache is rebuildable.
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Name:    "portfolio",
		Profile: database.ProfileStandard,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Name:    "ledger",
		Profile: database.ProfileLedger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Name:    "cache",
		Profile: database.ProfileCache,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{portfolioDB, ledgerDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Migration failed")
		}
	}

	marketHours, err := market_hours.NewService(cfg.VenueTimezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.VenueTimezone).Msg("Failed to load venue timezone")
	}

	// Clients
	priceClient := clients.NewPriceClient(log)
	oracle := clients.NewOracleClient(clients.OracleConfig{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		Model:        cfg.OpenAIModel,
		MaxTrades:    cfg.MaxTrades,
		InitialFunds: cfg.InitialFunds,
		MinBuffer:    cfg.MinBuffer,
	}, log)

	// Repositories and services
	holdingRepo := ledger.NewHoldingRepository(portfolioDB.Conn(), log)
	if err := holdingRepo.EnsureCash(cfg.InitialFunds); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed cash row")
	}
	ledgerService := ledger.NewService(holdingRepo, priceClient, log)

	decisionRepo := execution.NewDecisionRepository(ledgerDB.Conn(), log)
	outcomeRepo := feedback.NewOutcomeRepository(ledgerDB.Conn(), log)
	feedbackRepo := feedback.NewFeedbackRepository(ledgerDB.Conn(), log)
	feedbackService := feedback.NewService(outcomeRepo, feedbackRepo, oracle, log)

	digestRepo := intake.NewDigestRepository(cacheDB.Conn(), log)
	intakeService := intake.NewService(intakeSources(cfg), digestRepo, oracle, log)

	snapshotRepo := snapshots.NewRepository(portfolioDB.Conn(), log)
	runRepo := scheduler.NewRunRepository(cacheDB.Conn(), log)
	locks := scheduler.NewLockRegistry()

	engine := execution.NewEngine(
		holdingRepo,
		decisionRepo,
		priceClient,
		marketHours,
		feedbackService,
		cfg.MinBuffer,
		log,
	)

	// Jobs
	intakeJob := scheduler.NewIntakeJob(intakeService, feedbackService, marketHours, runRepo, log)
	executionJob := scheduler.NewExecutionJob(scheduler.ExecutionJobConfig{
		Locks:     locks,
		Runs:      runRepo,
		Digests:   digestRepo,
		Ledger:    ledgerService,
		Decisions: decisionRepo,
		Engine:    engine,
		Decider:   oracle,
		Feedback:  feedbackService,
		Snapshots: snapshotRepo,
		Windows:   marketHours,
		Log:       log,
	})
	reviewJob := scheduler.NewReviewJob(feedbackService, marketHours, runRepo, cfg.FeedbackLookbackDays, log)

	sched := scheduler.New(log)
	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{scheduler.IntakeSchedule(cfg.VenueTimezone), intakeJob},
		{scheduler.WeekendIntakeSchedule(cfg.VenueTimezone), intakeJob},
		{scheduler.ExecutionSchedule, executionJob},
		{scheduler.ReviewSchedule(cfg.VenueTimezone), reviewJob},
	}
	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			log.Fatal().Err(err).Str("job", j.job.Name()).Msg("Failed to register job")
		}
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Log:          log,
		Cfg:          cfg,
		Ledger:       ledgerService,
		Snapshots:    snapshotRepo,
		Decisions:    decisionRepo,
		Feedback:     feedbackService,
		Digests:      digestRepo,
		Runs:         runRepo,
		MarketHours:  marketHours,
		IntakeJob:    intakeJob,
		ExecutionJob: executionJob,
		ReviewJob:    reviewJob,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server stopped unexpectedly")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("dtrader stopped")
}

// intakeSources renders the configured source map in a stable order.
func intakeSources(cfg *config.Config) []intake.Source {
	names := make([]string, 0, len(cfg.IntakeSources))
	for name := range cfg.IntakeSources {
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make([]intake.Source, 0, len(names))
	for _, name := range names {
		sources = append(sources, intake.Source{Name: name, URL: cfg.IntakeSources[name]})
	}
	return sources
}
