// Package server provides the dashboard HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/adobi/dtrader/internal/config"
	"github.com/adobi/dtrader/internal/modules/execution"
	"github.com/adobi/dtrader/internal/modules/feedback"
	"github.com/adobi/dtrader/internal/modules/intake"
	"github.com/adobi/dtrader/internal/modules/ledger"
	"github.com/adobi/dtrader/internal/modules/market_hours"
	"github.com/adobi/dtrader/internal/modules/snapshots"
	"github.com/adobi/dtrader/internal/scheduler"
)

// Config holds server dependencies.
type Config struct {
	Log          zerolog.Logger
	Cfg          *config.Config
	Ledger       *ledger.Service
	Snapshots    *snapshots.Repository
	Decisions    *execution.DecisionRepository
	Feedback     *feedback.Service
	Digests      *intake.DigestRepository
	Runs         *scheduler.RunRepository
	MarketHours  *market_hours.Service
	IntakeJob    *scheduler.IntakeJob
	ExecutionJob *scheduler.ExecutionJob
	ReviewJob    *scheduler.ReviewJob
}

// Server is the HTTP server for the dashboard API.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	handlers       *Handlers
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		handlers: NewHandlers(
			cfg.Ledger,
			cfg.Snapshots,
			cfg.Decisions,
			cfg.Feedback,
			cfg.Digests,
			cfg.Runs,
			cfg.MarketHours,
			cfg.Log,
		),
		systemHandlers: NewSystemHandlers(
			cfg.Cfg.DataDir,
			cfg.IntakeJob,
			cfg.ExecutionJob,
			cfg.ReviewJob,
			cfg.Log,
		),
	}

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/portfolio", s.handlers.HandlePortfolio)
		r.Get("/snapshots", s.handlers.HandleSnapshots)
		r.Get("/outcomes", s.handlers.HandleOutcomes)
		r.Get("/feedback/latest", s.handlers.HandleLatestFeedback)
		r.Get("/decisions/skipped", s.handlers.HandleSkippedDecisions)
		r.Get("/digests", s.handlers.HandleDigests)
		r.Get("/runs", s.handlers.HandleRuns)
		r.Get("/market/status", s.handlers.HandleMarketStatus)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Route("/jobs", func(r chi.Router) {
				r.Post("/intake", s.systemHandlers.HandleTriggerIntake)
				r.Post("/execution", s.systemHandlers.HandleTriggerExecution)
				r.Post("/review", s.systemHandlers.HandleTriggerReview)
			})
		})
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
