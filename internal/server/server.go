// Package server wires the HTTP API together with the execution,
// orchestration, and history components.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/modelbay/modelbay/internal/artifacts"
	"github.com/modelbay/modelbay/internal/config"
	"github.com/modelbay/modelbay/internal/database"
	"github.com/modelbay/modelbay/internal/history"
	"github.com/modelbay/modelbay/internal/jobs"
	"github.com/modelbay/modelbay/internal/policy"
	"github.com/modelbay/modelbay/internal/runner"
	"github.com/modelbay/modelbay/internal/runs"
	"github.com/modelbay/modelbay/internal/schedule"
	"github.com/modelbay/modelbay/internal/server/handlers"
)

// Server owns the component lifecycle: artifact discovery, the worker
// pool, history cleanup, schedules, and the HTTP listener.
type Server struct {
	cfg *config.Config
	db  *database.DB

	registry     *artifacts.Registry
	loader       *artifacts.Loader
	watcher      *artifacts.Watcher
	runs         *runs.Service
	orchestrator *jobs.Orchestrator
	recorder     *history.Recorder
	scheduler    *schedule.Scheduler
	handlers     *handlers.Handlers

	router     *Router
	httpServer *http.Server
}

// New builds the full component graph from configuration. Nothing is
// started; Start launches the background components and the listener.
func New(cfg *config.Config, db *database.DB) (*Server, error) {
	registry, err := artifacts.NewRegistry(cfg.Artifacts.Root, cfg.Artifacts.Include, cfg.Artifacts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("creating artifact registry: %w", err)
	}
	if err := registry.Discover(); err != nil {
		return nil, fmt.Errorf("discovering artifacts: %w", err)
	}

	loader := artifacts.NewLoader(registry, cfg.Runner.PythonBin)

	policyEngine, err := policy.NewEngine(cfg.Policy.Rules)
	if err != nil {
		return nil, fmt.Errorf("building policy engine: %w", err)
	}

	store := history.NewStore(db, cfg.History.CompressThreshold)
	recorder := history.NewRecorder(store, &cfg.History)

	run := runner.New(cfg.Runner.PythonBin, cfg.Runner.MaxOutputBytes)
	svc := runs.NewService(registry, loader, run, policyEngine, recorder, &cfg.Runner)

	orchestrator := jobs.NewOrchestrator(svc, &cfg.Jobs)

	scheduler, err := schedule.New(orchestrator, cfg.Schedules)
	if err != nil {
		return nil, fmt.Errorf("building scheduler: %w", err)
	}

	srv := &Server{
		cfg:          cfg,
		db:           db,
		registry:     registry,
		loader:       loader,
		runs:         svc,
		orchestrator: orchestrator,
		recorder:     recorder,
		scheduler:    scheduler,
		handlers:     handlers.New(svc, orchestrator, registry, loader, store, db),
	}

	if cfg.Artifacts.Watch {
		watcher, err := artifacts.NewWatcher(registry)
		if err != nil {
			return nil, fmt.Errorf("creating artifact watcher: %w", err)
		}
		srv.watcher = watcher
	}

	srv.router = NewRouter(srv)
	srv.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      srv.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return srv, nil
}

// Start launches the background components and blocks serving HTTP
// until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	log.Info().
		Str("addr", s.cfg.Server.Address()).
		Int("artifacts", s.registry.Count()).
		Msg("Starting server")

	if s.watcher != nil {
		if err := s.watcher.Start(); err != nil {
			return fmt.Errorf("starting artifact watcher: %w", err)
		}
		log.Info().Str("root", s.registry.Root()).Msg("Artifact watcher started")
	}

	s.recorder.Start(ctx)
	s.orchestrator.Start(ctx)
	s.scheduler.Start(ctx)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener and drains the background components in
// dependency order.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down server")

	err := s.httpServer.Shutdown(ctx)

	s.scheduler.Stop()
	s.orchestrator.Stop()
	s.recorder.Stop()

	if s.watcher != nil {
		if werr := s.watcher.Stop(); werr != nil {
			log.Warn().Err(werr).Msg("Error stopping artifact watcher")
		}
	}

	return err
}

// Runs exposes the run service, used by the one-off CLI execution path.
func (s *Server) Runs() *runs.Service {
	return s.runs
}
