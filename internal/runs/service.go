package runs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/modelbay/modelbay/internal/artifacts"
	"github.com/modelbay/modelbay/internal/config"
	"github.com/modelbay/modelbay/internal/metrics"
	"github.com/modelbay/modelbay/internal/policy"
	"github.com/modelbay/modelbay/internal/runner"
)

// Recorder persists finalized run outcomes. Implementations must not
// surface storage failures to the execution path.
type Recorder interface {
	Record(ctx context.Context, req *Request, outcome *runner.Outcome)
}

// Service executes run requests against the artifact registry.
type Service struct {
	registry *artifacts.Registry
	loader   *artifacts.Loader
	runner   *runner.Runner
	policy   *policy.Engine
	recorder Recorder
	cfg      *config.RunnerConfig
}

// NewService wires the execution pipeline. policy and recorder may be
// nil, which disables admission checks and history recording respectively.
func NewService(registry *artifacts.Registry, loader *artifacts.Loader, r *runner.Runner, pol *policy.Engine, rec Recorder, cfg *config.RunnerConfig) *Service {
	return &Service{
		registry: registry,
		loader:   loader,
		runner:   r,
		policy:   pol,
		recorder: rec,
		cfg:      cfg,
	}
}

// Run executes the request synchronously. Artifact-originated failures
// come back inside the outcome; returned errors mean the request never
// reached execution (unknown artifact, bad entry point, policy denial)
// or an infrastructure fault occurred.
func (s *Service) Run(ctx context.Context, req *Request) (*runner.Outcome, error) {
	loaded, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	timeout := s.resolveTimeout(loaded.Artifact, req.TimeoutSeconds)
	memoryMB := s.cfg.MemoryLimitMB
	if loaded.Artifact.MemoryMB > 0 {
		memoryMB = loaded.Artifact.MemoryMB
	}

	log.Debug().
		Str("artifact", req.Artifact).
		Str("function", req.Function).
		Dur("timeout", timeout).
		Msg("Executing run request")

	outcome, err := s.runner.Execute(ctx, loaded, req.Function, req.Args, req.Kwargs, runner.Options{
		Timeout:       timeout,
		MaxTimeout:    s.cfg.MaxTimeout,
		MemoryLimitMB: memoryMB,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordRun(req.Artifact, string(outcome.Status), time.Duration(outcome.DurationMs)*time.Millisecond)

	if s.recorder != nil {
		s.recorder.Record(ctx, req, outcome)
	}

	if outcome.OK() {
		log.Debug().
			Str("artifact", req.Artifact).
			Str("function", req.Function).
			Int64("duration_ms", outcome.DurationMs).
			Msg("Run completed")
	} else {
		log.Warn().
			Str("artifact", req.Artifact).
			Str("function", req.Function).
			Str("status", string(outcome.Status)).
			Str("error", outcome.Error).
			Msg("Run did not succeed")
	}

	return outcome, nil
}

// Validate performs the fail-fast checks used by the async submit path:
// policy admission, artifact resolution, and entry-point presence.
func (s *Service) Validate(ctx context.Context, req *Request) error {
	_, err := s.prepare(ctx, req)
	return err
}

func (s *Service) prepare(ctx context.Context, req *Request) (*artifacts.LoadedArtifact, error) {
	loaded, err := s.loader.ResolveEntryPoint(ctx, req.Artifact, req.Function)
	if err != nil {
		return nil, err
	}

	if s.policy != nil {
		evalCtx := &policy.EvalContext{
			Artifact: map[string]any{
				"id":           loaded.Artifact.ID,
				"class":        string(loaded.Artifact.Class),
				"entry_points": loaded.EntryPoints,
			},
			Request: map[string]any{
				"function":        req.Function,
				"timeout_seconds": req.TimeoutSeconds,
				"requester":       req.Requester,
				"arg_count":       len(req.Args),
			},
		}
		if err := s.policy.Admit(evalCtx); err != nil {
			return nil, err
		}
	}

	return loaded, nil
}

// resolveTimeout picks the class default (or the artifact's manifest
// override), applies any caller override, and clamps the result into
// the configured band. Caller-supplied values are never trusted as-is.
func (s *Service) resolveTimeout(artifact *artifacts.Artifact, overrideSeconds int) time.Duration {
	timeout := s.cfg.DefaultTimeout
	if artifact.Class == artifacts.ExecClassHeavy {
		timeout = s.cfg.HeavyTimeout
	}
	if artifact.TimeoutSeconds > 0 {
		timeout = time.Duration(artifact.TimeoutSeconds) * time.Second
	}
	if overrideSeconds > 0 {
		timeout = time.Duration(overrideSeconds) * time.Second
	}

	if timeout < s.cfg.MinTimeout {
		timeout = s.cfg.MinTimeout
	}
	if timeout > s.cfg.MaxTimeout {
		timeout = s.cfg.MaxTimeout
	}
	return timeout
}

// Registry exposes the artifact registry for read-only listing.
func (s *Service) Registry() *artifacts.Registry {
	return s.registry
}
