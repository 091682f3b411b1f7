// Package schedule submits configured run requests on cron timetables.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/modelbay/modelbay/internal/config"
	"github.com/modelbay/modelbay/internal/jobs"
	"github.com/modelbay/modelbay/internal/runs"
)

// entry is one configured schedule with its parsed timetable.
type entry struct {
	cfg     config.ScheduleConfig
	cron    cron.Schedule
	nextRun time.Time
}

// Scheduler polls its entries and submits due ones as asynchronous
// jobs. Schedules come from configuration and are fixed for the
// process lifetime.
type Scheduler struct {
	orchestrator *jobs.Orchestrator
	parser       cron.Parser
	entries      []*entry

	mu      sync.Mutex
	running map[string]bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New parses the configured schedules. A schedule with an invalid cron
// expression fails construction rather than being silently skipped.
func New(orchestrator *jobs.Orchestrator, schedules []config.ScheduleConfig) (*Scheduler, error) {
	s := &Scheduler{
		orchestrator: orchestrator,
		parser: cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		),
		running: make(map[string]bool),
	}

	now := time.Now().UTC()
	for _, sc := range schedules {
		if !sc.Enabled {
			log.Debug().Str("schedule", sc.Name).Msg("Schedule disabled, skipping")
			continue
		}

		parsed, err := s.parser.Parse(sc.Cron)
		if err != nil {
			return nil, fmt.Errorf("parsing cron expression for schedule %q: %w", sc.Name, err)
		}

		s.entries = append(s.entries, &entry{
			cfg:     sc,
			cron:    parsed,
			nextRun: parsed.Next(now),
		})
	}

	return s, nil
}

// EntryCount returns the number of active schedules.
func (s *Scheduler) EntryCount() int {
	return len(s.entries)
}

// Start begins polling for due schedules.
func (s *Scheduler) Start(ctx context.Context) {
	if len(s.entries) == 0 {
		log.Debug().Msg("No schedules configured")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.pollLoop(ctx)

	log.Info().Int("schedules", len(s.entries)).Msg("Scheduler started")
}

// Stop terminates the poll loop and waits for it to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.processDue(ctx)
		}
	}
}

func (s *Scheduler) processDue(ctx context.Context) {
	now := time.Now().UTC()

	for _, e := range s.entries {
		if e.nextRun.After(now) {
			continue
		}
		e.nextRun = e.cron.Next(now)

		if !s.markRunning(e.cfg.Name) {
			log.Debug().
				Str("schedule", e.cfg.Name).
				Msg("Previous run still in flight, skipping this tick")
			continue
		}

		if err := s.submit(ctx, e); err != nil {
			s.clearRunning(e.cfg.Name)
			log.Error().Err(err).
				Str("schedule", e.cfg.Name).
				Msg("Failed to submit scheduled run")
		}
	}
}

func (s *Scheduler) submit(ctx context.Context, e *entry) error {
	req := &runs.Request{
		Artifact:  e.cfg.Artifact,
		Function:  e.cfg.Function,
		Args:      e.cfg.Args,
		Kwargs:    e.cfg.Kwargs,
		Requester: "schedule:" + e.cfg.Name,
	}

	job, err := s.orchestrator.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			return fmt.Errorf("job queue is full: %w", err)
		}
		return err
	}

	log.Debug().
		Str("schedule", e.cfg.Name).
		Str("job_id", job.ID).
		Msg("Scheduled run submitted")

	s.wg.Add(1)
	go s.awaitCompletion(ctx, e.cfg.Name, job.ID)
	return nil
}

// awaitCompletion polls the job so overlapping runs of the same
// schedule can be suppressed.
func (s *Scheduler) awaitCompletion(ctx context.Context, name, jobID string) {
	defer s.wg.Done()
	defer s.clearRunning(name)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := s.orchestrator.Get(jobID)
			if err != nil || job.State.Terminal() {
				return
			}
		}
	}
}

func (s *Scheduler) markRunning(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return false
	}
	s.running[name] = true
	return true
}

func (s *Scheduler) clearRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, name)
}
