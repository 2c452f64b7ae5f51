// Package schedule runs application runs on a cron spec.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jonathan/freelance-applier/internal/logging"
)

// Job is one scheduled unit of work, typically a full pipeline run
type Job func(ctx context.Context) error

// Scheduler wraps robfig/cron. Runs never overlap: a tick that fires while a
// run is still active is skipped.
type Scheduler struct {
	cron *cron.Cron
	spec string
	job  Job
	log  *zerolog.Logger

	running atomic.Bool
	wg      sync.WaitGroup
	runs    atomic.Int64
	skipped atomic.Int64
}

// New creates a Scheduler for a standard cron spec or descriptor such as "@every 6h".
func New(spec string, job Job, logger *zerolog.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("schedule: job is required")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("schedule: invalid spec %q: %w", spec, err)
	}
	log := logging.OrNop(logger)
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cronLogger{log})),
		spec: spec,
		job:  job,
		log:  log,
	}, nil
}

// Start registers the job and starts the scheduler. One run starts immediately
// without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.Trigger(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info().Str("spec", s.spec).Msg("scheduler started")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Trigger(ctx)
	}()
	return nil
}

// Trigger runs the job now unless a run is already active. It reports whether
// the job ran.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.log.Warn().Msg("previous run still active, skipping tick")
		return false
	}
	defer s.running.Store(false)

	n := s.runs.Add(1)
	s.log.Info().Int64("run", n).Msg("scheduled run started")
	if err := s.job(ctx); err != nil {
		s.log.Error().Err(err).Int64("run", n).Msg("scheduled run failed")
	} else {
		s.log.Info().Int64("run", n).Msg("scheduled run complete")
	}
	return true
}

// Stop stops the scheduler and waits for an active run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info().Int64("runs", s.runs.Load()).Int64("skipped", s.skipped.Load()).Msg("scheduler stopped")
}

// Runs returns how many runs have started
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// Skipped returns how many ticks were skipped because a run was active
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log *zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
