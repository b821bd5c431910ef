// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tomtom215/loglens/internal/config"
	"github.com/tomtom215/loglens/internal/database"
	"github.com/tomtom215/loglens/internal/logging"
)

// Purger applies the store's retention policy.
// It is satisfied by *database.DB.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (database.PurgeResult, error)
}

// Scheduler runs analysis and retention jobs on cron schedules.
type Scheduler struct {
	runner *Runner
	purger Purger
	cfg    config.AnalysisConfig
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// NewScheduler validates the cron expressions in cfg. purger may be nil,
// in which case no retention job is scheduled.
func NewScheduler(runner *Runner, purger Purger, cfg *config.AnalysisConfig) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("analysis runner is required")
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid analysis schedule %q: %w", cfg.Schedule, err)
	}
	if purger != nil && cfg.PurgeSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PurgeSchedule); err != nil {
			return nil, fmt.Errorf("invalid purge schedule %q: %w", cfg.PurgeSchedule, err)
		}
	}
	return &Scheduler{
		runner: runner,
		purger: purger,
		cfg:    *cfg,
		logger: logging.WithComponent("analysis-scheduler"),
		now:    time.Now,
	}, nil
}

// Start registers the jobs and starts the cron loop. Jobs run with a
// context derived from ctx and never overlap with themselves.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if !s.cfg.Enabled {
		s.logger.Info().Msg("Analysis scheduler disabled")
		s.running = true
		return nil
	}

	jobCtx, cancel := context.WithCancel(ctx)
	cl := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.analyze(jobCtx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule analysis: %w", err)
	}
	if s.purger != nil && s.cfg.PurgeSchedule != "" {
		if _, err := c.AddFunc(s.cfg.PurgeSchedule, func() { s.purge(jobCtx) }); err != nil {
			cancel()
			return fmt.Errorf("failed to schedule retention purge: %w", err)
		}
	}

	c.Start()
	s.cron = c
	s.cancel = cancel
	s.running = true

	s.logger.Info().
		Str("schedule", s.cfg.Schedule).
		Str("purge_schedule", s.cfg.PurgeSchedule).
		Msg("Analysis scheduler started")
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.running = false
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	cancel()
	<-c.Stop().Done()
	s.logger.Info().Msg("Analysis scheduler stopped")
	return nil
}

// Next returns the next scheduled analysis time, or the zero time when
// the scheduler is not running.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	var next time.Time
	for _, e := range s.cron.Entries() {
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// RunOnce analyzes the latest closed window immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	return s.runner.Run(ctx, s.runner.LatestWindow(s.now()))
}

func (s *Scheduler) analyze(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled analysis failed")
	}
}

func (s *Scheduler) purge(ctx context.Context) {
	result, err := s.purger.PurgeExpired(ctx, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled retention purge failed")
		return
	}
	s.logger.Info().
		Int64("requests", result.Requests).
		Int64("sessions", result.Sessions).
		Int64("security_events", result.SecurityEvents).
		Int64("anomalies", result.Anomalies).
		Msg("Retention purge completed")
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
