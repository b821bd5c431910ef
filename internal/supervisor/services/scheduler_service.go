// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package services

import (
	"context"
	"fmt"
)

// SchedulerManager matches the analysis scheduler lifecycle.
//
// The interface is satisfied by *analysis.Scheduler.
type SchedulerManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService wraps the analysis scheduler as a supervised service.
//
// It adapts the Start/Stop lifecycle pattern to suture's Serve pattern:
//  1. Calls Start(ctx) to register the cron jobs
//  2. Waits for context cancellation
//  3. Calls Stop() for graceful shutdown
type SchedulerService struct {
	manager SchedulerManager
	name    string
}

// NewSchedulerService creates a new scheduler service wrapper.
//
// Example usage:
//
//	scheduler, _ := analysis.NewScheduler(runner, db, &cfg.Analysis)
//	tree.AddAnalysisService(services.NewSchedulerService(scheduler))
func NewSchedulerService(manager SchedulerManager) *SchedulerService {
	return &SchedulerService{
		manager: manager,
		name:    "analysis-scheduler",
	}
}

// Serve implements suture.Service.
//
// If Start fails, the error is returned immediately, causing suture to
// restart the service according to its backoff policy.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("analysis scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("analysis scheduler stop failed: %w", err)
	}

	return ctx.Err()
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *SchedulerService) String() string {
	return s.name
}
