// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

/*
Package services provides suture.Service wrappers for the long-running
components of loglens serve mode.

Each wrapper translates a component lifecycle into suture's context-aware
Serve pattern:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the blocking ListenAndServe into Serve
  - Configurable shutdown timeout for draining connections

Analysis Scheduler (SchedulerService):
  - Wraps analysis.Scheduler (Start/Stop lifecycle)
  - Runs the cron-driven analysis and retention jobs
  - Stop waits for an in-flight job to finish

# Error Handling

Serve returns ctx.Err() after a requested shutdown and a wrapped error
when the component fails. suture restarts failed services with backoff;
http.ErrServerClosed is not treated as a failure.
*/
package services
