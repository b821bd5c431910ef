// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

/*
Package supervisor provides process supervision for loglens serve mode
using suture v4.

# Overview

The supervisor tree organizes services into two layers:

	RootSupervisor ("loglens")
	├── AnalysisSupervisor ("analysis-layer")
	│   └── SchedulerService (cron analysis and retention)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A scheduler that keeps failing backs off inside its own layer while the
query API stays available, and the reverse.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddAnalysisService(services.NewSchedulerService(scheduler))
	tree.AddAPIService(services.NewHTTPServerService(server, addr, 10*time.Second))

	// Blocks until ctx is canceled.
	err = tree.Serve(ctx)

Supervisor events (service failures, backoff, restarts) are logged through
sutureslog onto the zerolog-backed slog adapter.

# Failure Handling

Each failure increments a counter that decays over FailureDecay seconds.
Once the counter exceeds FailureThreshold the layer waits FailureBackoff
before the next restart. A service returning nil is not restarted.

# What Is NOT Supervised

DuckDB is an embedded library, not a service; the database package owns
its connection pool and is closed by the caller after Serve returns.
Ingestion runs are batch commands and never run under the tree.
*/
package supervisor
