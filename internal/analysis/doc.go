// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

/*
Package analysis runs the batch jobs that work on already-ingested data.

A Runner reads one closed time window from the store, reconstructs the
sessions in it, runs every anomaly detector over the window's series and
writes the sessions and anomalies back. Windows end on a bucket boundary
no later than the start of the current bucket, so a window is never
analyzed while ingestion is still writing into it.

Anomaly IDs are derived from the anomaly's identity (type, metric, bucket
and subject), so re-analyzing a window finds the same IDs and the store
skips the duplicates. Session IDs are already deterministic.

A Scheduler drives the Runner and the store's retention purge from cron
expressions (github.com/robfig/cron/v3) and adapts to the supervisor's
Start/Stop lifecycle.

Usage:

	runner, err := analysis.NewRunner(db, &cfg.Sessionizer, &cfg.Anomaly)
	if err != nil {
	    return err
	}
	report, err := runner.Run(ctx, runner.LatestWindow(time.Now()))
*/
package analysis
