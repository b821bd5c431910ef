// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package main

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/loglens/internal/database"
	"github.com/tomtom215/loglens/internal/models"
)

// queryParams are the report arguments shared by all reports.
type queryParams struct {
	since       time.Time
	now         time.Time
	days        int
	limit       int
	minSeverity models.Severity
	thresholdMS float64
	minRequests int
	bucket      time.Duration
}

type reportFunc func(ctx context.Context, db *database.DB, p queryParams) (interface{}, error)

var reports = map[string]reportFunc{
	"top-paths": func(ctx context.Context, db *database.DB, p queryParams) (interface{}, error) {
		return db.TopPaths(ctx, p.since, p.limit)
	},
	"latency": func(ctx context.Context, db *database.DB, p queryParams) (interface{}, error) {
		return db.EndpointLatency(ctx, p.since, p.limit)
	},
	"slowest": func(ctx context.Context, db *database.DB, p queryParams) (interface{}, error) {
		return db.SlowEndpoints(ctx, p.since, p.thresholdMS, p.minRequests, p.limit)
	},
	"top-ips": func(ctx context.Context, db *database.DB, p queryParams) (interface{}, error) {
		return db.TopIPs(ctx, p.since, p.limit)
	},
	"bots": func(ctx context.Context, db *database.DB, p queryParams) (interface{}, error) {
		return db.BotTraffic(ctx, p.since)
	},
	"security": func(ctx context.Context, db *database.DB, p queryParams) (interface{}, error) {
		return db.RecentSecurityEvents(ctx, p.limit, p.minSeverity)
	},
	"anomalies": func(ctx context.Context, db *database.DB, p queryParams) (interface{}, error) {
		return db.RecentAnomalies(ctx, p.since, p.limit, p.minSeverity)
	},
	"hourly": func(ctx context.Context, db *database.DB, p queryParams) (interface{}, error) {
		return db.HourlyTraffic(ctx, p.since)
	},
	"daily": func(ctx context.Context, db *database.DB, p queryParams) (interface{}, error) {
		return db.DailySummary(ctx, p.since)
	},
	"series": func(ctx context.Context, db *database.DB, p queryParams) (interface{}, error) {
		to := p.now.Truncate(p.bucket)
		return db.TrafficSeries(ctx, to.Add(-time.Duration(p.days)*24*time.Hour), to, p.bucket)
	},
	"database-info": func(ctx context.Context, db *database.DB, _ queryParams) (interface{}, error) {
		return db.Counts(ctx)
	},
}

func reportNames() string {
	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func runQuery(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("query", "[flags] <report>\n\nReports: "+reportNames(), stderr)
	var common commonFlags
	common.register(fs)
	days := fs.Int("days", 1, "look-back in days")
	limit := fs.Int("limit", 20, "maximum rows")
	minSeverity := fs.String("min-severity", "", "minimum severity for security and anomalies: low, medium, high, critical")
	thresholdMS := fs.Float64("threshold-ms", 1000, "p95 latency threshold for slowest")
	minRequests := fs.Int("min-requests", 100, "minimum requests per path for slowest")
	bucket := fs.Duration("bucket", time.Hour, "bucket width for series")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageErrorf("exactly one report is required (%s)", reportNames())
	}
	report, ok := reports[fs.Arg(0)]
	if !ok {
		return usageErrorf("unknown report %q (%s)", fs.Arg(0), reportNames())
	}
	if *days < 1 || *limit < 1 || *bucket < time.Minute {
		return usageErrorf("-days and -limit must be positive and -bucket at least 1m")
	}
	severity := models.ParseSeverity(*minSeverity)
	if *minSeverity != "" && severity == "" {
		return usageErrorf("invalid -min-severity %q", *minSeverity)
	}

	cfg, err := common.load(stderr, nil)
	if err != nil {
		return err
	}
	db, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	now := time.Now().UTC()
	rows, err := report(ctx, db, queryParams{
		since:       now.Add(-time.Duration(*days) * 24 * time.Hour),
		now:         now,
		days:        *days,
		limit:       *limit,
		minSeverity: severity,
		thresholdMS: *thresholdMS,
		minRequests: *minRequests,
		bucket:      *bucket,
	})
	if err != nil {
		return err
	}
	return printJSON(stdout, rows)
}
