// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package main

import (
	"context"
	"io"
	"time"

	"github.com/tomtom215/loglens/internal/analysis"
	"github.com/tomtom215/loglens/internal/config"
	"github.com/tomtom215/loglens/internal/logging"
)

func runAnalyze(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("analyze", "[flags]", stderr)
	var common commonFlags
	common.register(fs)
	from := fs.String("from", "", "window start, RFC 3339 (default: lookback before -to)")
	to := fs.String("to", "", "window end, RFC 3339 (default: start of the current bucket)")
	groupBy := fs.String("group-by", "", "session grouping: session_id, ip or ip_user_agent")
	sessionTimeout := fs.Duration("session-timeout", 0, "inactivity gap that splits a session")
	bucket := fs.Duration("bucket", 0, "anomaly series bucket width")
	lookback := fs.Duration("lookback", 0, "default window length")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return usageErrorf("unexpected arguments: %v", fs.Args())
	}

	set := setFlags(fs)
	cfg, err := common.load(stderr, func(cfg *config.Config) {
		if set["group-by"] {
			cfg.Sessionizer.GroupBy = *groupBy
		}
		if set["session-timeout"] {
			cfg.Sessionizer.Timeout = *sessionTimeout
		}
		if set["bucket"] {
			cfg.Anomaly.Bucket = *bucket
		}
		if set["lookback"] {
			cfg.Anomaly.Lookback = *lookback
		}
	})
	if err != nil {
		return err
	}

	db, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	runner, err := analysis.NewRunner(db, &cfg.Sessionizer, &cfg.Anomaly)
	if err != nil {
		return err
	}

	window, err := analysisWindow(runner, cfg.Anomaly.Lookback, *from, *to, time.Now())
	if err != nil {
		return err
	}

	ctx = logging.ContextWithNewCorrelationID(ctx)
	report, err := runner.Run(ctx, window)
	if err != nil {
		return err
	}
	return printJSON(stdout, report)
}

// analysisWindow resolves the -from and -to flags. Without -to the window
// ends at the latest completed bucket; without -from it spans lookback.
func analysisWindow(runner *analysis.Runner, lookback time.Duration, from, to string, now time.Time) (analysis.Window, error) {
	w := runner.LatestWindow(now)
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return analysis.Window{}, usageErrorf("invalid -to: %v", err)
		}
		w.To = t.UTC()
		w.From = w.To.Add(-lookback)
	}
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return analysis.Window{}, usageErrorf("invalid -from: %v", err)
		}
		w.From = t.UTC()
	}
	if !w.From.Before(w.To) {
		return analysis.Window{}, usageErrorf("window start %s is not before end %s", w.From.Format(time.RFC3339), w.To.Format(time.RFC3339))
	}
	return w, nil
}
