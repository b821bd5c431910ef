// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tomtom215/loglens/internal/checkpoint"
	"github.com/tomtom215/loglens/internal/config"
	"github.com/tomtom215/loglens/internal/eventprocessor"
	"github.com/tomtom215/loglens/internal/ingest"
	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/models"
	"github.com/tomtom215/loglens/internal/source"
)

// busCloseTimeout bounds the drain of the event bus after a run.
const busCloseTimeout = 10 * time.Second

// ingestOutput is printed after an ingest run.
type ingestOutput struct {
	Summary models.RunSummary `json:"summary"`
	Sources []sourceOutput    `json:"sources"`
}

type sourceOutput struct {
	Name    string            `json:"name"`
	Summary models.RunSummary `json:"summary"`
	Error   string            `json:"error,omitempty"`
}

func runIngest(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("ingest", "[flags] <path|-|s3://bucket/key>...", stderr)
	var common commonFlags
	common.register(fs)
	format := fs.String("format", "", "log format: nginx, apache or cloudflare")
	batchSize := fs.Int("batch-size", 0, "requests per store write")
	parallel := fs.Int("parallel", 0, "sources ingested concurrently")
	checkpointPath := fs.String("checkpoint", "", "checkpoint directory (overrides ingest.checkpoint_path)")
	force := fs.Bool("force", false, "ingest sources even when checkpointed")
	noBots := fs.Bool("no-bot-detection", false, "skip client classification")
	noSecurity := fs.Bool("no-security-scan", false, "skip attack signature scanning")
	rateThreshold := fs.Int("rate-threshold", 0, "requests per IP per window that raise a rate_limit_exceeded threat (0 disables)")
	rateWindow := fs.Duration("rate-window", 0, "rate limit window")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usageErrorf("at least one source is required")
	}

	set := setFlags(fs)
	cfg, err := common.load(stderr, func(cfg *config.Config) {
		if set["format"] {
			cfg.Ingest.Format = *format
		}
		if set["batch-size"] {
			cfg.Ingest.BatchSize = *batchSize
		}
		if set["parallel"] {
			cfg.Ingest.ParallelFiles = *parallel
		}
		if set["checkpoint"] {
			cfg.Ingest.CheckpointPath = *checkpointPath
		}
		if set["no-bot-detection"] {
			cfg.Ingest.DisableBotDetection = *noBots
		}
		if set["no-security-scan"] {
			cfg.Ingest.DisableSecurityScan = *noSecurity
		}
		if set["rate-threshold"] {
			cfg.Ingest.RateLimitThreshold = *rateThreshold
		}
		if set["rate-window"] {
			cfg.Ingest.RateLimitWindow = *rateWindow
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

	var checkpoints ingest.Checkpoints
	if cfg.Ingest.CheckpointPath != "" && !*force {
		store, err := checkpoint.Open(cfg.Ingest.CheckpointPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing checkpoint store")
			}
		}()
		checkpoints = store
	}

	var opts []ingest.Option
	if cfg.NATS.Enabled {
		bus, err := eventprocessor.Start(ctx, &cfg.NATS)
		switch {
		case errors.Is(err, eventprocessor.ErrNATSNotEnabled):
			logging.Warn().Msg("nats.enabled is set but NATS support is not compiled in (build with -tags nats)")
		case err != nil:
			return fmt.Errorf("failed to start event bus: %w", err)
		default:
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), busCloseTimeout)
				defer cancel()
				if err := bus.Close(closeCtx); err != nil {
					logging.Error().Err(err).Msg("Error closing event bus")
				}
			}()
			opts = append(opts, ingest.WithPublisher(bus))
			logging.Info().Str("url", bus.URL()).Msg("Publishing security events to NATS")
		}
	}

	pipeline, err := ingest.New(db, &cfg.Ingest, opts...)
	if err != nil {
		return err
	}
	opener := source.NewOpener(source.Options{
		Region:   cfg.Ingest.S3Region,
		Endpoint: cfg.Ingest.S3Endpoint,
	})

	summary, results := ingest.NewRunner(pipeline, opener, checkpoints).RunFiles(ctx, fs.Args())

	out := ingestOutput{Summary: summary, Sources: make([]sourceOutput, 0, len(results))}
	failed := 0
	for _, res := range results {
		so := sourceOutput{Name: res.Name, Summary: res.Summary}
		if res.Err != nil {
			so.Error = res.Err.Error()
			failed++
		}
		out.Sources = append(out.Sources, so)
	}
	if err := printJSON(stdout, out); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(results))
	}
	if summary.Canceled {
		return context.Canceled
	}
	return nil
}
