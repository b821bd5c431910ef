// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package main

import (
	"io"

	"github.com/tomtom215/loglens/internal/checkpoint"
	"github.com/tomtom215/loglens/internal/config"
	"github.com/tomtom215/loglens/internal/logging"
)

func runCheckpoints(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("checkpoints", "[flags] list | forget <source>", stderr)
	var common commonFlags
	common.register(fs)
	path := fs.String("checkpoint", "", "checkpoint directory (overrides ingest.checkpoint_path)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usageErrorf("a subcommand is required: list or forget")
	}

	set := setFlags(fs)
	cfg, err := common.load(stderr, func(cfg *config.Config) {
		if set["checkpoint"] {
			cfg.Ingest.CheckpointPath = *path
		}
	})
	if err != nil {
		return err
	}
	if cfg.Ingest.CheckpointPath == "" {
		return usageErrorf("no checkpoint directory configured (-checkpoint or ingest.checkpoint_path)")
	}

	var run func(*checkpoint.Store) error
	switch fs.Arg(0) {
	case "list":
		if fs.NArg() != 1 {
			return usageErrorf("list takes no arguments")
		}
		run = func(store *checkpoint.Store) error {
			records, err := store.List()
			if err != nil {
				return err
			}
			return printJSON(stdout, records)
		}
	case "forget":
		if fs.NArg() != 2 {
			return usageErrorf("forget takes exactly one source")
		}
		run = func(store *checkpoint.Store) error {
			n, err := store.Forget(fs.Arg(1))
			if err != nil {
				return err
			}
			return printJSON(stdout, map[string]interface{}{"source": fs.Arg(1), "forgotten": n})
		}
	default:
		return usageErrorf("unknown subcommand %q", fs.Arg(0))
	}

	store, err := checkpoint.Open(cfg.Ingest.CheckpointPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing checkpoint store")
		}
	}()
	return run(store)
}
