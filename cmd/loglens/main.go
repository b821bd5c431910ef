// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

// Package main is the loglens command line.
//
// loglens parses web server access logs (nginx, Apache, CloudFlare JSON),
// classifies clients, flags attack signatures and stores every request in
// a DuckDB database. Stored traffic is sessionized and checked for
// anomalies by batch analysis runs, and exposed read-only over HTTP.
//
// # Subcommands
//
//	loglens ingest [flags] <source>...   parse sources into the store
//	loglens analyze [flags]              sessionize and detect anomalies
//	loglens serve [flags]                HTTP API plus scheduled analysis
//	loglens query [flags] <report>       print a stored report as JSON
//	loglens checkpoints [flags] list|forget <source>
//	loglens version
//
// A source is a local path, "-" for standard input or s3://bucket/key.
// gzip and zstd inputs are decompressed transparently.
//
// # Configuration
//
// Settings are layered, highest priority last: built-in defaults, the YAML
// file (-config, CONFIG_PATH, ./loglens.yaml, ./config.yaml,
// /etc/loglens/config.yaml), environment variables, then command flags.
//
// # Build Tags
//
//	go build -tags nats ./cmd/loglens   # publish security events to NATS JetStream
//
// # Exit Codes
//
// 0 on success, 1 when the command failed, 2 on a usage error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/tomtom215/loglens/internal/logging"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "unknown"
)

const usageText = `loglens - server access log analytics and anomaly detection

Usage:
  loglens <command> [flags] [arguments]

Commands:
  ingest       parse log sources into the store
  analyze      sessionize stored traffic and detect anomalies
  serve        run the HTTP query API and scheduled analysis
  query        print a stored report as JSON
  checkpoints  list or forget ingestion checkpoints
  version      print version information

Run "loglens <command> -h" for command flags.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	name, rest := args[0], args[1:]
	var err error
	switch name {
	case "ingest":
		err = runIngest(ctx, rest, stdout, stderr)
	case "analyze":
		err = runAnalyze(ctx, rest, stdout, stderr)
	case "serve":
		err = runServe(ctx, rest, stderr)
	case "query":
		err = runQuery(ctx, rest, stdout, stderr)
	case "checkpoints":
		err = runCheckpoints(rest, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "loglens %s (commit %s, %s)\n", version, commit, runtime.Version())
		return 0
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usageText)
		return 0
	default:
		fmt.Fprintf(stderr, "loglens: unknown command %q\n\n%s", name, usageText)
		return 2
	}

	var uerr usageError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.As(err, &uerr):
		fmt.Fprintf(stderr, "loglens %s: %v\n", name, uerr.msg)
		return 2
	default:
		logging.Error().Err(err).Str("command", name).Msg("Command failed")
		return 1
	}
}
