// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/tomtom215/loglens/internal/analysis"
	"github.com/tomtom215/loglens/internal/api"
	"github.com/tomtom215/loglens/internal/config"
	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/supervisor"
	"github.com/tomtom215/loglens/internal/supervisor/services"
)

const (
	httpShutdownTimeout = 10 * time.Second
	httpIdleTimeout     = 60 * time.Second
)

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := newFlagSet("serve", "[flags]", stderr)
	var common commonFlags
	common.register(fs)
	host := fs.String("host", "", "listen host (overrides server.host)")
	port := fs.Int("port", 0, "listen port (overrides server.port)")
	noAnalysis := fs.Bool("no-analysis", false, "disable scheduled analysis and retention")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return usageErrorf("unexpected arguments: %v", fs.Args())
	}

	set := setFlags(fs)
	cfg, err := common.load(stderr, func(cfg *config.Config) {
		if set["host"] {
			cfg.Server.Host = *host
		}
		if set["port"] {
			cfg.Server.Port = *port
		}
		if set["no-analysis"] && *noAnalysis {
			cfg.Analysis.Enabled = false
		}
	})
	if err != nil {
		return err
	}

	logging.Info().
		Str("version", version).
		Str("db_path", cfg.Database.Path).
		Bool("analysis_enabled", cfg.Analysis.Enabled).
		Msg("Starting loglens server")

	db, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	runner, err := analysis.NewRunner(db, &cfg.Sessionizer, &cfg.Anomaly)
	if err != nil {
		return err
	}
	scheduler, err := analysis.NewScheduler(runner, db, &cfg.Analysis)
	if err != nil {
		return err
	}

	handler := api.NewHandler(db, version)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.MiddlewareConfigFromServer(&cfg.Server)))
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       httpIdleTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  httpShutdownTimeout,
	})
	if err != nil {
		return err
	}
	tree.AddAnalysisService(services.NewSchedulerService(scheduler))
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, httpShutdownTimeout))

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// errCh receives exactly one value and is never closed.
	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown requested, waiting for services to stop")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped")
	return nil
}
