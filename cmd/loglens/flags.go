// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"

	"github.com/goccy/go-json"

	"github.com/tomtom215/loglens/internal/config"
	"github.com/tomtom215/loglens/internal/database"
	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/metrics"
)

// usageError reports bad arguments; run exits with status 2.
type usageError struct {
	msg string
}

func (e usageError) Error() string {
	return e.msg
}

func usageErrorf(format string, args ...interface{}) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// newFlagSet creates a flag set that reports errors instead of exiting.
func newFlagSet(name, synopsis string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: loglens %s %s\n\nFlags:\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags parses args; flag errors become usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError{msg: err.Error()}
	}
	return nil
}

// commonFlags are accepted by every command that loads configuration.
type commonFlags struct {
	command    string
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	c.command = fs.Name()
	fs.StringVar(&c.configPath, "config", "", "path to the YAML config file")
	fs.StringVar(&c.dbPath, "db", "", "DuckDB database path (overrides database.path)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	fs.StringVar(&c.logFormat, "log-format", "", "log format: json or console")
}

// load reads the layered configuration, applies the common flags and
// override, revalidates and initializes logging.
func (c *commonFlags) load(stderr io.Writer, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}

	if c.dbPath != "" {
		cfg.Database.Path = c.dbPath
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Logging.Format = c.logFormat
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, usageErrorf("%v", err)
	}

	logging.Init(logging.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Caller:  cfg.Logging.Caller,
		Output:  stderr,
		Command: c.command,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	return cfg, nil
}

// setFlags returns the names of the flags given on the command line, so
// unset flags leave configuration values alone.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

// openDB opens the store and returns a close function that logs failures.
func openDB(cfg *config.Config) (*database.DB, func(), error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
