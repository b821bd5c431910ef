// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/loglens/internal/classifier"
	"github.com/tomtom215/loglens/internal/config"
	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/metrics"
	"github.com/tomtom215/loglens/internal/models"
	"github.com/tomtom215/loglens/internal/scanner"
)

// maxLineBytes is the longest line the reader accepts. Longer lines end the
// run with bufio.ErrTooLong.
const maxLineBytes = 1 << 20

// Store is the write side of the request store.
type Store interface {
	// InsertRequests writes one batch and returns the number of rows the
	// store acknowledged.
	InsertRequests(ctx context.Context, batch []models.EnrichedRequest) (int, error)

	// InsertSecurityEvents writes the security events found during a run.
	InsertSecurityEvents(ctx context.Context, events []models.SecurityEvent) error
}

// EventPublisher forwards security events to an external bus. Publication is
// best-effort and never affects the run summary beyond a log line.
type EventPublisher interface {
	PublishSecurityEvents(ctx context.Context, events []models.SecurityEvent) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPublisher forwards each run's security events to pub after they are
// stored.
func WithPublisher(pub EventPublisher) Option {
	return func(p *Pipeline) {
		p.publisher = pub
	}
}

// WithClassifier overrides the client classifier.
func WithClassifier(c *classifier.Classifier) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithClock overrides the wall clock used for timing and timestamp
// fallbacks.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline ingests access log sources into a Store. A Pipeline holds only
// immutable configuration and the store circuit breaker, so one Pipeline
// may run several sources concurrently.
type Pipeline struct {
	store      Store
	publisher  EventPublisher
	cfg        config.IngestConfig
	format     models.Format
	classifier *classifier.Classifier
	scanner    *scanner.Scanner
	badIPs     map[string]struct{}
	breaker    *gobreaker.CircuitBreaker[int]
	now        func() time.Time
}

// New creates a Pipeline writing to store.
func New(store Store, cfg *config.IngestConfig, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New("ingest: store is required")
	}
	format, err := models.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("ingest: batch size must be positive, got %d", cfg.BatchSize)
	}

	p := &Pipeline{
		store:      store,
		cfg:        *cfg,
		format:     format,
		classifier: classifier.New(),
		scanner:    scanner.New(),
		badIPs:     scanner.IPSet(cfg.KnownBadIPs),
		breaker:    newStoreBreaker("duckdb-store"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Format returns the log format the pipeline parses.
func (p *Pipeline) Format() models.Format {
	return p.format
}

// Run ingests every line of r. name identifies the source in logs and in the
// summary. The returned error is non-nil only when the source could not be
// read to the end; the summary is valid either way.
func (p *Pipeline) Run(ctx context.Context, name string, r io.Reader) (models.RunSummary, error) {
	ctx = logging.EnsureCorrelationID(ctx)
	log := logging.Ctx(ctx)

	rs := newRun(p, name)
	log.Info().
		Str("source", name).
		Str("format", string(p.format)).
		Int("batch_size", p.cfg.BatchSize).
		Msg("Ingestion started")

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var readErr error
	for {
		if ctx.Err() != nil {
			rs.summary.Canceled = true
			break
		}
		if !sc.Scan() {
			readErr = sc.Err()
			break
		}
		rs.processLine(sc.Text())
		if len(rs.batch) >= p.cfg.BatchSize {
			rs.flush(ctx)
		}
	}

	// Buffered records were already consumed from the source; write them
	// even when canceled so they are not silently lost.
	rs.flush(ctx)
	rs.flushSecurityEvents(ctx)

	summary := rs.finish()
	p.logSummary(ctx, summary, readErr)

	if readErr != nil {
		return summary, fmt.Errorf("read %s: %w", name, readErr)
	}
	return summary, nil
}

func (p *Pipeline) logSummary(ctx context.Context, s models.RunSummary, readErr error) {
	log := logging.Ctx(ctx)

	outcome := "completed"
	switch {
	case readErr != nil:
		outcome = "failed"
	case s.Canceled:
		outcome = "canceled"
	}
	metrics.IngestRuns.WithLabelValues(outcome).Inc()

	if s.TimestampFallbacks > 0 {
		log.Warn().
			Str("source", s.Source).
			Int64("count", s.TimestampFallbacks).
			Msg("Timestamps could not be parsed and were replaced with the ingest time")
	}

	event := log.Info()
	if readErr != nil {
		event = log.Error().Err(readErr)
	} else if s.FailedBatches > 0 || s.SecurityEventsLost > 0 {
		event = log.Warn()
	}
	event.
		Str("source", s.Source).
		Str("outcome", outcome).
		Int64("total_lines", s.TotalLines).
		Int64("parsed", s.ParsedSuccessfully).
		Int64("parse_errors", s.ParseErrors).
		Int64("inserted", s.InsertedToDB).
		Int64("failed_batches", s.FailedBatches).
		Int64("failed_rows", s.FailedRows).
		Int64("bots", s.BotsDetected).
		Int64("threats", s.ThreatsDetected).
		Dur("elapsed", s.ProcessingTime).
		Float64("lines_per_second", s.LinesPerSecond).
		Msg("Ingestion finished")
}

// storeContext detaches store writes from cancellation of ctx and bounds
// them with the configured store timeout.
func (p *Pipeline) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if p.cfg.StoreTimeout > 0 {
		return context.WithTimeout(ctx, p.cfg.StoreTimeout)
	}
	return ctx, func() {}
}
