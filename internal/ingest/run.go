// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/loglens/internal/classifier"
	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/metrics"
	"github.com/tomtom215/loglens/internal/models"
	"github.com/tomtom215/loglens/internal/parser"
	"github.com/tomtom215/loglens/internal/scanner"
)

// fallbackCounter counts timestamp fallbacks for one run and forwards them
// to Prometheus.
type fallbackCounter struct {
	n int64
}

func (c *fallbackCounter) TimestampFallback(format models.Format, _ string) {
	c.n++
	metrics.TimestampFallbacks.WithLabelValues(string(format)).Inc()
}

// run is the mutable state of one Pipeline.Run. It is owned by the
// goroutine driving that run.
type run struct {
	p         *Pipeline
	parser    *parser.Parser
	fallbacks *fallbackCounter
	rates     *RateTracker

	summary models.RunSummary
	clients classifier.Stats
	batch   []models.EnrichedRequest
	events  []models.SecurityEvent
	start   time.Time
}

func newRun(p *Pipeline, name string) *run {
	fc := &fallbackCounter{}
	r := &run{
		p:         p,
		parser:    parser.New(parser.WithSink(fc), parser.WithClock(p.now)),
		fallbacks: fc,
		summary:   models.RunSummary{Source: name, Format: p.format},
		batch:     make([]models.EnrichedRequest, 0, min(p.cfg.BatchSize, 4096)),
		start:     p.now(),
	}
	if !p.cfg.DisableSecurityScan && p.cfg.RateLimitThreshold > 0 {
		r.rates = NewRateTracker(p.cfg.RateLimitWindow, p.cfg.RateLimitThreshold, p.cfg.RateLimitMaxIPs)
	}
	return r
}

// processLine parses, classifies and scans one line and buffers the result.
func (r *run) processLine(line string) {
	format := string(r.p.format)
	r.summary.TotalLines++

	if strings.TrimSpace(line) == "" {
		r.summary.ParseErrors++
		metrics.LinesProcessed.WithLabelValues(format, "blank").Inc()
		return
	}

	req, err := r.parser.Parse(line, r.p.format)
	if err != nil {
		r.summary.ParseErrors++
		metrics.LinesProcessed.WithLabelValues(format, "parse_error").Inc()
		return
	}
	r.summary.ParsedSuccessfully++
	metrics.LinesProcessed.WithLabelValues(format, "parsed").Inc()

	enriched := models.EnrichedRequest{ParsedRequest: req}
	if !r.p.cfg.DisableBotDetection {
		enriched.Client = r.p.classifier.Classify(req.UserAgent, req.IPAddress)
		r.clients.Observe(enriched.Client)
	}
	if !r.p.cfg.DisableSecurityScan {
		enriched.Threats = r.scan(&enriched.ParsedRequest)
	}
	r.batch = append(r.batch, enriched)
}

// scan runs every security check for req and queues a security event per
// threat found.
func (r *run) scan(req *models.ParsedRequest) []models.SecurityThreat {
	threats := r.p.scanner.Scan(req.Path, req.QueryString, req.Method)

	if len(r.p.badIPs) > 0 {
		if t := scanner.CheckKnownBadIP(req.IPAddress, r.p.badIPs); t != nil {
			threats = append(threats, *t)
		}
	}

	if r.rates != nil {
		if count, crossed := r.rates.Observe(req.IPAddress, req.Timestamp); crossed {
			windowSeconds := int(r.rates.Window().Seconds())
			if t := scanner.CheckRateLimit(req.IPAddress, count, windowSeconds, r.rates.Threshold()); t != nil {
				threats = append(threats, *t)
			}
		}
	}

	for _, t := range threats {
		r.events = append(r.events, models.NewSecurityEvent(uuid.NewString(), req, t))
	}
	r.summary.ThreatsDetected += int64(len(threats))
	return threats
}

// flush writes the buffered batch and waits for the store to acknowledge it.
func (r *run) flush(ctx context.Context) {
	if len(r.batch) == 0 {
		return
	}
	batch := r.batch
	r.batch = make([]models.EnrichedRequest, 0, cap(batch))

	wctx, cancel := r.p.storeContext(ctx)
	defer cancel()

	start := time.Now()
	inserted, err := r.p.breaker.Execute(func() (int, error) {
		return r.p.store.InsertRequests(wctx, batch)
	})
	metrics.RecordBatchFlush(time.Since(start), len(batch), err)

	if err != nil {
		r.summary.FailedBatches++
		r.summary.FailedRows += int64(len(batch))
		logging.Ctx(ctx).Error().
			Err(err).
			Str("source", r.summary.Source).
			Int("rows", len(batch)).
			Str("breaker_state", r.p.breaker.State().String()).
			Msg("Failed to write request batch")
		return
	}

	r.summary.InsertedToDB += int64(inserted)
	if inserted < len(batch) {
		r.summary.FailedRows += int64(len(batch) - inserted)
	}
	logging.Ctx(ctx).Debug().
		Str("source", r.summary.Source).
		Int("rows", inserted).
		Dur("duration", time.Since(start)).
		Msg("Request batch written")
}

// flushSecurityEvents writes the run's security events and forwards them to
// the publisher. Failures are counted and logged only.
func (r *run) flushSecurityEvents(ctx context.Context) {
	if len(r.events) == 0 {
		return
	}
	events := r.events
	r.events = nil

	wctx, cancel := r.p.storeContext(ctx)
	defer cancel()

	err := r.p.store.InsertSecurityEvents(wctx, events)
	metrics.RecordSecurityEvents(len(events), err)
	if err != nil {
		r.summary.SecurityEventsLost += int64(len(events))
		logging.Ctx(ctx).Error().
			Err(err).
			Str("source", r.summary.Source).
			Int("events", len(events)).
			Msg("Failed to write security events")
	} else {
		r.summary.SecurityEvents += int64(len(events))
	}

	if r.p.publisher == nil {
		return
	}
	if err := r.p.publisher.PublishSecurityEvents(wctx, events); err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Int("events", len(events)).
			Msg("Failed to publish security events")
	}
}

// finish fills in the derived summary fields and releases run resources.
func (r *run) finish() models.RunSummary {
	s := r.summary
	s.ProcessingTime = r.p.now().Sub(r.start)
	s.LinesPerSecond = models.Throughput(s.TotalLines, s.ProcessingTime)
	s.BotsDetected = r.clients.Bots
	s.HumansDetected = r.clients.Humans
	s.TimestampFallbacks = r.fallbacks.n

	if r.rates != nil {
		metrics.RateTrackerEntries.Set(float64(r.rates.Size()))
		r.rates.Close()
	}
	return s
}
