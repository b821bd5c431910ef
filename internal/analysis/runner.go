// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/loglens/internal/anomaly"
	"github.com/tomtom215/loglens/internal/config"
	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/metrics"
	"github.com/tomtom215/loglens/internal/models"
	"github.com/tomtom215/loglens/internal/sessionizer"
)

// ErrEmptyWindow is returned when a window does not end after it starts.
var ErrEmptyWindow = errors.New("analysis window is empty")

// Store is the read and write surface a Runner needs.
// It is satisfied by *database.DB.
type Store interface {
	RequestsBetween(ctx context.Context, from, to time.Time) ([]models.EnrichedRequest, error)
	TrafficSeries(ctx context.Context, from, to time.Time, bucket time.Duration) ([]models.MetricPoint, error)
	LatencySeries(ctx context.Context, from, to time.Time, bucket time.Duration, limit int) ([]models.MetricPoint, error)
	ErrorWindows(ctx context.Context, from, to time.Time, bucket time.Duration) ([]models.ErrorWindow, error)
	StatusEvents(ctx context.Context, from, to time.Time, bucket time.Duration) ([]models.StatusEvent, error)
	PathSeries(ctx context.Context, from, to time.Time, bucket time.Duration, limit int) ([]models.MetricPoint, error)
	InsertSessions(ctx context.Context, sessions []models.Session) error
	InsertAnomalies(ctx context.Context, anomalies []models.Anomaly) error
}

// Window is the half-open interval [From, To) an analysis run covers.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Report is the outcome of one analysis run.
type Report struct {
	Window         Window                `json:"window"`
	Requests       int                   `json:"requests"`
	Sessions       int                   `json:"sessions"`
	SessionMetrics models.SessionMetrics `json:"session_metrics"`
	CommonPaths    []models.PathPattern  `json:"common_paths"`
	Anomalies      []models.Anomaly      `json:"anomalies"`
	WindowMetrics  models.WindowMetrics  `json:"window_metrics"`
	AnomalyScore   float64               `json:"anomaly_score"`
	Duration       time.Duration         `json:"duration"`
}

// trafficMetrics are the TrafficSeries values judged against their
// trailing baseline.
var trafficMetrics = []string{
	models.MetricRequestCount,
	models.MetricUniqueIPs,
}

// Runner executes analysis runs. It holds no per-run state and is safe for
// concurrent use.
type Runner struct {
	store       Store
	groupBy     sessionizer.GroupStrategy
	timeout     time.Duration
	minPathFreq int
	anomaly     config.AnomalyConfig
	watched     []uint16
}

// NewRunner validates the sessionizer and anomaly settings and returns a
// Runner over store.
func NewRunner(store Store, sess *config.SessionizerConfig, an *config.AnomalyConfig) (*Runner, error) {
	if store == nil {
		return nil, errors.New("analysis store is required")
	}
	groupBy, err := sessionizer.ParseGroupStrategy(sess.GroupBy)
	if err != nil {
		return nil, err
	}
	if sess.Timeout <= 0 {
		return nil, fmt.Errorf("session timeout must be positive, got %s", sess.Timeout)
	}
	if an.Bucket <= 0 {
		return nil, fmt.Errorf("anomaly bucket must be positive, got %s", an.Bucket)
	}
	if an.WindowSize < 1 {
		return nil, fmt.Errorf("anomaly window size must be at least 1, got %d", an.WindowSize)
	}

	watched := an.StatusCodes()
	if len(watched) == 0 {
		watched = anomaly.DefaultWatchedStatusCodes
	}

	return &Runner{
		store:       store,
		groupBy:     groupBy,
		timeout:     sess.Timeout,
		minPathFreq: sess.MinPathFrequency,
		anomaly:     *an,
		watched:     watched,
	}, nil
}

// LatestWindow returns the lookback window ending at the start of the
// bucket that contains now. The bucket still being written is excluded.
func (r *Runner) LatestWindow(now time.Time) Window {
	to := now.UTC().Truncate(r.anomaly.Bucket)
	return Window{From: to.Add(-r.anomaly.Lookback), To: to}
}

// Run analyzes w: it sessionizes the stored requests, runs every anomaly
// detector, persists sessions and anomalies and scores the window.
func (r *Runner) Run(ctx context.Context, w Window) (report Report, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordAnalysisRun(time.Since(start), err)
	}()

	w = Window{From: w.From.UTC(), To: w.To.UTC()}
	if !w.To.After(w.From) {
		return Report{}, fmt.Errorf("%w: %s to %s", ErrEmptyWindow, w.From.Format(time.RFC3339), w.To.Format(time.RFC3339))
	}
	report.Window = w

	requests, err := r.store.RequestsBetween(ctx, w.From, w.To)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read requests: %w", err)
	}
	report.Requests = len(requests)

	sessions := sessionizer.SessionizeEnriched(requests, r.groupBy, r.timeout)
	report.Sessions = len(sessions)
	report.SessionMetrics = sessionizer.Metrics(sessions)
	report.CommonPaths = sessionizer.FindCommonPaths(sessions, r.minPathFreq)

	anomalies, wm, err := r.detect(ctx, w)
	if err != nil {
		return Report{}, err
	}
	assignIDs(anomalies)
	report.Anomalies = anomalies
	report.WindowMetrics = wm
	report.AnomalyScore = anomaly.AnomalyScore(wm)

	if err := r.store.InsertSessions(ctx, sessions); err != nil {
		return Report{}, fmt.Errorf("failed to store sessions: %w", err)
	}
	if err := r.store.InsertAnomalies(ctx, anomalies); err != nil {
		return Report{}, fmt.Errorf("failed to store anomalies: %w", err)
	}

	metrics.SessionsBuilt.Add(float64(len(sessions)))
	for i := range anomalies {
		metrics.AnomaliesDetected.WithLabelValues(string(anomalies[i].AnomalyType), string(anomalies[i].Severity)).Inc()
	}
	metrics.AnomalyScore.Set(report.AnomalyScore)

	report.Duration = time.Since(start)
	logging.Ctx(ctx).Info().
		Time("from", w.From).
		Time("to", w.To).
		Int("requests", report.Requests).
		Int("sessions", report.Sessions).
		Int("anomalies", len(anomalies)).
		Float64("anomaly_score", report.AnomalyScore).
		Dur("duration", report.Duration).
		Msg("Analysis run completed")

	return report, nil
}

// detect runs every detector family over w and returns the anomalies in
// time order together with the window's health figures.
func (r *Runner) detect(ctx context.Context, w Window) ([]models.Anomaly, models.WindowMetrics, error) {
	bucket := r.anomaly.Bucket
	var (
		found []models.Anomaly
		wm    models.WindowMetrics
	)

	traffic, err := r.store.TrafficSeries(ctx, w.From, w.To, bucket)
	if err != nil {
		return nil, wm, fmt.Errorf("failed to read traffic series: %w", err)
	}
	for _, metric := range trafficMetrics {
		found = append(found, anomaly.DetectTrafficAnomalies(traffic, metric, r.anomaly.WindowSize)...)
	}
	wm.TrafficVariance = coefficientOfVariation(traffic, models.MetricRequestCount)

	latency, err := r.store.LatencySeries(ctx, w.From, w.To, bucket, r.anomaly.TopPaths)
	if err != nil {
		return nil, wm, fmt.Errorf("failed to read latency series: %w", err)
	}
	latencyAnomalies := anomaly.DetectLatencyAnomalies(latency, models.MetricAvgResponseTime)
	found = append(found, latencyAnomalies...)
	wm.LatencyAnomalies = len(latencyAnomalies)

	windows, err := r.store.ErrorWindows(ctx, w.From, w.To, bucket)
	if err != nil {
		return nil, wm, fmt.Errorf("failed to read error windows: %w", err)
	}
	found = append(found, anomaly.DetectErrorRateAnomalies(windows)...)
	wm.ErrorRate = errorRate(windows)

	events, err := r.store.StatusEvents(ctx, w.From, w.To, bucket)
	if err != nil {
		return nil, wm, fmt.Errorf("failed to read status events: %w", err)
	}
	found = append(found, anomaly.DetectStatusCodeAnomalies(events, r.watched)...)

	paths, err := r.store.PathSeries(ctx, w.From, w.To, bucket, r.anomaly.TopPaths)
	if err != nil {
		return nil, wm, fmt.Errorf("failed to read path series: %w", err)
	}
	found = append(found, anomaly.DetectPathSpikes(paths, r.anomaly.MinPathRequests)...)

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Timestamp.Before(found[j].Timestamp)
	})
	return found, wm, nil
}
