// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package analysis

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/loglens/internal/config"
	"github.com/tomtom215/loglens/internal/models"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeStore serves canned series and records what the runner writes back.
type fakeStore struct {
	mu sync.Mutex

	requests []models.EnrichedRequest
	traffic  []models.MetricPoint
	latency  []models.MetricPoint
	windows  []models.ErrorWindow
	events   []models.StatusEvent
	paths    []models.MetricPoint

	trafficErr error
	insertErr  error

	from, to  time.Time
	sessions  []models.Session
	anomalies []models.Anomaly
}

func (f *fakeStore) RequestsBetween(_ context.Context, from, to time.Time) ([]models.EnrichedRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.from, f.to = from, to
	return f.requests, nil
}

func (f *fakeStore) TrafficSeries(context.Context, time.Time, time.Time, time.Duration) ([]models.MetricPoint, error) {
	return f.traffic, f.trafficErr
}

func (f *fakeStore) LatencySeries(context.Context, time.Time, time.Time, time.Duration, int) ([]models.MetricPoint, error) {
	return f.latency, nil
}

func (f *fakeStore) ErrorWindows(context.Context, time.Time, time.Time, time.Duration) ([]models.ErrorWindow, error) {
	return f.windows, nil
}

func (f *fakeStore) StatusEvents(context.Context, time.Time, time.Time, time.Duration) ([]models.StatusEvent, error) {
	return f.events, nil
}

func (f *fakeStore) PathSeries(context.Context, time.Time, time.Time, time.Duration, int) ([]models.MetricPoint, error) {
	return f.paths, nil
}

func (f *fakeStore) InsertSessions(_ context.Context, sessions []models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.sessions = append(f.sessions, sessions...)
	return nil
}

func (f *fakeStore) InsertAnomalies(_ context.Context, anomalies []models.Anomaly) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.anomalies = append(f.anomalies, anomalies...)
	return nil
}

func request(ip, path string, at time.Duration) models.EnrichedRequest {
	return models.EnrichedRequest{
		ParsedRequest: models.ParsedRequest{
			Timestamp:  t0.Add(at),
			Method:     "GET",
			Path:       path,
			StatusCode: 200,
			IPAddress:  ip,
			UserAgent:  "Mozilla/5.0",
		},
	}
}

func hourly(values ...float64) []models.MetricPoint {
	points := make([]models.MetricPoint, len(values))
	for i, v := range values {
		points[i] = models.MetricPoint{
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			Values:    map[string]float64{models.MetricRequestCount: v},
		}
	}
	return points
}

// spikeStore has one traffic spike, one critical error window and three
// sessions across two IPs.
func spikeStore() *fakeStore {
	values := make([]float64, 36)
	for i := range values {
		values[i] = 1000
	}
	values[30] = 5000

	return &fakeStore{
		requests: []models.EnrichedRequest{
			request("10.0.0.1", "/", 0),
			request("10.0.0.1", "/products", 10*time.Minute),
			request("10.0.0.1", "/", 3*time.Hour),
			request("10.0.0.2", "/", 5*time.Minute),
		},
		traffic: hourly(values...),
		windows: []models.ErrorWindow{
			{Timestamp: t0.Add(31 * time.Hour), TotalRequests: 100, ErrorCount: 25, ErrorBreakdown: map[uint16]int64{500: 25}},
		},
	}
}

func testConfigs() (*config.SessionizerConfig, *config.AnomalyConfig) {
	cfg := config.Defaults()
	cfg.Sessionizer.GroupBy = "ip"
	cfg.Sessionizer.MinPathFrequency = 1
	return &cfg.Sessionizer, &cfg.Anomaly
}

func newTestRunner(t *testing.T, store Store) *Runner {
	t.Helper()
	sess, an := testConfigs()
	r, err := NewRunner(store, sess, an)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	return r
}

func TestRunner_Run(t *testing.T) {
	store := spikeStore()
	r := newTestRunner(t, store)

	w := Window{From: t0, To: t0.Add(36 * time.Hour)}
	report, err := r.Run(context.Background(), w)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Requests != 4 {
		t.Errorf("Requests = %d, want 4", report.Requests)
	}
	if report.Sessions != 3 {
		t.Errorf("Sessions = %d, want 3", report.Sessions)
	}
	if report.SessionMetrics.TotalSessions != 3 {
		t.Errorf("SessionMetrics.TotalSessions = %d, want 3", report.SessionMetrics.TotalSessions)
	}
	if len(store.sessions) != 3 {
		t.Errorf("stored sessions = %d, want 3", len(store.sessions))
	}

	if len(report.Anomalies) != 2 {
		t.Fatalf("Anomalies = %+v, want a traffic spike and an error rate anomaly", report.Anomalies)
	}
	if report.Anomalies[0].AnomalyType != models.AnomalyTrafficSpike {
		t.Errorf("Anomalies[0].AnomalyType = %q, want %q", report.Anomalies[0].AnomalyType, models.AnomalyTrafficSpike)
	}
	if report.Anomalies[1].AnomalyType != models.AnomalyErrorRate {
		t.Errorf("Anomalies[1].AnomalyType = %q, want %q", report.Anomalies[1].AnomalyType, models.AnomalyErrorRate)
	}
	for _, a := range report.Anomalies {
		if a.AnomalyID == "" {
			t.Errorf("anomaly %s has no ID", a.AnomalyType)
		}
	}
	if len(store.anomalies) != 2 {
		t.Errorf("stored anomalies = %d, want 2", len(store.anomalies))
	}

	if report.WindowMetrics.ErrorRate != 25 {
		t.Errorf("ErrorRate = %v, want 25", report.WindowMetrics.ErrorRate)
	}
	if report.WindowMetrics.LatencyAnomalies != 0 {
		t.Errorf("LatencyAnomalies = %d, want 0", report.WindowMetrics.LatencyAnomalies)
	}
	// Variance and error rate both saturate: 0.3 + 0.4.
	if report.AnomalyScore != 0.7 {
		t.Errorf("AnomalyScore = %v, want 0.7", report.AnomalyScore)
	}
	if !report.Window.From.Equal(w.From) || !report.Window.To.Equal(w.To) {
		t.Errorf("Window = %+v, want %+v", report.Window, w)
	}
}

func TestRunner_Run_StableAnomalyIDs(t *testing.T) {
	w := Window{From: t0, To: t0.Add(36 * time.Hour)}

	first, err := newTestRunner(t, spikeStore()).Run(context.Background(), w)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := newTestRunner(t, spikeStore()).Run(context.Background(), w)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(first.Anomalies) != len(second.Anomalies) {
		t.Fatalf("anomaly counts differ: %d vs %d", len(first.Anomalies), len(second.Anomalies))
	}
	for i := range first.Anomalies {
		if first.Anomalies[i].AnomalyID != second.Anomalies[i].AnomalyID {
			t.Errorf("anomaly %d ID = %s then %s", i, first.Anomalies[i].AnomalyID, second.Anomalies[i].AnomalyID)
		}
	}
}

func TestRunner_Run_EmptyWindow(t *testing.T) {
	r := newTestRunner(t, &fakeStore{})

	for _, w := range []Window{
		{From: t0, To: t0},
		{From: t0.Add(time.Hour), To: t0},
	} {
		if _, err := r.Run(context.Background(), w); !errors.Is(err, ErrEmptyWindow) {
			t.Errorf("Run(%v) error = %v, want ErrEmptyWindow", w, err)
		}
	}
}

func TestRunner_Run_StoreErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("read", func(t *testing.T) {
		store := spikeStore()
		store.trafficErr = boom
		_, err := newTestRunner(t, store).Run(context.Background(), Window{From: t0, To: t0.Add(36 * time.Hour)})
		if !errors.Is(err, boom) {
			t.Fatalf("Run() error = %v, want %v", err, boom)
		}
		if len(store.sessions) != 0 || len(store.anomalies) != 0 {
			t.Errorf("wrote %d sessions and %d anomalies after a failed read", len(store.sessions), len(store.anomalies))
		}
	})

	t.Run("write", func(t *testing.T) {
		store := spikeStore()
		store.insertErr = boom
		_, err := newTestRunner(t, store).Run(context.Background(), Window{From: t0, To: t0.Add(36 * time.Hour)})
		if !errors.Is(err, boom) {
			t.Fatalf("Run() error = %v, want %v", err, boom)
		}
		if len(store.anomalies) != 0 {
			t.Errorf("wrote %d anomalies after sessions failed", len(store.anomalies))
		}
	})
}

func TestRunner_LatestWindow(t *testing.T) {
	r := newTestRunner(t, &fakeStore{})

	now := t0.Add(10*time.Hour + 37*time.Minute)
	got := r.LatestWindow(now)

	wantTo := t0.Add(10 * time.Hour)
	if !got.To.Equal(wantTo) {
		t.Errorf("To = %v, want %v", got.To, wantTo)
	}
	if want := wantTo.Add(-7 * 24 * time.Hour); !got.From.Equal(want) {
		t.Errorf("From = %v, want %v", got.From, want)
	}
}

func TestNewRunner_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.SessionizerConfig, *config.AnomalyConfig)
	}{
		{"unknown grouping", func(s *config.SessionizerConfig, _ *config.AnomalyConfig) { s.GroupBy = "cookie" }},
		{"zero timeout", func(s *config.SessionizerConfig, _ *config.AnomalyConfig) { s.Timeout = 0 }},
		{"zero bucket", func(_ *config.SessionizerConfig, a *config.AnomalyConfig) { a.Bucket = 0 }},
		{"zero window", func(_ *config.SessionizerConfig, a *config.AnomalyConfig) { a.WindowSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, an := testConfigs()
			tt.mutate(sess, an)
			if _, err := NewRunner(&fakeStore{}, sess, an); err == nil {
				t.Error("NewRunner() error = nil, want error")
			}
		})
	}

	sess, an := testConfigs()
	if _, err := NewRunner(nil, sess, an); err == nil {
		t.Error("NewRunner(nil store) error = nil, want error")
	}
}

func TestAnomalyID(t *testing.T) {
	a := models.Anomaly{
		AnomalyType: models.AnomalyPathSpike,
		MetricName:  "Traffic to /login",
		Timestamp:   t0,
		Context:     map[string]any{"path": "/login", "multiplier": 3.5},
	}
	b := a
	b.Context = map[string]any{"multiplier": 3.5, "path": "/login"}

	if AnomalyID(&a) != AnomalyID(&b) {
		t.Error("AnomalyID differs for equal anomalies")
	}

	c := a
	c.Timestamp = t0.Add(time.Hour)
	if AnomalyID(&a) == AnomalyID(&c) {
		t.Error("AnomalyID equal for anomalies in different buckets")
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"flat", []float64{10, 10, 10}, 0},
		{"zero mean", []float64{0, 0}, 0},
		{"two points", []float64{5, 15}, 50},
	}
	for _, tt := range tests {
		got := coefficientOfVariation(hourly(tt.values...), models.MetricRequestCount)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: coefficientOfVariation = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestErrorRate(t *testing.T) {
	windows := []models.ErrorWindow{
		{TotalRequests: 90, ErrorCount: 5},
		{TotalRequests: 10, ErrorCount: 5},
	}
	if got := errorRate(windows); got != 10 {
		t.Errorf("errorRate = %v, want 10", got)
	}
	if got := errorRate(nil); got != 0 {
		t.Errorf("errorRate(nil) = %v, want 0", got)
	}
}
