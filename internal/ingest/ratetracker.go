// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package ingest

import (
	"time"

	"github.com/maypok86/otter"
)

// DefaultRateWindow is used when no window is configured.
const DefaultRateWindow = time.Minute

// rateWindow counts one IP's requests in one fixed window.
type rateWindow struct {
	start time.Time
	count int
	level int
}

// RateTracker counts requests per IP in fixed windows aligned to the window
// length. It holds at most maxIPs windows; the least recently used IPs are
// evicted first and start a fresh count if seen again.
//
// A RateTracker is owned by one run and is not safe for concurrent use.
type RateTracker struct {
	window    time.Duration
	threshold int
	cache     otter.Cache[string, *rateWindow]
}

// NewRateTracker creates a tracker reporting IPs that exceed threshold
// requests per window.
func NewRateTracker(window time.Duration, threshold, maxIPs int) *RateTracker {
	if window <= 0 {
		window = DefaultRateWindow
	}
	if maxIPs <= 0 {
		maxIPs = 100_000
	}
	cache, err := otter.MustBuilder[string, *rateWindow](maxIPs).
		Cost(func(_ string, _ *rateWindow) uint32 { return 1 }).
		Build()
	if err != nil {
		panic("ingest: failed to create rate tracker: " + err.Error())
	}
	return &RateTracker{window: window, threshold: threshold, cache: cache}
}

// Window returns the window length.
func (t *RateTracker) Window() time.Duration {
	return t.window
}

// Threshold returns the per-window request limit.
func (t *RateTracker) Threshold() int {
	return t.threshold
}

// Observe counts one request from ip at ts and returns the IP's count in
// the window containing ts. crossed is true on the request that first takes
// the count above the threshold, and again each time the excess moves the
// IP into a higher severity band (see scanner.CheckRateLimit). An IP is
// therefore reported at most three times per window.
func (t *RateTracker) Observe(ip string, ts time.Time) (count int, crossed bool) {
	start := ts.Truncate(t.window)

	w, ok := t.cache.Get(ip)
	if !ok || !w.start.Equal(start) {
		w = &rateWindow{start: start}
		t.cache.Set(ip, w)
	}
	w.count++

	if lvl := excessLevel(w.count, t.threshold); lvl > w.level {
		w.level = lvl
		return w.count, true
	}
	return w.count, false
}

// excessLevel maps a window count to its severity band: 0 within the
// threshold, then 1 (medium), 2 (high) and 3 (critical).
func excessLevel(count, threshold int) int {
	if threshold <= 0 || count <= threshold {
		return 0
	}
	switch excess := count - threshold; {
	case excess > 2*threshold:
		return 3
	case excess > threshold:
		return 2
	default:
		return 1
	}
}

// Size returns the number of tracked IPs.
func (t *RateTracker) Size() int {
	return t.cache.Size()
}

// Close releases the cache.
func (t *RateTracker) Close() {
	t.cache.Close()
}
