// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package ingest

import (
	"testing"
	"time"
)

func TestRateTracker_ReportsEachEscalation(t *testing.T) {
	rt := NewRateTracker(time.Minute, 3, 100)
	defer rt.Close()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var crossings []int
	for i := 0; i < 30; i++ {
		count, crossed := rt.Observe("10.0.0.1", base.Add(time.Duration(i)*time.Second))
		if count != i+1 {
			t.Errorf("Observe #%d count = %d, want %d", i, count, i+1)
		}
		if crossed {
			crossings = append(crossings, count)
		}
	}
	// Bands start above 3 (medium), 6 (high) and 9 (critical) requests.
	want := []int{4, 7, 10}
	if len(crossings) != len(want) {
		t.Fatalf("crossings = %v, want %v", crossings, want)
	}
	for i := range want {
		if crossings[i] != want[i] {
			t.Errorf("crossings[%d] = %d, want %d", i, crossings[i], want[i])
		}
	}
}

func TestExcessLevel(t *testing.T) {
	tests := []struct {
		count, threshold, want int
	}{
		{5, 0, 0},
		{3, 3, 0},
		{4, 3, 1},
		{6, 3, 1},
		{7, 3, 2},
		{9, 3, 2},
		{10, 3, 3},
		{100, 3, 3},
	}
	for _, tt := range tests {
		if got := excessLevel(tt.count, tt.threshold); got != tt.want {
			t.Errorf("excessLevel(%d, %d) = %d, want %d", tt.count, tt.threshold, got, tt.want)
		}
	}
}

func TestRateTracker_NewWindowResets(t *testing.T) {
	rt := NewRateTracker(time.Minute, 1, 100)
	defer rt.Close()

	base := time.Date(2024, 1, 1, 12, 0, 30, 0, time.UTC)
	rt.Observe("10.0.0.1", base)
	if _, crossed := rt.Observe("10.0.0.1", base.Add(10*time.Second)); !crossed {
		t.Fatal("second request in window did not cross threshold 1")
	}

	// 12:01:05 is in the next fixed window.
	count, crossed := rt.Observe("10.0.0.1", base.Add(35*time.Second))
	if count != 1 || crossed {
		t.Errorf("first request of new window = (%d, %v), want (1, false)", count, crossed)
	}
	if _, crossed := rt.Observe("10.0.0.1", base.Add(40*time.Second)); !crossed {
		t.Error("threshold crossing in the new window was not reported")
	}
}

func TestRateTracker_IPsAreIndependent(t *testing.T) {
	rt := NewRateTracker(time.Minute, 1, 100)
	defer rt.Close()

	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rt.Observe("10.0.0.1", ts)
	if count, crossed := rt.Observe("10.0.0.2", ts); count != 1 || crossed {
		t.Errorf("other IP = (%d, %v), want (1, false)", count, crossed)
	}
	if rt.Size() != 2 {
		t.Errorf("Size() = %d, want 2", rt.Size())
	}
}

func TestRateTracker_Defaults(t *testing.T) {
	rt := NewRateTracker(0, 5, 0)
	defer rt.Close()

	if rt.Window() != DefaultRateWindow {
		t.Errorf("Window() = %v, want %v", rt.Window(), DefaultRateWindow)
	}
	if rt.Threshold() != 5 {
		t.Errorf("Threshold() = %d, want 5", rt.Threshold())
	}
}
