// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package anomaly

import (
	"math"
	"sort"
)

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev is the n-1 standard deviation; zero for fewer than two values.
func sampleStdDev(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1))
}

// zScore returns |value-mean|/std capped at maxDeviationScore. A zero std
// with value != mean is treated as a maximal deviation.
func zScore(value, m, std float64) float64 {
	if std == 0 {
		if value == m {
			return 0
		}
		return maxDeviationScore
	}
	return math.Min(math.Abs(value-m)/std, maxDeviationScore)
}

func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
