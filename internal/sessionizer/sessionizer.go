// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package sessionizer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/tomtom215/loglens/internal/metrics"
	"github.com/tomtom215/loglens/internal/models"
)

// DefaultTimeout is the inactivity gap that ends a session.
const DefaultTimeout = 30 * time.Minute

// GroupStrategy selects the client identity requests are bucketed by.
type GroupStrategy string

const (
	// BySessionID groups on the parser-derived session key and falls back
	// to the IP address for requests without one.
	BySessionID GroupStrategy = "session_id"
	// ByIP groups on the client address alone.
	ByIP GroupStrategy = "ip"
	// ByIPAndUserAgent groups on the address and user agent pair.
	ByIPAndUserAgent GroupStrategy = "ip_user_agent"
)

// ParseGroupStrategy converts a configuration value to a GroupStrategy.
func ParseGroupStrategy(s string) (GroupStrategy, error) {
	switch g := GroupStrategy(strings.ToLower(strings.TrimSpace(s))); g {
	case BySessionID, ByIP, ByIPAndUserAgent:
		return g, nil
	case "":
		return BySessionID, nil
	default:
		return "", fmt.Errorf("unknown session grouping %q (want session_id, ip or ip_user_agent)", s)
	}
}

// ConversionPaths are the request paths that mark a session as converted.
var ConversionPaths = []string{
	"/checkout/complete",
	"/purchase/success",
	"/signup/complete",
	"/order/confirmation",
}

// IsConversionPath reports whether path is a conversion goal.
func IsConversionPath(path string) bool {
	for _, p := range ConversionPaths {
		if path == p {
			return true
		}
	}
	return false
}

// entry is a request with the bot flag carried alongside it.
type entry struct {
	req   *models.ParsedRequest
	isBot bool
}

// Sessionize groups requests into sessions. Requests sharing a grouping key
// are ordered by time and split wherever two consecutive requests are more
// than timeout apart. A non-positive timeout uses DefaultTimeout.
//
// The result is ordered by start time and is identical for identical input.
func Sessionize(requests []models.ParsedRequest, groupBy GroupStrategy, timeout time.Duration) []models.Session {
	entries := make([]entry, len(requests))
	for i := range requests {
		entries[i] = entry{req: &requests[i]}
	}
	return build(entries, groupBy, timeout)
}

// SessionizeEnriched is Sessionize for classified requests; the session's
// bot flag comes from its first request.
func SessionizeEnriched(requests []models.EnrichedRequest, groupBy GroupStrategy, timeout time.Duration) []models.Session {
	entries := make([]entry, len(requests))
	for i := range requests {
		entries[i] = entry{req: &requests[i].ParsedRequest, isBot: requests[i].Client.IsBot}
	}
	return build(entries, groupBy, timeout)
}

// Groups returns the time-ordered requests of each session, in the same
// order Sessionize returns the sessions.
func Groups(requests []models.ParsedRequest, groupBy GroupStrategy, timeout time.Duration) [][]models.ParsedRequest {
	entries := make([]entry, len(requests))
	for i := range requests {
		entries[i] = entry{req: &requests[i]}
	}

	segments := split(entries, groupBy, timeout)
	out := make([][]models.ParsedRequest, len(segments))
	for i, seg := range segments {
		reqs := make([]models.ParsedRequest, len(seg.entries))
		for j, e := range seg.entries {
			reqs[j] = *e.req
		}
		out[i] = reqs
	}
	return out
}

type segment struct {
	key     string
	entries []entry
}

func build(entries []entry, groupBy GroupStrategy, timeout time.Duration) []models.Session {
	segments := split(entries, groupBy, timeout)
	sessions := make([]models.Session, 0, len(segments))
	for _, seg := range segments {
		sessions = append(sessions, summarize(seg))
	}
	metrics.SessionsBuilt.Add(float64(len(sessions)))
	return sessions
}

// split buckets entries by key, orders each bucket by time and cuts it at
// every gap longer than timeout.
func split(entries []entry, groupBy GroupStrategy, timeout time.Duration) []segment {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	buckets := make(map[string][]entry)
	for _, e := range entries {
		key := groupKey(e.req, groupBy)
		if key == "" {
			continue
		}
		buckets[key] = append(buckets[key], e)
	}

	var segments []segment
	for key, bucket := range buckets {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].req.Timestamp.Before(bucket[j].req.Timestamp)
		})

		start := 0
		for i := 1; i < len(bucket); i++ {
			if bucket[i].req.Timestamp.Sub(bucket[i-1].req.Timestamp) > timeout {
				segments = append(segments, segment{key: key, entries: bucket[start:i]})
				start = i
			}
		}
		segments = append(segments, segment{key: key, entries: bucket[start:]})
	}

	sort.Slice(segments, func(i, j int) bool {
		a, b := segments[i].entries[0].req.Timestamp, segments[j].entries[0].req.Timestamp
		if !a.Equal(b) {
			return a.Before(b)
		}
		return segments[i].key < segments[j].key
	})
	return segments
}

func groupKey(r *models.ParsedRequest, groupBy GroupStrategy) string {
	switch groupBy {
	case ByIP:
		return r.IPAddress
	case ByIPAndUserAgent:
		if r.IPAddress == "" {
			return ""
		}
		return r.IPAddress + "\x00" + r.UserAgent
	default:
		if r.SessionID != "" {
			return r.SessionID
		}
		return r.IPAddress
	}
}

// sessionID derives a stable identifier from the grouping key and the
// session start, so re-running over the same data yields the same IDs.
func sessionID(key string, start time.Time) string {
	return fmt.Sprintf("%016x", xxh3.HashString(key+"\x00"+start.UTC().Format(time.RFC3339Nano)))
}

func summarize(seg segment) models.Session {
	first := seg.entries[0]
	last := seg.entries[len(seg.entries)-1]

	pages := make(map[string]struct{}, len(seg.entries))
	var (
		totalBytes uint64
		totalRT    uint64
		converted  bool
	)
	for _, e := range seg.entries {
		pages[e.req.Path] = struct{}{}
		totalBytes += e.req.ResponseBytes
		totalRT += uint64(e.req.ResponseTime())
		if IsConversionPath(e.req.Path) {
			converted = true
		}
	}

	start, end := first.req.Timestamp, last.req.Timestamp
	views := len(seg.entries)

	return models.Session{
		SessionID:         sessionID(seg.key, start),
		StartTime:         start,
		EndTime:           end,
		DurationSeconds:   int64(end.Sub(start) / time.Second),
		PageViews:         views,
		UniquePages:       len(pages),
		TotalBytes:        totalBytes,
		AvgResponseTimeMS: float64(totalRT) / float64(views),
		EntryPage:         first.req.Path,
		ExitPage:          last.req.Path,
		IsBounce:          views == 1,
		Converted:         converted,
		IPAddress:         first.req.IPAddress,
		UserAgent:         first.req.UserAgent,
		IsBot:             first.isBot,
	}
}

// Engagement weights.
const (
	durationWeight    = 0.3
	depthWeight       = 0.4
	conversionWeight  = 0.3
	durationSaturates = 300.0 // seconds
	depthSaturates    = 10.0  // page views
)

// EngagementScore rates a session in [0, 1]: duration contributes up to
// 0.3 (full at five minutes), page depth up to 0.4 (full at ten views) and
// a conversion a flat 0.3. The score is rounded to two decimals.
func EngagementScore(s models.Session) float64 {
	duration := clamp01(float64(s.DurationSeconds) / durationSaturates)
	depth := clamp01(float64(s.PageViews) / depthSaturates)

	score := duration*durationWeight + depth*depthWeight
	if s.Converted {
		score += conversionWeight
	}
	return round2(clamp01(score))
}

// FindCommonPaths counts "entry → exit" pairs across sessions and returns
// those seen at least minFrequency times, most frequent first.
func FindCommonPaths(sessions []models.Session, minFrequency int) []models.PathPattern {
	counts := make(map[string]int)
	for _, s := range sessions {
		counts[s.EntryPage+" → "+s.ExitPage]++
	}

	var patterns []models.PathPattern
	for pattern, freq := range counts {
		if freq < minFrequency {
			continue
		}
		patterns = append(patterns, models.PathPattern{
			Pattern:      pattern,
			Frequency:    freq,
			IsConversion: containsConversion(pattern),
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Frequency != patterns[j].Frequency {
			return patterns[i].Frequency > patterns[j].Frequency
		}
		return patterns[i].Pattern < patterns[j].Pattern
	})
	return patterns
}

func containsConversion(pattern string) bool {
	for _, p := range ConversionPaths {
		if strings.Contains(pattern, p) {
			return true
		}
	}
	return false
}

// Metrics aggregates session-level reporting figures.
func Metrics(sessions []models.Session) models.SessionMetrics {
	m := models.SessionMetrics{TotalSessions: len(sessions)}
	if len(sessions) == 0 {
		return m
	}

	var duration, views, bounces, conversions float64
	for _, s := range sessions {
		duration += float64(s.DurationSeconds)
		views += float64(s.PageViews)
		if s.IsBounce {
			bounces++
		}
		if s.Converted {
			conversions++
		}
		if s.IsBot {
			m.BotSessions++
		}
	}

	n := float64(len(sessions))
	m.AvgDurationSeconds = round2(duration / n)
	m.AvgPageViews = round2(views / n)
	m.BounceRate = round2(bounces / n * 100)
	m.ConversionRate = round2(conversions / n * 100)
	return m
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func round2(v float64) float64 {
	if v < 0 {
		return -round2(-v)
	}
	return float64(int64(v*100+0.5)) / 100
}
