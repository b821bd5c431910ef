// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package sessionizer

import (
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/tomtom215/loglens/internal/models"
	"github.com/tomtom215/loglens/internal/parser"
)

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func req(ip, ua, path string, offset time.Duration) models.ParsedRequest {
	return models.ParsedRequest{
		Timestamp:      base.Add(offset),
		Method:         "GET",
		Path:           path,
		StatusCode:     200,
		ResponseBytes:  1000,
		ResponseTimeMS: models.Uint32Ptr(100),
		IPAddress:      ip,
		UserAgent:      ua,
		SessionID:      parser.SessionID(ip, ua),
	}
}

func sampleRequests() []models.ParsedRequest {
	return []models.ParsedRequest{
		req("10.0.0.1", "Firefox", "/", 0),
		req("10.0.0.2", "Chrome", "/", time.Minute),
		req("10.0.0.1", "Firefox", "/product/1", 2*time.Minute),
		req("10.0.0.1", "Firefox", "/cart", 4*time.Minute),
		req("10.0.0.2", "Chrome", "/about", 90*time.Minute),
		req("10.0.0.1", "Firefox", "/checkout/complete", 5*time.Minute),
	}
}

func sortedIDs(sessions []models.Session) []string {
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	sort.Strings(ids)
	return ids
}

func TestSessionize_Idempotent(t *testing.T) {
	t.Parallel()

	reqs := sampleRequests()
	first := Sessionize(reqs, BySessionID, DefaultTimeout)
	second := Sessionize(reqs, BySessionID, DefaultTimeout)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Sessionize not idempotent:\n first  = %+v\n second = %+v", first, second)
	}

	// Shuffled input yields the same set.
	shuffled := []models.ParsedRequest{reqs[5], reqs[4], reqs[3], reqs[2], reqs[1], reqs[0]}
	third := Sessionize(shuffled, BySessionID, DefaultTimeout)
	if !reflect.DeepEqual(sortedIDs(first), sortedIDs(third)) {
		t.Errorf("session IDs depend on input order: %v vs %v", sortedIDs(first), sortedIDs(third))
	}
}

func TestSessionize_SplitsOnInactivity(t *testing.T) {
	t.Parallel()

	reqs := []models.ParsedRequest{
		req("10.0.0.1", "Firefox", "/", 0),
		req("10.0.0.1", "Firefox", "/a", 10*time.Minute),
		req("10.0.0.1", "Firefox", "/b", 10*time.Minute+DefaultTimeout+time.Second),
	}

	sessions := Sessionize(reqs, BySessionID, DefaultTimeout)
	if len(sessions) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(sessions))
	}
	if sessions[0].PageViews != 2 || sessions[1].PageViews != 1 {
		t.Errorf("page views = %d, %d, want 2, 1", sessions[0].PageViews, sessions[1].PageViews)
	}
	if sessions[0].SessionID == sessions[1].SessionID {
		t.Error("split sessions share an ID")
	}

	// A gap of exactly the timeout does not split.
	reqs[2].Timestamp = reqs[1].Timestamp.Add(DefaultTimeout)
	if got := len(Sessionize(reqs, BySessionID, DefaultTimeout)); got != 1 {
		t.Errorf("gap == timeout produced %d sessions, want 1", got)
	}
}

func TestSessionize_Metrics(t *testing.T) {
	t.Parallel()

	sessions := Sessionize(sampleRequests(), BySessionID, DefaultTimeout)
	if len(sessions) != 3 {
		t.Fatalf("len(sessions) = %d, want 3", len(sessions))
	}

	s := sessions[0]
	if s.IPAddress != "10.0.0.1" {
		t.Fatalf("first session IP = %q, want 10.0.0.1", s.IPAddress)
	}
	if s.PageViews != 4 || s.UniquePages != 4 {
		t.Errorf("views/unique = %d/%d, want 4/4", s.PageViews, s.UniquePages)
	}
	if s.DurationSeconds != 300 {
		t.Errorf("DurationSeconds = %d, want 300", s.DurationSeconds)
	}
	if s.TotalBytes != 4000 {
		t.Errorf("TotalBytes = %d, want 4000", s.TotalBytes)
	}
	if s.AvgResponseTimeMS != 100 {
		t.Errorf("AvgResponseTimeMS = %v, want 100", s.AvgResponseTimeMS)
	}
	if s.EntryPage != "/" || s.ExitPage != "/checkout/complete" {
		t.Errorf("entry/exit = %q/%q", s.EntryPage, s.ExitPage)
	}
	if !s.Converted || s.IsBounce {
		t.Errorf("converted/bounce = %v/%v, want true/false", s.Converted, s.IsBounce)
	}
	if !s.StartTime.Before(s.EndTime) {
		t.Errorf("start %v not before end %v", s.StartTime, s.EndTime)
	}

	// 10.0.0.2 is split by the 89 minute gap into two bounces.
	for _, s := range sessions[1:] {
		if s.IPAddress != "10.0.0.2" || !s.IsBounce {
			t.Errorf("session %+v, want bounce from 10.0.0.2", s)
		}
	}
}

func TestSessionize_MissingResponseTimeCountsAsZero(t *testing.T) {
	t.Parallel()

	a := req("10.0.0.1", "ua", "/", 0)
	b := req("10.0.0.1", "ua", "/x", time.Second)
	b.ResponseTimeMS = nil

	sessions := Sessionize([]models.ParsedRequest{a, b}, ByIP, DefaultTimeout)
	if len(sessions) != 1 {
		t.Fatalf("len(sessions) = %d, want 1", len(sessions))
	}
	if got := sessions[0].AvgResponseTimeMS; got != 50 {
		t.Errorf("AvgResponseTimeMS = %v, want 50", got)
	}
}

func TestSessionize_GroupStrategies(t *testing.T) {
	t.Parallel()

	reqs := []models.ParsedRequest{
		req("10.0.0.1", "Firefox", "/", 0),
		req("10.0.0.1", "Chrome", "/", time.Minute),
		req("10.0.0.2", "Firefox", "/", 2*time.Minute),
	}
	noKey := req("", "", "/", 3*time.Minute)
	noKey.SessionID = ""
	reqs = append(reqs, noKey)

	tests := []struct {
		groupBy GroupStrategy
		want    int
	}{
		{BySessionID, 3},
		{ByIP, 2},
		{ByIPAndUserAgent, 3},
	}
	for _, tt := range tests {
		if got := len(Sessionize(reqs, tt.groupBy, DefaultTimeout)); got != tt.want {
			t.Errorf("Sessionize(%s) produced %d sessions, want %d", tt.groupBy, got, tt.want)
		}
	}
}

func TestSessionize_SessionIDFallsBackToIP(t *testing.T) {
	t.Parallel()

	a := req("10.0.0.1", "", "/", 0)
	b := req("10.0.0.1", "", "/b", time.Minute)
	if a.SessionID != "" {
		t.Fatalf("SessionID = %q, want empty for empty user agent", a.SessionID)
	}

	sessions := Sessionize([]models.ParsedRequest{a, b}, BySessionID, 0)
	if len(sessions) != 1 || sessions[0].PageViews != 2 {
		t.Errorf("sessions = %+v, want one session of two views", sessions)
	}
}

func TestSessionizeEnriched_BotFlag(t *testing.T) {
	t.Parallel()

	reqs := []models.EnrichedRequest{
		{ParsedRequest: req("10.0.0.9", "Googlebot", "/", 0), Client: models.ClientClassification{IsBot: true}},
		{ParsedRequest: req("10.0.0.9", "Googlebot", "/robots.txt", time.Second), Client: models.ClientClassification{IsBot: true}},
		{ParsedRequest: req("10.0.0.1", "Firefox", "/", 0)},
	}

	sessions := SessionizeEnriched(reqs, BySessionID, DefaultTimeout)
	var bots int
	for _, s := range sessions {
		if s.IsBot {
			bots++
		}
	}
	if bots != 1 {
		t.Errorf("bot sessions = %d, want 1", bots)
	}
	if m := Metrics(sessions); m.BotSessions != 1 {
		t.Errorf("Metrics.BotSessions = %d, want 1", m.BotSessions)
	}
}

func TestGroups_MatchSessions(t *testing.T) {
	t.Parallel()

	reqs := sampleRequests()
	groups := Groups(reqs, BySessionID, DefaultTimeout)
	sessions := Sessionize(reqs, BySessionID, DefaultTimeout)

	if len(groups) != len(sessions) {
		t.Fatalf("len(groups) = %d, len(sessions) = %d", len(groups), len(sessions))
	}
	for i := range groups {
		if len(groups[i]) != sessions[i].PageViews {
			t.Errorf("group %d has %d requests, session has %d views", i, len(groups[i]), sessions[i].PageViews)
		}
	}
}

func TestParseGroupStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    GroupStrategy
		wantErr bool
	}{
		{"", BySessionID, false},
		{"session_id", BySessionID, false},
		{"IP", ByIP, false},
		{"ip_user_agent", ByIPAndUserAgent, false},
		{"cookie", "", true},
	}
	for _, tt := range tests {
		got, err := ParseGroupStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseGroupStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseGroupStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEngagementScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		session models.Session
		want    float64
	}{
		{"saturated and converted", models.Session{DurationSeconds: 600, PageViews: 20, Converted: true}, 1.0},
		{"bounce", models.Session{DurationSeconds: 0, PageViews: 1}, 0.04},
		{"half way", models.Session{DurationSeconds: 150, PageViews: 5}, 0.35},
		{"converted only", models.Session{Converted: true}, 0.3},
		{"empty", models.Session{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := EngagementScore(tt.session); got != tt.want {
				t.Errorf("EngagementScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeJourney(t *testing.T) {
	t.Parallel()

	reqs := []models.ParsedRequest{
		req("10.0.0.1", "ua", "/product/7", 30*time.Second),
		req("10.0.0.1", "ua", "/", 0),
		req("10.0.0.1", "ua", "/cart", 90*time.Second),
		req("10.0.0.1", "ua", "/checkout", 120*time.Second),
	}
	reqs[2].StatusCode = 500

	j := AnalyzeJourney(reqs)

	wantPaths := []string{"/", "/product/7", "/cart", "/checkout"}
	if !reflect.DeepEqual(j.PathSequence, wantPaths) {
		t.Errorf("PathSequence = %v, want %v", j.PathSequence, wantPaths)
	}
	wantTimes := []models.PageTime{
		{Page: "/", Seconds: 30},
		{Page: "/product/7", Seconds: 60},
		{Page: "/cart", Seconds: 30},
	}
	if !reflect.DeepEqual(j.TimeOnPage, wantTimes) {
		t.Errorf("TimeOnPage = %v, want %v", j.TimeOnPage, wantTimes)
	}
	if j.Errors != 1 || !reflect.DeepEqual(j.ErrorPaths, []string{"/cart"}) {
		t.Errorf("errors = %d %v, want 1 [/cart]", j.Errors, j.ErrorPaths)
	}
	if j.TotalPages != 4 || j.UniquePages != 4 {
		t.Errorf("pages = %d/%d, want 4/4", j.TotalPages, j.UniquePages)
	}
	if j.Funnel.FurthestStage != StageCheckout {
		t.Errorf("FurthestStage = %q, want %q", j.Funnel.FurthestStage, StageCheckout)
	}
	if j.Funnel.CompletionRate != 0 || j.Converted {
		t.Errorf("completion = %v converted = %v, want 0/false", j.Funnel.CompletionRate, j.Converted)
	}
	if j.SessionID != reqs[1].SessionID {
		t.Errorf("SessionID = %q, want %q", j.SessionID, reqs[1].SessionID)
	}
}

func TestAnalyzeJourney_Funnel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		paths      []string
		furthest   string
		completion float64
	}{
		{"complete", []string{"/", "/item/3", "/basket", "/checkout/shipping", "/checkout/complete"}, StageComplete, 1.0},
		{"completion counts as complete not checkout", []string{"/", "/product/1", "/cart", "/checkout/complete"}, StageCart, 1.0},
		{"skipped landing", []string{"/product/1", "/cart", "/checkout"}, StageNone, 0},
		{"stage markers inside the path", []string{"/", "/product/1", "/shop/cart", "/shop/checkout"}, StageCheckout, 0},
		{"out of order later stage", []string{"/home", "/cart"}, StageLanding, 0},
		{"no funnel pages", []string{"/about", "/contact"}, StageNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reqs := make([]models.ParsedRequest, len(tt.paths))
			for i, p := range tt.paths {
				reqs[i] = req("10.0.0.1", "ua", p, time.Duration(i)*time.Minute)
			}
			j := AnalyzeJourney(reqs)
			if j.Funnel.FurthestStage != tt.furthest {
				t.Errorf("FurthestStage = %q, want %q", j.Funnel.FurthestStage, tt.furthest)
			}
			if j.Funnel.CompletionRate != tt.completion {
				t.Errorf("CompletionRate = %v, want %v", j.Funnel.CompletionRate, tt.completion)
			}
			if len(j.Funnel.Stages) != len(FunnelStages) {
				t.Errorf("len(Stages) = %d, want %d", len(j.Funnel.Stages), len(FunnelStages))
			}
		})
	}
}

func TestAnalyzeJourney_Empty(t *testing.T) {
	t.Parallel()

	j := AnalyzeJourney(nil)
	if j.TotalPages != 0 || j.Funnel.FurthestStage != StageNone {
		t.Errorf("AnalyzeJourney(nil) = %+v", j)
	}
}

func TestFindCommonPaths(t *testing.T) {
	t.Parallel()

	sessions := []models.Session{
		{EntryPage: "/", ExitPage: "/about"},
		{EntryPage: "/", ExitPage: "/checkout/complete"},
		{EntryPage: "/", ExitPage: "/about"},
		{EntryPage: "/", ExitPage: "/checkout/complete"},
		{EntryPage: "/", ExitPage: "/about"},
		{EntryPage: "/blog", ExitPage: "/blog"},
	}

	got := FindCommonPaths(sessions, 2)
	want := []models.PathPattern{
		{Pattern: "/ → /about", Frequency: 3},
		{Pattern: "/ → /checkout/complete", Frequency: 2, IsConversion: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindCommonPaths() = %+v, want %+v", got, want)
	}

	if got := FindCommonPaths(sessions, 1); len(got) != 3 {
		t.Errorf("minFrequency=1 returned %d patterns, want 3", len(got))
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	if m := Metrics(nil); m != (models.SessionMetrics{}) {
		t.Errorf("Metrics(nil) = %+v, want zero", m)
	}

	m := Metrics([]models.Session{
		{DurationSeconds: 100, PageViews: 1, IsBounce: true},
		{DurationSeconds: 300, PageViews: 5, Converted: true},
	})
	want := models.SessionMetrics{
		TotalSessions:      2,
		AvgDurationSeconds: 200,
		AvgPageViews:       3,
		BounceRate:         50,
		ConversionRate:     50,
	}
	if m != want {
		t.Errorf("Metrics() = %+v, want %+v", m, want)
	}
}
