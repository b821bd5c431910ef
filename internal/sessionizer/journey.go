// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package sessionizer

import (
	"sort"
	"strings"

	"github.com/tomtom215/loglens/internal/models"
)

// Funnel stages, in order.
const (
	StageLanding     = "landing"
	StageProductView = "product_view"
	StageCart        = "cart"
	StageCheckout    = "checkout"
	StageComplete    = "complete"

	// StageNone is reported when the landing stage was never reached.
	StageNone = "none"
)

// FunnelStages is the ordered conversion funnel.
var FunnelStages = []string{StageLanding, StageProductView, StageCart, StageCheckout, StageComplete}

// funnelStage maps a request path to the funnel stage it represents, or ""
// for paths outside the funnel. Stage markers may appear anywhere in the
// path (/shop/cart). Conversion paths are checked first so that
// /checkout/complete counts as completion rather than checkout.
func funnelStage(path string) string {
	switch {
	case IsConversionPath(path):
		return StageComplete
	case strings.Contains(path, "/checkout"):
		return StageCheckout
	case strings.Contains(path, "/cart"), strings.Contains(path, "/basket"):
		return StageCart
	case strings.Contains(path, "/product/"), strings.Contains(path, "/item/"):
		return StageProductView
	case path == "/", path == "/home":
		return StageLanding
	}
	return ""
}

// AnalyzeJourney describes the path a client took through one session's
// requests. Requests are ordered by time before analysis; the input slice
// is not modified.
func AnalyzeJourney(requests []models.ParsedRequest) models.Journey {
	stages := make(map[string]bool, len(FunnelStages))
	for _, st := range FunnelStages {
		stages[st] = false
	}

	journey := models.Journey{
		PathSequence: []string{},
		TimeOnPage:   []models.PageTime{},
		ErrorPaths:   []string{},
		Funnel: models.FunnelProgress{
			Stages:        stages,
			FurthestStage: StageNone,
		},
	}
	if len(requests) == 0 {
		return journey
	}

	ordered := make([]*models.ParsedRequest, len(requests))
	for i := range requests {
		ordered[i] = &requests[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	journey.SessionID = ordered[0].SessionID
	unique := make(map[string]struct{}, len(ordered))

	for i, r := range ordered {
		journey.PathSequence = append(journey.PathSequence, r.Path)
		unique[r.Path] = struct{}{}

		if i+1 < len(ordered) {
			journey.TimeOnPage = append(journey.TimeOnPage, models.PageTime{
				Page:    r.Path,
				Seconds: ordered[i+1].Timestamp.Sub(r.Timestamp).Seconds(),
			})
		}
		if r.IsError() {
			journey.Errors++
			journey.ErrorPaths = append(journey.ErrorPaths, r.Path)
		}
		if st := funnelStage(r.Path); st != "" {
			stages[st] = true
		}
		if IsConversionPath(r.Path) {
			journey.Converted = true
		}
	}

	journey.TotalPages = len(ordered)
	journey.UniquePages = len(unique)

	// Progress only counts stages reached without skipping an earlier one.
	for _, st := range FunnelStages {
		if !stages[st] {
			break
		}
		journey.Funnel.FurthestStage = st
	}
	if stages[StageComplete] {
		journey.Funnel.CompletionRate = 1.0
	}
	return journey
}
