// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/loglens/internal/models"
)

// anomalyNamespace scopes the name-based anomaly UUIDs.
var anomalyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/tomtom215/loglens/anomalies"))

// assignIDs gives every anomaly without an ID a version 5 UUID derived
// from its identity.
func assignIDs(anomalies []models.Anomaly) {
	for i := range anomalies {
		if anomalies[i].AnomalyID == "" {
			anomalies[i].AnomalyID = AnomalyID(&anomalies[i])
		}
	}
}

// AnomalyID returns the stable ID of a: the same type, metric, bucket and
// context always produce the same ID.
func AnomalyID(a *models.Anomaly) string {
	var b strings.Builder
	b.WriteString(string(a.AnomalyType))
	b.WriteByte('|')
	b.WriteString(a.MetricName)
	b.WriteByte('|')
	b.WriteString(a.Timestamp.UTC().Format(time.RFC3339Nano))

	keys := make([]string, 0, len(a.Context))
	for k := range a.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%v", k, a.Context[k])
	}

	return uuid.NewSHA1(anomalyNamespace, []byte(b.String())).String()
}
