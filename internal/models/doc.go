// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

/*
Package models defines the data structures shared by the Loglens pipeline.

Records flow through the pipeline in one direction:

	raw line -> ParsedRequest -> EnrichedRequest (classification + threats) -> store

Sessions and Anomalies are derived later by batch jobs over stored or parsed
requests and are never mutated once produced.

Key Types:

  - ParsedRequest: one normalized HTTP access event
  - ClientClassification: bot/human label plus browser, OS and device family
  - SecurityThreat / SecurityEvent: attack signature matches and their stored form
  - Session / Journey: reconstructed user activity
  - Anomaly: a statistical deviation found in a metric series
  - RunSummary: the end-of-run report of an ingestion pass
*/
package models
