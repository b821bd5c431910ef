// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

/*
Package ingest drives one pass over an access log source: every line is
parsed, classified and scanned, enriched records are written to the store in
batches, and security events are written once at the end of the run.

# Failure Isolation

The unit of failure is the single line for parsing, classification and
scanning, and the single batch for storage:

  - A line that does not match the format is counted in ParseErrors and
    skipped.
  - A line whose timestamp cannot be parsed is kept, stamped with the ingest
    time and counted in TimestampFallbacks.
  - A failed batch write is logged, counted in FailedBatches and FailedRows,
    and the run continues with the next batch. InsertedToDB only counts rows
    the store acknowledged.
  - A failed security event write is logged and counted; it never affects
    request ingestion.

The RunSummary returned by Run is the surface for all of these counts.

# Backpressure and Cancellation

Run blocks on each batch write until the store acknowledges it, so memory
is bounded by one batch of enriched records plus the pending security events.
When the context is canceled the pipeline stops reading, finishes writing
what it has already buffered, and returns a summary with Canceled set. Store
writes are never interrupted by cancellation; each one is bounded by the
configured store timeout instead.

Store writes go through a circuit breaker. Once the store fails repeatedly,
further batches fail fast and are counted as failed until the breaker lets
a probe through again.

# Multiple Files

RunFiles ingests several sources with up to ParallelFiles running at once.
Each source gets its own run state; nothing mutable is shared between runs.
When a checkpoint store is configured, files whose fingerprint was already
fully ingested are skipped.
*/
package ingest
