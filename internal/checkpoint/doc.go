// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

/*
Package checkpoint records which input files have been fully ingested.

A checkpoint is keyed by the source fingerprint (name, size and modification
time), so a file that is appended to or rewritten is ingested again while an
unchanged file is skipped. Records are stored in BadgerDB as JSON and carry the
run summary of the ingestion that completed the file.

Only runs that finished without cancellation are recorded. A canceled or
partially failed run leaves no checkpoint behind.

Usage:

	store, err := checkpoint.Open("/data/checkpoints")
	if err != nil {
		return err
	}
	defer store.Close()

	done, err := store.IsDone(fp)
	if done {
		return nil
	}
	// ... ingest ...
	err = store.MarkDone(fp, summary)
*/
package checkpoint
