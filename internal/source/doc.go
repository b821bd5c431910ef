// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

// Package source opens access log inputs for ingestion.
//
// A source name is "-" for standard input, s3://bucket/key for an object in
// S3 (or an S3-compatible endpoint), or a local file path. Compressed
// streams are recognized by their magic bytes, not their extension, so
// rotated files such as access.log.2.gz and piped archives both work:
//
//	opener := source.NewOpener(source.Options{Region: "eu-west-1"})
//	in, err := opener.Open(ctx, "s3://logs/nginx/access.log.gz")
//	if err != nil {
//	    return err
//	}
//	defer in.Close()
//
// Files and objects carry a Fingerprint (name, size, modification time)
// used by the checkpoint store to skip inputs that were already ingested.
package source
