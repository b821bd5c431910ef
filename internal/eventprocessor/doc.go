// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

/*
Package eventprocessor publishes security events to NATS JetStream.

Security events found during ingestion are written to DuckDB first. When the
event bus is enabled they are also published, one message per event, so that
alerting or SIEM consumers can react without polling the store.

# Build Tags

The Watermill and NATS dependencies are only compiled with the nats tag:

	go build -tags nats ./cmd/loglens

Without the tag every constructor returns ErrNATSNotEnabled and ingestion
runs without a publisher.

# Components

  - Publisher: Watermill NATS publisher with JetStream message-ID
    deduplication and a circuit breaker around every publish
  - EmbeddedServer: in-process NATS server with JetStream for single-node
    deployments
  - StreamInitializer: creates or updates the JetStream stream before the
    first publish
  - Bus: wires the three together from config.NATSConfig

# Subjects

Events are published to "<subject>.<threat_type>", for example
loglens.security.sql_injection. The stream captures "<subject>.>".

# Message Format

Payloads are the JSON encoding of models.SecurityEvent. The event ID is used
as the Watermill message UUID and as the Nats-Msg-Id header, so republishing
the same event inside the stream's duplicate window is a no-op.
*/
package eventprocessor
