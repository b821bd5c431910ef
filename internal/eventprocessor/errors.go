// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package eventprocessor

import "errors"

// ErrNATSNotEnabled is returned by constructors in builds without the nats tag.
var ErrNATSNotEnabled = errors.New("NATS support not available: build with -tags=nats")

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher is closed")
