// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package eventprocessor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/loglens/internal/models"
)

// Event validation errors.
var (
	ErrMissingEventID    = errors.New("event_id is required")
	ErrMissingThreatType = errors.New("threat_type is required")
	ErrMissingTimestamp  = errors.New("timestamp is required")
)

// ValidateEvent checks the fields consumers rely on.
func ValidateEvent(e *models.SecurityEvent) error {
	switch {
	case e.EventID == "":
		return ErrMissingEventID
	case e.ThreatType == "":
		return ErrMissingThreatType
	case e.Timestamp.IsZero():
		return ErrMissingTimestamp
	}
	return nil
}

// Topic returns the subject an event is published on.
func Topic(subject string, e *models.SecurityEvent) string {
	return strings.TrimSuffix(subject, ".") + "." + string(e.ThreatType)
}

// SerializeEvent validates and encodes an event as JSON.
func SerializeEvent(e *models.SecurityEvent) ([]byte, error) {
	if err := ValidateEvent(e); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// DeserializeEvent decodes a JSON payload.
func DeserializeEvent(data []byte) (*models.SecurityEvent, error) {
	var e models.SecurityEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &e, nil
}
