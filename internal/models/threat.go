// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package models

import (
	"strings"
	"time"
)

// ThreatType categorizes a security finding.
type ThreatType string

const (
	ThreatSQLInjection      ThreatType = "sql_injection"
	ThreatXSS               ThreatType = "xss"
	ThreatPathTraversal     ThreatType = "path_traversal"
	ThreatCommandInjection  ThreatType = "command_injection"
	ThreatCodeInjection     ThreatType = "code_injection"
	ThreatRateLimitExceeded ThreatType = "rate_limit_exceeded"
	ThreatKnownMaliciousIP  ThreatType = "known_malicious_ip"
)

// Severity is the ordered severity scale shared by threats and anomalies.
// Each detector maps its own scores onto it with locally defined thresholds.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the position of s on the severity scale, 0 for unknown values.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// AtLeast reports whether s is as severe as other or more.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// ParseSeverity converts a name to a Severity. Unknown names yield "".
func ParseSeverity(name string) Severity {
	s := Severity(strings.ToLower(strings.TrimSpace(name)))
	if s.Rank() == 0 {
		return ""
	}
	return s
}

// SecurityThreat is a single attack-signature match on a request.
// Threats are append-only facts and are never merged across requests.
type SecurityThreat struct {
	ThreatType     ThreatType `json:"threat_type"`
	Severity       Severity   `json:"severity"`
	PatternMatched string     `json:"pattern_matched"`
	Confidence     float64    `json:"confidence"`
	Description    string     `json:"description"`
}

// SecurityEvent is the stored form of a SecurityThreat, carrying the
// request context it was found on.
type SecurityEvent struct {
	EventID        string     `json:"event_id"`
	Timestamp      time.Time  `json:"timestamp"`
	ThreatType     ThreatType `json:"threat_type"`
	Severity       Severity   `json:"severity"`
	IPAddress      string     `json:"ip_address"`
	Path           string     `json:"path"`
	Description    string     `json:"description"`
	PatternMatched string     `json:"pattern_matched"`
	Confidence     float64    `json:"confidence"`
	Blocked        bool       `json:"blocked"`
	Notified       bool       `json:"notified"`
}

// NewSecurityEvent builds the stored event for threat found on req.
func NewSecurityEvent(id string, req *ParsedRequest, threat SecurityThreat) SecurityEvent {
	return SecurityEvent{
		EventID:        id,
		Timestamp:      req.Timestamp,
		ThreatType:     threat.ThreatType,
		Severity:       threat.Severity,
		IPAddress:      req.IPAddress,
		Path:           req.Path,
		Description:    threat.Description,
		PatternMatched: threat.PatternMatched,
		Confidence:     threat.Confidence,
	}
}
