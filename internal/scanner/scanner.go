// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package scanner

import (
	"fmt"
	"regexp"

	"github.com/tomtom215/loglens/internal/metrics"
	"github.com/tomtom215/loglens/internal/models"
)

// Confidence thresholds for mapping a pattern match to a severity.
const (
	criticalConfidence = 0.9
	highConfidence     = 0.8
	mediumConfidence   = 0.7
)

// Fixed confidence for reputation-based findings.
const (
	knownBadIPConfidence = 0.95
	rateLimitConfidence  = 1.0
)

// target selects which part of the request a pattern is applied to.
type target int

const (
	targetFull  target = iota // path + "?" + query
	targetPath                // path only
	targetQuery               // query string only
)

// Pattern is one attack signature.
type Pattern struct {
	ThreatType  models.ThreatType
	Name        string
	Confidence  float64
	re          *regexp.Regexp
	target      target
	description string
}

func pattern(tt models.ThreatType, family string, tgt target, expr, name string, confidence float64) Pattern {
	return Pattern{
		ThreatType:  tt,
		Name:        name,
		Confidence:  confidence,
		re:          regexp.MustCompile("(?i)" + expr),
		target:      tgt,
		description: family + " - " + name,
	}
}

// Expression returns the source of the compiled pattern.
func (p Pattern) Expression() string {
	return p.re.String()
}

// defaultPatterns is evaluated in order. Every matching pattern yields its
// own threat.
var defaultPatterns = []Pattern{
	// SQL injection
	pattern(models.ThreatSQLInjection, "SQL Injection", targetFull, `\bUNION\b.*\bSELECT\b`, "UNION SELECT", 0.9),
	pattern(models.ThreatSQLInjection, "SQL Injection", targetFull, `\bDROP\b.*\bTABLE\b`, "DROP TABLE", 0.95),
	pattern(models.ThreatSQLInjection, "SQL Injection", targetFull, `\bDELETE\b.*\bFROM\b`, "DELETE FROM", 0.85),
	pattern(models.ThreatSQLInjection, "SQL Injection", targetFull, `'.*OR.*'1'='1`, "OR 1=1", 0.9),
	pattern(models.ThreatSQLInjection, "SQL Injection", targetFull, `;.*\b(SELECT|INSERT|UPDATE|DELETE)\b`, "Stacked query", 0.8),
	pattern(models.ThreatSQLInjection, "SQL Injection", targetFull, `\bEXEC\b.*\bxp_`, "xp_ procedure", 0.95),

	// Cross-site scripting
	pattern(models.ThreatXSS, "XSS", targetFull, `<script[^>]*>`, "Script tag", 0.9),
	pattern(models.ThreatXSS, "XSS", targetFull, `javascript:`, "JavaScript protocol", 0.85),
	pattern(models.ThreatXSS, "XSS", targetFull, `on\w+\s*=`, "Event handler", 0.7),
	pattern(models.ThreatXSS, "XSS", targetFull, `<iframe[^>]*>`, "Iframe tag", 0.8),
	pattern(models.ThreatXSS, "XSS", targetFull, `<object[^>]*>`, "Object tag", 0.8),

	// Path traversal
	pattern(models.ThreatPathTraversal, "Path Traversal", targetPath, `\.\./`, "Directory traversal", 0.85),
	pattern(models.ThreatPathTraversal, "Path Traversal", targetPath, `\.\.\\`, "Windows directory traversal", 0.85),
	pattern(models.ThreatPathTraversal, "Path Traversal", targetPath, `/etc/passwd`, "passwd access", 0.95),
	pattern(models.ThreatPathTraversal, "Path Traversal", targetPath, `/windows/system`, "Windows system access", 0.9),

	// Command injection
	pattern(models.ThreatCommandInjection, "Command Injection", targetQuery, "[;&|`]", "Shell metacharacter", 0.6),
	pattern(models.ThreatCommandInjection, "Command Injection", targetQuery, `\$\(.*\)`, "Command substitution", 0.8),
	pattern(models.ThreatCommandInjection, "Command Injection", targetQuery, `(wget|curl).*http`, "Remote download", 0.85),

	// Code injection
	pattern(models.ThreatCodeInjection, "Code Injection", targetFull, `<\?php`, "PHP tag", 0.9),
	pattern(models.ThreatCodeInjection, "Code Injection", targetFull, `eval\s*\(`, "eval call", 0.85),
	pattern(models.ThreatCodeInjection, "Code Injection", targetFull, `\bbase64_decode\b`, "base64_decode", 0.6),
}

// Patterns returns a copy of the ordered signature table.
func Patterns() []Pattern {
	out := make([]Pattern, len(defaultPatterns))
	copy(out, defaultPatterns)
	return out
}

// SeverityForConfidence maps a pattern confidence onto the severity scale.
func SeverityForConfidence(confidence float64) models.Severity {
	switch {
	case confidence >= criticalConfidence:
		return models.SeverityCritical
	case confidence >= highConfidence:
		return models.SeverityHigh
	case confidence >= mediumConfidence:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// Scanner matches requests against attack signatures. It holds no mutable
// state and is safe for concurrent use.
type Scanner struct {
	patterns []Pattern
}

// New creates a Scanner with the built-in signature table.
func New() *Scanner {
	return &Scanner{patterns: defaultPatterns}
}

// Scan returns one threat per matching pattern. Threats are neither merged
// nor deduplicated. The method is accepted for signatures that depend on it;
// none of the built-in ones do.
func (s *Scanner) Scan(path, queryString, method string) []models.SecurityThreat {
	full := path + "?" + queryString

	var threats []models.SecurityThreat
	for i := range s.patterns {
		p := &s.patterns[i]

		var subject string
		switch p.target {
		case targetPath:
			subject = path
		case targetQuery:
			subject = queryString
		default:
			subject = full
		}
		if subject == "" || !p.re.MatchString(subject) {
			continue
		}

		threat := models.SecurityThreat{
			ThreatType:     p.ThreatType,
			Severity:       SeverityForConfidence(p.Confidence),
			PatternMatched: p.Expression(),
			Confidence:     p.Confidence,
			Description:    p.description,
		}
		threats = append(threats, threat)
		recordThreat(threat)
	}
	return threats
}

// CheckRateLimit reports an IP that made more than threshold requests in a
// window. Severity grows with the excess over the threshold: more than twice
// the threshold is critical, more than the threshold is high, anything less
// is medium. Returns nil when count does not exceed threshold.
func CheckRateLimit(ip string, count, windowSeconds, threshold int) *models.SecurityThreat {
	if threshold <= 0 || count <= threshold {
		return nil
	}

	excess := count - threshold
	var severity models.Severity
	switch {
	case excess > 2*threshold:
		severity = models.SeverityCritical
	case excess > threshold:
		severity = models.SeverityHigh
	default:
		severity = models.SeverityMedium
	}

	threat := &models.SecurityThreat{
		ThreatType:     models.ThreatRateLimitExceeded,
		Severity:       severity,
		PatternMatched: fmt.Sprintf("%d requests in %ds", count, windowSeconds),
		Confidence:     rateLimitConfidence,
		Description:    fmt.Sprintf("IP %s made %d requests (limit: %d)", ip, count, threshold),
	}
	recordThreat(*threat)
	return threat
}

// CheckKnownBadIP reports a request from an address in the bad-IP set.
func CheckKnownBadIP(ip string, badIPs map[string]struct{}) *models.SecurityThreat {
	if ip == "" {
		return nil
	}
	if _, ok := badIPs[ip]; !ok {
		return nil
	}

	threat := &models.SecurityThreat{
		ThreatType:     models.ThreatKnownMaliciousIP,
		Severity:       models.SeverityHigh,
		PatternMatched: ip,
		Confidence:     knownBadIPConfidence,
		Description:    "Request from known malicious IP: " + ip,
	}
	recordThreat(*threat)
	return threat
}

// IPSet builds the lookup set used by CheckKnownBadIP.
func IPSet(ips []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		if ip != "" {
			set[ip] = struct{}{}
		}
	}
	return set
}

func recordThreat(t models.SecurityThreat) {
	metrics.ThreatsDetected.WithLabelValues(string(t.ThreatType), string(t.Severity)).Inc()
}
