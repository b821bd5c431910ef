// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package classifier

import (
	"strings"

	"github.com/tomtom215/loglens/internal/metrics"
	"github.com/tomtom215/loglens/internal/models"
)

// Bot types outside the signature table.
const (
	BotTypeUnknown  = "unknown"
	BotTypeDetected = "detected_bot"
)

// BotCategory groups related bot signatures.
type BotCategory string

const (
	CategorySearch     BotCategory = "search_engine"
	CategorySocial     BotCategory = "social"
	CategoryMonitoring BotCategory = "monitoring"
	CategorySEO        BotCategory = "seo"
	CategoryGeneric    BotCategory = "generic"
)

// BotSignature is one row of the bot table: a lowercase substring and the
// bot type reported when it matches.
type BotSignature struct {
	Substring string
	BotType   string
	Category  BotCategory
}

// botSignatures is evaluated in order and the first match wins. Specific
// crawlers must stay ahead of the generic catch-all rows at the end.
var botSignatures = []BotSignature{
	{"googlebot", "googlebot", CategorySearch},
	{"bingbot", "bingbot", CategorySearch},
	{"yahoo! slurp", "yahoo_bot", CategorySearch},
	{"duckduckbot", "duckduckbot", CategorySearch},
	{"baiduspider", "baiduspider", CategorySearch},
	{"yandexbot", "yandexbot", CategorySearch},

	{"facebookexternalhit", "facebook_bot", CategorySocial},
	{"twitterbot", "twitter_bot", CategorySocial},
	{"linkedinbot", "linkedin_bot", CategorySocial},
	{"slackbot", "slack_bot", CategorySocial},

	{"pingdom", "pingdom", CategoryMonitoring},
	{"uptimerobot", "uptimerobot", CategoryMonitoring},
	{"newrelic", "newrelic", CategoryMonitoring},
	{"datadog", "datadog", CategoryMonitoring},

	{"semrushbot", "semrush", CategorySEO},
	{"ahrefsbot", "ahrefs", CategorySEO},
	{"mj12bot", "majestic", CategorySEO},
	{"rogerbot", "moz", CategorySEO},

	{"bot", "generic_bot", CategoryGeneric},
	{"crawler", "crawler", CategoryGeneric},
	{"spider", "spider", CategoryGeneric},
	{"scraper", "scraper", CategoryGeneric},
}

// Signatures returns a copy of the ordered bot table.
func Signatures() []BotSignature {
	out := make([]BotSignature, len(botSignatures))
	copy(out, botSignatures)
	return out
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithUAParser replaces the user agent parser used after the bot table.
// Passing nil disables it and leaves only the substring guesser.
func WithUAParser(p UAParser) Option {
	return func(c *Classifier) {
		c.ua = p
	}
}

// Classifier labels requests as bot or human traffic.
//
// Evaluation order:
//  1. empty user agent: bot of unknown type
//  2. the ordered bot signature table
//  3. the UAParser, when configured
//  4. a minimal substring guesser for device, browser and OS
//
// A Classifier is stateless and safe for concurrent use.
type Classifier struct {
	signatures []BotSignature
	ua         UAParser
}

// New creates a Classifier backed by the default user agent parser.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		signatures: botSignatures,
		ua:         NewUAParser(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify labels the client behind a request. The IP is accepted for
// future reputation checks and is not used for classification.
func (c *Classifier) Classify(userAgent, ip string) models.ClientClassification {
	result := c.classify(userAgent)
	if result.IsBot {
		metrics.ClientsClassified.WithLabelValues("bot").Inc()
	} else {
		metrics.ClientsClassified.WithLabelValues("human").Inc()
	}
	return result
}

func (c *Classifier) classify(userAgent string) models.ClientClassification {
	if strings.TrimSpace(userAgent) == "" {
		return models.ClientClassification{
			IsBot:      true,
			BotType:    BotTypeUnknown,
			DeviceType: models.DeviceBot,
			Browser:    "unknown",
			OS:         "unknown",
		}
	}

	lower := strings.ToLower(userAgent)
	for _, sig := range c.signatures {
		if strings.Contains(lower, sig.Substring) {
			return models.ClientClassification{
				IsBot:      true,
				BotType:    sig.BotType,
				DeviceType: models.DeviceBot,
				Browser:    sig.BotType,
				OS:         "bot",
			}
		}
	}

	if c.ua != nil {
		info := c.ua.Parse(userAgent)
		if info.IsBot {
			return models.ClientClassification{
				IsBot:      true,
				BotType:    BotTypeDetected,
				DeviceType: models.DeviceBot,
				Browser:    info.Browser,
				OS:         info.OS,
			}
		}
		return models.ClientClassification{
			DeviceType: info.DeviceType(),
			Browser:    info.Browser,
			OS:         info.OS,
		}
	}

	return models.ClientClassification{
		DeviceType: guessDevice(lower),
		Browser:    guessBrowser(lower),
		OS:         guessOS(lower),
	}
}

// guessDevice is the last-resort device detector.
func guessDevice(lower string) string {
	switch {
	case containsAny(lower, "mobile", "android", "iphone", "ipod"):
		return models.DeviceMobile
	case containsAny(lower, "tablet", "ipad"):
		return models.DeviceTablet
	default:
		return models.DeviceDesktop
	}
}

func guessBrowser(lower string) string {
	switch {
	case strings.Contains(lower, "chrome"):
		return "Chrome"
	case strings.Contains(lower, "firefox"):
		return "Firefox"
	case strings.Contains(lower, "safari"):
		return "Safari"
	case containsAny(lower, "edge", "edg"):
		return "Edge"
	case containsAny(lower, "opera", "opr"):
		return "Opera"
	default:
		return "Other"
	}
}

func guessOS(lower string) string {
	switch {
	case strings.Contains(lower, "windows"):
		return "Windows"
	case strings.Contains(lower, "mac"):
		return "macOS"
	case strings.Contains(lower, "linux"):
		return "Linux"
	case strings.Contains(lower, "android"):
		return "Android"
	case containsAny(lower, "ios", "iphone", "ipad"):
		return "iOS"
	default:
		return "Other"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
