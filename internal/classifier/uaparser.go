// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package classifier

import (
	"strings"

	"github.com/mssola/useragent"

	"github.com/tomtom215/loglens/internal/models"
)

// UAInfo is what a UAParser extracts from a user agent string.
type UAInfo struct {
	IsBot    bool
	IsMobile bool
	IsTablet bool
	Browser  string
	OS       string
}

// DeviceType maps the parsed form factor to a device label.
func (i UAInfo) DeviceType() string {
	switch {
	case i.IsTablet:
		return models.DeviceTablet
	case i.IsMobile:
		return models.DeviceMobile
	case i.OS != "":
		return models.DeviceDesktop
	default:
		return models.DeviceOther
	}
}

// UAParser extracts browser, OS and form factor from a user agent.
type UAParser interface {
	Parse(userAgent string) UAInfo
}

type mssolaParser struct{}

// NewUAParser returns the default UAParser backed by mssola/useragent.
func NewUAParser() UAParser {
	return mssolaParser{}
}

func (mssolaParser) Parse(userAgent string) UAInfo {
	ua := useragent.New(userAgent)
	name, _ := ua.Browser()
	osName := ua.OSInfo().Name

	lower := strings.ToLower(userAgent)
	tablet := ua.Platform() == "iPad" || strings.Contains(lower, "tablet")

	return UAInfo{
		IsBot:    ua.Bot(),
		IsMobile: ua.Mobile() && !tablet,
		IsTablet: tablet,
		Browser:  name,
		OS:       osName,
	}
}
