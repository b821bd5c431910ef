// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package models

// Device types reported by the client classifier.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceBot     = "bot"
	DeviceOther   = "other"
)

// ClientClassification labels the client behind a request.
// It is recomputed per request and never cached by IP.
type ClientClassification struct {
	IsBot      bool   `json:"is_bot"`
	BotType    string `json:"bot_type"`
	DeviceType string `json:"device_type"`
	Browser    string `json:"browser"`
	OS         string `json:"os"`
}
