// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package validation

import (
	"strings"
	"testing"
)

type testParams struct {
	Limit       int    `query:"limit" validate:"min=1,max=1000"`
	MinSeverity string `query:"min_severity" validate:"omitempty,severity"`
	Bucket      string `query:"bucket" validate:"omitempty,bucket"`
	Since       string `query:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Format      string `validate:"omitempty,oneof=nginx apache cloudflare"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     testParams
		wantField string
		wantTag   string
	}{
		{"valid minimal", testParams{Limit: 10}, "", ""},
		{"valid full", testParams{Limit: 1000, MinSeverity: "high", Bucket: "15m", Since: "2024-03-10T00:00:00Z", Format: "apache"}, "", ""},
		{"limit too small", testParams{Limit: 0}, "limit", "min"},
		{"limit too large", testParams{Limit: 1001}, "limit", "max"},
		{"unknown severity", testParams{Limit: 1, MinSeverity: "severe"}, "min_severity", "severity"},
		{"bucket too small", testParams{Limit: 1, Bucket: "30s"}, "bucket", "bucket"},
		{"bucket too large", testParams{Limit: 1, Bucket: "48h"}, "bucket", "bucket"},
		{"bucket not a duration", testParams{Limit: 1, Bucket: "hourly"}, "bucket", "bucket"},
		{"since not rfc3339", testParams{Limit: 1, Since: "yesterday"}, "since", "datetime"},
		{"field without query tag", testParams{Limit: 1, Format: "iis"}, "Format", "oneof"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatalf("ValidateStruct() = nil, want %s failure", tt.wantTag)
			}
			if len(verr.Fields) != 1 {
				t.Fatalf("len(Fields) = %d, want 1: %v", len(verr.Fields), verr)
			}
			if got := verr.Fields[0]; got.Field != tt.wantField || got.Tag != tt.wantTag {
				t.Errorf("field error = %s/%s, want %s/%s", got.Field, got.Tag, tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	single := ValidateStruct(&testParams{Limit: 0})
	apiErr := single.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Message != "limit must be at least 1" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "limit" {
		t.Errorf("Details[field] = %v, want limit", apiErr.Details["field"])
	}

	multi := ValidateStruct(&testParams{Limit: 0, MinSeverity: "x"}).ToAPIError()
	if !strings.Contains(multi.Message, "limit") || !strings.Contains(multi.Message, "min_severity") {
		t.Errorf("Message = %q, want both fields", multi.Message)
	}
	fields, ok := multi.Details["fields"].([]FieldError)
	if !ok || len(fields) != 2 {
		t.Errorf("Details[fields] = %v, want two entries", multi.Details["fields"])
	}
}

func TestRequestValidationError_Empty(t *testing.T) {
	ve := &RequestValidationError{}
	if ve.Error() != "validation failed" {
		t.Errorf("Error() = %q, want validation failed", ve.Error())
	}
	if ve.ToAPIError().Details != nil {
		t.Error("empty error should carry no details")
	}
}
