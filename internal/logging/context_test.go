// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package logging

import (
	"context"
	"strings"
	"testing"
)

func TestGenerateCorrelationID(t *testing.T) {
	id1 := GenerateCorrelationID()
	id2 := GenerateCorrelationID()

	if len(id1) != 8 {
		t.Errorf("len(GenerateCorrelationID()) = %d, want 8", len(id1))
	}
	if id1 == id2 {
		t.Error("GenerateCorrelationID() returned the same ID twice")
	}
}

func TestCorrelationIDContext(t *testing.T) {
	ctx := context.Background()
	if id := CorrelationIDFromContext(ctx); id != "" {
		t.Errorf("CorrelationIDFromContext(empty) = %q, want empty", id)
	}

	ctx = ContextWithNewCorrelationID(ctx)
	first := CorrelationIDFromContext(ctx)
	if len(first) != 8 {
		t.Fatalf("ContextWithNewCorrelationID() id = %q", first)
	}

	if again := CorrelationIDFromContext(ContextWithNewCorrelationID(ctx)); again == first {
		t.Errorf("ContextWithNewCorrelationID() kept %q, want a new ID", first)
	}
}

func TestEnsureCorrelationID(t *testing.T) {
	fresh := EnsureCorrelationID(context.Background())
	id := CorrelationIDFromContext(fresh)
	if id == "" {
		t.Fatal("EnsureCorrelationID() on empty context set no ID")
	}

	if got := CorrelationIDFromContext(EnsureCorrelationID(fresh)); got != id {
		t.Errorf("EnsureCorrelationID() = %q, want existing %q", got, id)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if id := RequestIDFromContext(ctx); id != "" {
		t.Errorf("RequestIDFromContext(empty) = %q, want empty", id)
	}

	ctx = ContextWithRequestID(ctx, "req-1")
	if id := RequestIDFromContext(ctx); id != "req-1" {
		t.Errorf("RequestIDFromContext() = %q, want req-1", id)
	}
}

func TestCtx(t *testing.T) {
	buf := captureGlobal(t, "info")
	ctx := ContextWithNewCorrelationID(context.Background())
	ctx = ContextWithRequestID(ctx, "req-9")

	Ctx(ctx).Info().Msg("Batch flushed")

	output := buf.String()
	for _, want := range []string{
		`"correlation_id":"` + CorrelationIDFromContext(ctx) + `"`,
		`"request_id":"req-9"`,
		"Batch flushed",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %s: %s", want, output)
		}
	}
}

func TestCtx_WithoutIDs(t *testing.T) {
	buf := captureGlobal(t, "info")

	Ctx(context.Background()).Info().Msg("plain")

	output := buf.String()
	if !strings.Contains(output, "plain") {
		t.Fatalf("output missing message: %s", output)
	}
	if strings.Contains(output, "correlation_id") || strings.Contains(output, "request_id") {
		t.Errorf("output has IDs without any in context: %s", output)
	}
}
