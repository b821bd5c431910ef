// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/tomtom215/loglens/internal/models"
	"github.com/tomtom215/loglens/internal/source"
)

// memCheckpoints is an in-memory Checkpoints.
type memCheckpoints struct {
	mu   sync.Mutex
	done map[string]models.RunSummary
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{done: make(map[string]models.RunSummary)}
}

func (m *memCheckpoints) IsDone(fp source.Fingerprint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.done[fp.Key()]
	return ok, nil
}

func (m *memCheckpoints) MarkDone(fp source.Fingerprint, summary models.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done[fp.Key()] = summary
	return nil
}

func writeLog(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
	return path
}

func TestRunFiles_CombinesSummariesInOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeLog(t, dir, "a.log", lineHome, lineProducts)
	b := writeLog(t, dir, "b.log", lineBot, lineMalformed)
	c := writeLog(t, dir, "c.log", lineTraversal)

	cfg := testIngestConfig()
	cfg.ParallelFiles = 2
	store := &fakeStore{}
	r := NewRunner(newTestPipeline(t, store, cfg), source.NewOpener(source.Options{}), nil)

	total, results := r.RunFiles(context.Background(), []string{a, b, c})

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i, want := range []string{a, b, c} {
		if results[i].Name != want {
			t.Errorf("results[%d].Name = %q, want %q", i, results[i].Name, want)
		}
		if results[i].Err != nil {
			t.Errorf("results[%d].Err = %v", i, results[i].Err)
		}
	}
	if total.TotalLines != 5 || total.ParsedSuccessfully != 4 || total.ParseErrors != 1 {
		t.Errorf("total lines/parsed/errors = %d/%d/%d, want 5/4/1",
			total.TotalLines, total.ParsedSuccessfully, total.ParseErrors)
	}
	if total.InsertedToDB != 4 {
		t.Errorf("total InsertedToDB = %d, want 4", total.InsertedToDB)
	}
}

func TestRunFiles_SkipsCheckpointedFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeLog(t, dir, "a.log", lineHome, lineProducts)

	cp := newMemCheckpoints()
	store := &fakeStore{}
	r := NewRunner(newTestPipeline(t, store, testIngestConfig()), source.NewOpener(source.Options{}), cp)

	first, _ := r.RunFiles(context.Background(), []string{a})
	if first.InsertedToDB != 2 {
		t.Fatalf("first run InsertedToDB = %d, want 2", first.InsertedToDB)
	}

	second, results := r.RunFiles(context.Background(), []string{a})
	if !results[0].Summary.Skipped {
		t.Error("second run was not skipped")
	}
	if second.InsertedToDB != 0 {
		t.Errorf("second run InsertedToDB = %d, want 0", second.InsertedToDB)
	}
	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1", store.calls)
	}
}

func TestRunFiles_FailedBatchesAreNotCheckpointed(t *testing.T) {
	dir := t.TempDir()
	a := writeLog(t, dir, "a.log", lineHome)

	cp := newMemCheckpoints()
	store := &fakeStore{failCalls: map[int]bool{1: true}}
	r := NewRunner(newTestPipeline(t, store, testIngestConfig()), source.NewOpener(source.Options{}), cp)

	r.RunFiles(context.Background(), []string{a})
	if len(cp.done) != 0 {
		t.Fatalf("checkpoints = %d, want 0 after a failed batch", len(cp.done))
	}

	total, _ := r.RunFiles(context.Background(), []string{a})
	if total.InsertedToDB != 1 {
		t.Errorf("retry InsertedToDB = %d, want 1", total.InsertedToDB)
	}
}

func TestRunFiles_OpenError(t *testing.T) {
	r := NewRunner(newTestPipeline(t, &fakeStore{}, testIngestConfig()), source.NewOpener(source.Options{}), nil)

	missing := filepath.Join(t.TempDir(), "missing.log")
	_, results := r.RunFiles(context.Background(), []string{missing})
	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("results = %+v, want one result with an open error", results)
	}
}

func TestRunFiles_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	a := writeLog(t, dir, "a.log", lineHome)
	store := &fakeStore{}
	r := NewRunner(newTestPipeline(t, store, testIngestConfig()), source.NewOpener(source.Options{}), nil)

	total, results := r.RunFiles(ctx, []string{a})
	if !total.Canceled || !results[0].Summary.Canceled {
		t.Error("canceled RunFiles did not report cancellation")
	}
	if store.calls != 0 {
		t.Errorf("store calls = %d, want 0", store.calls)
	}
}
