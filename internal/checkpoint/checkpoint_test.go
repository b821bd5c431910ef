// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package checkpoint

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/loglens/internal/models"
	"github.com/tomtom215/loglens/internal/source"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checkpoints")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func fingerprint(name string, size int64) source.Fingerprint {
	return source.Fingerprint{
		Name:    name,
		Size:    size,
		ModTime: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("Open(\"\") error = nil, want error")
	}
}

func TestMarkDone_IsDone(t *testing.T) {
	s, _ := openTestStore(t)
	fp := fingerprint("/var/log/nginx/access.log", 1024)

	done, err := s.IsDone(fp)
	if err != nil {
		t.Fatalf("IsDone() error = %v", err)
	}
	if done {
		t.Fatal("IsDone() = true before MarkDone")
	}

	summary := models.RunSummary{Source: fp.Name, TotalLines: 3, ParsedSuccessfully: 2, InsertedToDB: 2}
	if err := s.MarkDone(fp, summary); err != nil {
		t.Fatalf("MarkDone() error = %v", err)
	}

	done, err = s.IsDone(fp)
	if err != nil {
		t.Fatalf("IsDone() error = %v", err)
	}
	if !done {
		t.Fatal("IsDone() = false after MarkDone")
	}

	rec, err := s.Get(fp)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Summary.InsertedToDB != 2 {
		t.Errorf("Summary.InsertedToDB = %d, want 2", rec.Summary.InsertedToDB)
	}
	if rec.Fingerprint != fp.Key() {
		t.Errorf("Fingerprint = %q, want %q", rec.Fingerprint, fp.Key())
	}
}

func TestIsDone_ChangedFileIsNotDone(t *testing.T) {
	s, _ := openTestStore(t)
	fp := fingerprint("/var/log/app.log", 100)
	if err := s.MarkDone(fp, models.RunSummary{}); err != nil {
		t.Fatalf("MarkDone() error = %v", err)
	}

	grown := fingerprint("/var/log/app.log", 200)
	done, err := s.IsDone(grown)
	if err != nil {
		t.Fatalf("IsDone() error = %v", err)
	}
	if done {
		t.Error("IsDone() = true for a file whose size changed")
	}
}

func TestMarkDone_RejectsCanceledRun(t *testing.T) {
	s, _ := openTestStore(t)
	fp := fingerprint("/var/log/app.log", 100)
	if err := s.MarkDone(fp, models.RunSummary{Canceled: true}); err == nil {
		t.Fatal("MarkDone() error = nil for canceled run")
	}
	if done, _ := s.IsDone(fp); done {
		t.Error("canceled run was checkpointed")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints")
	fp := fingerprint("/var/log/app.log", 100)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.MarkDone(fp, models.RunSummary{TotalLines: 7}); err != nil {
		t.Fatalf("MarkDone() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	rec, err := s.Get(fp)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec == nil || rec.Summary.TotalLines != 7 {
		t.Fatalf("Get() = %+v, want record with TotalLines 7", rec)
	}
}

func TestListAndForget(t *testing.T) {
	s, _ := openTestStore(t)
	for _, fp := range []source.Fingerprint{
		fingerprint("/logs/a.log", 1),
		fingerprint("/logs/a.log", 2),
		fingerprint("/logs/a.log.1", 3),
		fingerprint("/logs/b.log", 4),
	} {
		if err := s.MarkDone(fp, models.RunSummary{Source: fp.Name}); err != nil {
			t.Fatalf("MarkDone(%s) error = %v", fp.Key(), err)
		}
	}

	records, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("List() returned %d records, want 4", len(records))
	}

	n, err := s.Forget("/logs/a.log")
	if err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Forget() removed %d, want 2", n)
	}

	records, err = s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Errorf("List() after Forget returned %d records, want 2", len(records))
	}
}

func TestClosedStore(t *testing.T) {
	s, _ := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	fp := fingerprint("/x.log", 1)
	if _, err := s.IsDone(fp); !errors.Is(err, ErrClosed) {
		t.Errorf("IsDone() error = %v, want ErrClosed", err)
	}
	if err := s.MarkDone(fp, models.RunSummary{}); !errors.Is(err, ErrClosed) {
		t.Errorf("MarkDone() error = %v, want ErrClosed", err)
	}
	if _, err := s.List(); !errors.Is(err, ErrClosed) {
		t.Errorf("List() error = %v, want ErrClosed", err)
	}
}
