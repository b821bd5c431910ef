// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package checkpoint

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/models"
	"github.com/tomtom215/loglens/internal/source"
)

// Key prefix for completed-file records.
const prefixDone = "done:"

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("checkpoint store is closed")

// Record is one completed ingestion of a file version.
type Record struct {
	Source      string            `json:"source"`
	Fingerprint string            `json:"fingerprint"`
	CompletedAt time.Time         `json:"completed_at"`
	Summary     models.RunSummary `json:"summary"`
}

// Store is a BadgerDB-backed checkpoint store. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	path   string
	mu     sync.RWMutex
	closed bool
	now    func() time.Time
}

// Open opens (or creates) the checkpoint store at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("checkpoint path is required")
	}

	opts := badger.DefaultOptions(path)
	// Checkpoints are tiny; keep the memtable and value log small.
	opts.MemTableSize = 16 << 20
	opts.ValueLogFileSize = 16 << 20
	opts.NumCompactors = 2
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Debug().Str("path", path).Msg("Checkpoint store opened")
	return &Store{db: db, path: path, now: time.Now}, nil
}

func doneKey(fp source.Fingerprint) []byte {
	return []byte(prefixDone + fp.Key())
}

// IsDone reports whether the file version fp was fully ingested.
func (s *Store) IsDone(fp source.Fingerprint) (bool, error) {
	rec, err := s.Get(fp)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// Get returns the record for fp, or nil when none exists.
func (s *Store) Get(fp source.Fingerprint) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(doneKey(fp))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var r Record
			if err := json.Unmarshal(val, &r); err != nil {
				return err
			}
			rec = &r
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	return rec, nil
}

// MarkDone records that fp was fully ingested with the given summary.
// Canceled runs are rejected so an interrupted file is retried.
func (s *Store) MarkDone(fp source.Fingerprint, summary models.RunSummary) error {
	if summary.Canceled {
		return errors.New("refusing to checkpoint a canceled run")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	rec := Record{
		Source:      fp.Name,
		Fingerprint: fp.Key(),
		CompletedAt: s.now().UTC(),
		Summary:     summary,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(doneKey(fp), data))
	})
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// List returns every record, ordered by key.
func (s *Store) List() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixDone)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var rec Record
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("Skipping unreadable checkpoint")
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	return records, nil
}

// Forget deletes every record for the named source regardless of
// fingerprint and returns how many were removed.
func (s *Store) Forget(name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	prefix := []byte(prefixDone + name + "|")
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			// A name that is a prefix of another name must not match it.
			if strings.Count(string(key[len(prefix):]), "|") != 1 {
				continue
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan checkpoints: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete checkpoints: %w", err)
	}
	return len(keys), nil
}

// Close closes the underlying database. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	return nil
}
