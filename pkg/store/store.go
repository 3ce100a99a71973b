// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store archives experiment results in an embedded BadgerDB.
//
// Resampling, tuning, feature selection, and benchmark results are
// stored as JSON under keys ordered by kind and creation time, so
// listing a kind returns the newest runs first without a secondary
// index. The store is the persistence layer behind the CLI and the
// read-only result API.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Kind partitions the archive by result type.
type Kind string

const (
	KindResample  Kind = "resample"
	KindTune      Kind = "tune"
	KindFeatSel   Kind = "featsel"
	KindBenchmark Kind = "benchmark"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindResample, KindTune, KindFeatSel, KindBenchmark:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("store: unknown kind %q", s)
	}
}

// Kinds lists the valid kinds.
func Kinds() []Kind {
	return []Kind{KindResample, KindTune, KindFeatSel, KindBenchmark}
}

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("store: record not found")

// Record is the stored envelope around a result payload.
type Record struct {
	ID      string          `json:"id"`
	Kind    Kind            `json:"kind"`
	Created time.Time       `json:"created"`
	Payload json.RawMessage `json:"payload"`
}

// Config holds configuration for the archive.
type Config struct {
	// Path is the directory for database files. Required unless
	// InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// TTL expires records after the given duration. Zero keeps them
	// forever.
	TTL time.Duration

	// GCInterval is how often to run value log garbage collection.
	// Zero disables GC; it is always disabled in memory.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before
	// a GC pass rewrites the value log.
	GCDiscardRatio float64

	// Logger receives store and BadgerDB events. Nil disables
	// BadgerDB's internal logging.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults: synchronous writes, no
// TTL, five minute GC.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests: in-memory, async,
// no GC.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is the experiment archive.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db     *badger.DB
	cfg    Config
	logger *slog.Logger
	stopGC chan struct{}
	doneGC chan struct{}
}

// Open opens the archive with the given configuration.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store: path is required for a persistent archive")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{db: db, cfg: cfg, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.doneGC = make(chan struct{})
		go s.runGC()
	}
	return s, nil
}

// OpenInMemory opens a throwaway in-memory archive.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close stops garbage collection and closes the database. Safe to
// call once.
func (s *Store) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.doneGC
	}
	return s.db.Close()
}

func (s *Store) runGC() {
	defer close(s.doneGC)
	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(s.cfg.GCDiscardRatio)
			if err == nil {
				s.logger.Debug("store value log GC completed")
			} else if !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("store value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}

// key layout: r/<kind>/<reverse-timestamp>/<uuid>
// Reverse timestamps make the natural iteration order newest-first.
func recordKey(kind Kind, created time.Time, id string) []byte {
	rev := ^uint64(0) - uint64(created.UnixNano())
	return []byte(fmt.Sprintf("r/%s/%016x/%s", kind, rev, id))
}

func kindPrefix(kind Kind) []byte {
	return []byte(fmt.Sprintf("r/%s/", kind))
}

// idKey indexes record ids to their primary key.
func idKey(id string) []byte {
	return []byte("i/" + id)
}

// Put archives a payload under the given kind and returns the stored
// record. The payload must marshal to JSON. An empty id gets a fresh
// UUID.
func (s *Store) Put(ctx context.Context, kind Kind, id string, payload any) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("store: marshal payload: %w", err)
	}
	rec := &Record{ID: id, Kind: kind, Created: time.Now().UTC(), Payload: raw}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("store: marshal record: %w", err)
	}

	key := recordKey(kind, rec.Created, id)
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data)
		idEntry := badger.NewEntry(idKey(id), key)
		if s.cfg.TTL > 0 {
			entry = entry.WithTTL(s.cfg.TTL)
			idEntry = idEntry.WithTTL(s.cfg.TTL)
		}
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		return txn.SetEntry(idEntry)
	})
	if err != nil {
		return nil, fmt.Errorf("store: put %s/%s: %w", kind, id, err)
	}
	s.logger.Debug("record archived",
		slog.String("kind", string(kind)),
		slog.String("id", id),
		slog.Int("bytes", len(data)),
	)
	return rec, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}
		var key []byte
		if key, err = item.ValueCopy(nil); err != nil {
			return err
		}
		item, err = txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	return &rec, nil
}

// List returns up to limit records of a kind, newest first. A limit
// of zero or less returns everything.
func (s *Store) List(ctx context.Context, kind Kind, limit int) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	var records []*Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = kindPrefix(kind)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", kind, err)
	}
	return records, nil
}

// Delete removes the record with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(idKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	return nil
}

// Decode unmarshals a record's payload into out.
func (r *Record) Decode(out any) error {
	if err := json.Unmarshal(r.Payload, out); err != nil {
		return fmt.Errorf("store: decode %s record %s: %w", r.Kind, r.ID, err)
	}
	return nil
}

// Summary renders a short one-line description of the record for
// listings.
func (r *Record) Summary() string {
	var head struct {
		TaskID    string `json:"task_id"`
		LearnerID string `json:"learner_id"`
		Scenario  string `json:"scenario"`
	}
	_ = json.Unmarshal(r.Payload, &head)
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	parts := []string{string(r.Kind), id, r.Created.Format(time.RFC3339)}
	if head.Scenario != "" {
		parts = append(parts, head.Scenario)
	}
	if head.TaskID != "" {
		parts = append(parts, head.TaskID)
	}
	if head.LearnerID != "" {
		parts = append(parts, head.LearnerID)
	}
	return strings.Join(parts, "  ")
}
