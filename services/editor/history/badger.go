// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/codewords/services/editor/ast"
)

// BadgerConfig holds configuration for a BadgerStore.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Path string `yaml:"path" validate:"required_unless=InMemory true"`

	// InMemory keeps everything in RAM. Useful for testing.
	InMemory bool `yaml:"in_memory"`

	// SyncWrites fsyncs every commit.
	SyncWrites bool `yaml:"sync_writes"`

	// Limit is the number of revisions kept per document. 0 keeps all.
	Limit int `yaml:"limit" validate:"gte=0"`

	// GCInterval is how often value log GC runs. 0 disables it.
	GCInterval time.Duration `yaml:"gc_interval"`

	// GCDiscardRatio is the garbage ratio that triggers a rewrite.
	GCDiscardRatio float64 `yaml:"gc_discard_ratio" validate:"gte=0,lte=1"`

	// Logger receives BadgerDB's own logging. Nil disables it.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultBadgerConfig returns production defaults for path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:           path,
		SyncWrites:     true,
		Limit:          DefaultLimit,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryBadgerConfig returns a configuration for tests.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true, Limit: DefaultLimit}
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
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// storedRevision is the value layout of one revision.
type storedRevision struct {
	CreatedAt time.Time         `json:"created_at"`
	Document  *ast.DocumentWire `json:"document"`
}

// BadgerStore keeps revisions in BadgerDB.
//
// # Description
//
// Revision n of document id lives under the key "doc/{id}/{n:020d}", so a
// prefix scan returns a document's revisions in order. Values are JSON
// documents decoded through the registry given to OpenBadgerStore.
//
// # Thread Safety
//
// Safe for concurrent use. Appends to the same document are serialized.
type BadgerStore struct {
	db       *badger.DB
	registry *ast.Registry
	limit    int
	logger   *slog.Logger

	mu     sync.Mutex // serializes Append and Truncate
	stopGC chan struct{}
	gcDone chan struct{}
	closed bool
	now    func() time.Time
}

// OpenBadgerStore opens or creates a store.
//
// Inputs:
//
//	cfg - Store configuration. Path is required unless InMemory is set.
//	reg - Languages of the stored documents, used when reading them back.
//
// Outputs:
//
//	*BadgerStore - The store. Call Close when done.
//	error - Non-nil if the database cannot be opened.
func OpenBadgerStore(cfg BadgerConfig, reg *ast.Registry) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent history")
	}
	if reg == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.GCDiscardRatio < 0 || cfg.GCDiscardRatio > 1 {
		return nil, errors.New("gc discard ratio must be between 0 and 1")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Path, err)
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
		return nil, fmt.Errorf("open history database: %w", err)
	}

	s := &BadgerStore{
		db:       db,
		registry: reg,
		limit:    cfg.Limit,
		logger:   slog.Default().With(slog.String("component", "history")),
		now:      time.Now,
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

func (s *BadgerStore) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing was worth collecting.
			if err := s.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("history value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}

func docPrefix(docID string) []byte {
	return []byte("doc/" + docID + "/")
}

func revisionKey(docID string, number uint64) []byte {
	return []byte(fmt.Sprintf("doc/%s/%020d", docID, number))
}

// nextKey holds the number of the next revision of a document whose
// revisions were all truncated away.
func nextKey(docID string) []byte {
	return []byte("next/" + docID)
}

// nextNumber returns the number the next revision of docID gets.
func nextNumber(txn *badger.Txn, docID string, existing []uint64) (uint64, error) {
	if len(existing) > 0 {
		return existing[len(existing)-1] + 1, nil
	}
	item, err := txn.Get(nextKey(docID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	var n uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("next revision of %s: %d bytes", docID, len(val))
		}
		n = binary.BigEndian.Uint64(val)
		return nil
	})
	return n, err
}

func parseNumber(key, prefix []byte) (uint64, error) {
	var n uint64
	if _, err := fmt.Sscanf(string(key[len(prefix):]), "%d", &n); err != nil {
		return 0, fmt.Errorf("parse revision key %q: %w", key, err)
	}
	return n, nil
}

// numbers returns the stored revision numbers of docID, oldest first.
func numbers(txn *badger.Txn, docID string) ([]uint64, error) {
	prefix := docPrefix(docID)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []uint64
	for it.Rewind(); it.Valid(); it.Next() {
		n, err := parseNumber(it.Item().Key(), prefix)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *BadgerStore) decode(docID string, number uint64, item *badger.Item) (Revision, error) {
	var sr storedRevision
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &sr)
	}); err != nil {
		return Revision{}, fmt.Errorf("read revision %d of %s: %w", number, docID, err)
	}
	doc, err := ast.DocumentFromWire(s.registry, sr.Document)
	if err != nil {
		return Revision{}, fmt.Errorf("decode revision %d of %s: %w", number, docID, err)
	}
	return Revision{DocumentID: docID, Number: number, Document: doc, CreatedAt: sr.CreatedAt}, nil
}

func (s *BadgerStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Append implements Store.
func (s *BadgerStore) Append(ctx context.Context, doc *ast.Document) (Revision, error) {
	if doc == nil {
		return Revision{}, ErrNilDocument
	}
	if err := ctx.Err(); err != nil {
		return Revision{}, err
	}
	created := s.now().UTC()
	value, err := json.Marshal(storedRevision{CreatedAt: created, Document: ast.DocumentToWire(doc)})
	if err != nil {
		return Revision{}, fmt.Errorf("encode document %s: %w", doc.ID(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Revision{}, ErrClosed
	}

	var rev Revision
	err = s.db.Update(func(txn *badger.Txn) error {
		existing, err := numbers(txn, doc.ID())
		if err != nil {
			return err
		}
		next, err := nextNumber(txn, doc.ID(), existing)
		if err != nil {
			return err
		}
		if err := txn.Set(revisionKey(doc.ID(), next), value); err != nil {
			return err
		}
		if s.limit > 0 {
			for excess := len(existing) + 1 - s.limit; excess > 0; excess-- {
				if err := txn.Delete(revisionKey(doc.ID(), existing[0])); err != nil {
					return err
				}
				existing = existing[1:]
			}
		}
		rev = Revision{DocumentID: doc.ID(), Number: next, Document: doc, CreatedAt: created}
		return nil
	})
	if err != nil {
		return Revision{}, fmt.Errorf("append revision of %s: %w", doc.ID(), err)
	}
	return rev, nil
}

// Latest implements Store.
func (s *BadgerStore) Latest(ctx context.Context, docID string) (Revision, error) {
	if s.isClosed() {
		return Revision{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Revision{}, err
	}
	var rev Revision
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := docPrefix(docID)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Every key under prefix sorts below prefix+0xFF.
		it.Seek(append(append([]byte{}, prefix...), 0xFF))
		if !it.Valid() {
			return fmt.Errorf("%w: document %s", ErrNotFound, docID)
		}
		n, err := parseNumber(it.Item().Key(), prefix)
		if err != nil {
			return err
		}
		rev, err = s.decode(docID, n, it.Item())
		return err
	})
	return rev, err
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, docID string, number uint64) (Revision, error) {
	if s.isClosed() {
		return Revision{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Revision{}, err
	}
	var rev Revision
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(revisionKey(docID, number))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: document %s revision %d", ErrNotFound, docID, number)
		}
		if err != nil {
			return err
		}
		rev, err = s.decode(docID, number, item)
		return err
	})
	return rev, err
}

// List implements Store.
func (s *BadgerStore) List(ctx context.Context, docID string) ([]Revision, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	var out []Revision
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := docPrefix(docID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := parseNumber(it.Item().Key(), prefix)
			if err != nil {
				return err
			}
			rev, err := s.decode(docID, n, it.Item())
			if err != nil {
				return err
			}
			out = append(out, rev)
		}
		return nil
	})
	return out, err
}

// Truncate implements Store.
func (s *BadgerStore) Truncate(ctx context.Context, docID string, keep uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		existing, err := numbers(txn, docID)
		if err != nil {
			return err
		}
		next, err := nextNumber(txn, docID, existing)
		if err != nil {
			return err
		}
		remaining := 0
		for _, n := range existing {
			if n <= keep {
				remaining++
				continue
			}
			if err := txn.Delete(revisionKey(docID, n)); err != nil {
				return err
			}
		}
		// Evicted revisions below keep still hold their numbers.
		floor := min(next, keep+1)
		if remaining > 0 || floor == 1 {
			return txn.Delete(nextKey(docID))
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], floor)
		return txn.Set(nextKey(docID), buf[:])
	})
}

// Close stops GC and closes the database. Safe to call more than once.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
	}
	return s.db.Close()
}
