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
	"fmt"
	"sync"
	"time"

	"github.com/AleutianAI/codewords/services/editor/ast"
)

// DefaultLimit is the number of revisions MemoryStore keeps per document.
const DefaultLimit = 100

// MemoryStore keeps the newest revisions of each document in memory.
//
// # Description
//
// Each document gets a ring of at most Limit revisions. When the ring is
// full the oldest revision is evicted; numbering continues regardless.
//
// # Thread Safety
//
// Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	limit  int
	docs   map[string]*ring
	closed bool
	now    func() time.Time
}

// ring is a fixed-capacity FIFO of revisions.
type ring struct {
	buf   []Revision
	head  int // index of the oldest entry
	count int
	next  uint64
}

func (r *ring) push(rev Revision) {
	idx := (r.head + r.count) % len(r.buf)
	r.buf[idx] = rev
	if r.count == len(r.buf) {
		r.head = (r.head + 1) % len(r.buf)
		return
	}
	r.count++
}

func (r *ring) at(i int) Revision {
	return r.buf[(r.head+i)%len(r.buf)]
}

// NewMemoryStore creates a store keeping limit revisions per document.
// A limit below 1 uses DefaultLimit.
func NewMemoryStore(limit int) *MemoryStore {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &MemoryStore{
		limit: limit,
		docs:  make(map[string]*ring),
		now:   time.Now,
	}
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, doc *ast.Document) (Revision, error) {
	if doc == nil {
		return Revision{}, ErrNilDocument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Revision{}, ErrClosed
	}
	r, ok := s.docs[doc.ID()]
	if !ok {
		r = &ring{buf: make([]Revision, s.limit), next: 1}
		s.docs[doc.ID()] = r
	}
	rev := Revision{DocumentID: doc.ID(), Number: r.next, Document: doc, CreatedAt: s.now()}
	r.next++
	r.push(rev)
	return rev, nil
}

// Latest implements Store.
func (s *MemoryStore) Latest(_ context.Context, docID string) (Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Revision{}, ErrClosed
	}
	r, ok := s.docs[docID]
	if !ok || r.count == 0 {
		return Revision{}, fmt.Errorf("%w: document %s", ErrNotFound, docID)
	}
	return r.at(r.count - 1), nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, docID string, number uint64) (Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Revision{}, ErrClosed
	}
	if r, ok := s.docs[docID]; ok && r.count > 0 {
		first := r.at(0).Number
		if number >= first && number < first+uint64(r.count) {
			return r.at(int(number - first)), nil
		}
	}
	return Revision{}, fmt.Errorf("%w: document %s revision %d", ErrNotFound, docID, number)
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, docID string) ([]Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	r, ok := s.docs[docID]
	if !ok {
		return nil, nil
	}
	out := make([]Revision, r.count)
	for i := range out {
		out[i] = r.at(i)
	}
	return out, nil
}

// Truncate implements Store.
func (s *MemoryStore) Truncate(_ context.Context, docID string, keep uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	r, ok := s.docs[docID]
	if !ok {
		return nil
	}
	for r.count > 0 && r.at(r.count-1).Number > keep {
		r.buf[(r.head+r.count-1)%len(r.buf)] = Revision{}
		r.count--
	}
	// Evicted revisions below keep still hold their numbers.
	r.next = min(r.next, keep+1)
	return nil
}

// Close implements Store. Stored revisions are dropped.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.docs = nil
	return nil
}
