// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store holds the editor state and serializes dispatches to it.
//
// A Store owns one reducer.EditorState. Dispatch reduces one action at a
// time; readers call State and get an immutable snapshot. Subscribers are
// told about every change after the store has been unlocked, so they may
// read the state or dispatch again.
//
// Dispatching from inside a reduction (for example from a suggest function
// that received the reduction's context) is rejected with
// ErrReentrantDispatch instead of deadlocking.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/codewords/services/editor/action"
	"github.com/AleutianAI/codewords/services/editor/history"
	"github.com/AleutianAI/codewords/services/editor/reducer"
)

var (
	// ErrReentrantDispatch is returned when Dispatch is called with a
	// context derived from a dispatch of the same store.
	ErrReentrantDispatch = errors.New("dispatch called during reduction")

	// ErrNoHistory is returned by Undo on a store without history.
	ErrNoHistory = errors.New("store has no history")

	// ErrNoLine is returned by Click for a line that is not rendered.
	ErrNoLine = errors.New("no such line")
)

// Change is delivered to subscribers after a dispatch changed the state.
type Change struct {
	Action action.Action
	Prev   *reducer.EditorState
	Next   *reducer.EditorState
}

// Listener receives changes.
type Listener func(Change)

// Option configures a Store.
type Option func(*Store)

// WithHistory records every committed document in h.
func WithHistory(h history.Store) Option {
	return func(s *Store) {
		s.history = h
	}
}

// WithState starts the store from st instead of reducer.Initial().
func WithState(st *reducer.EditorState) Option {
	return func(s *Store) {
		if st != nil {
			s.state.Store(st)
		}
	}
}

type dispatchKey struct{}

// Store is the editor state container.
//
// Thread Safety: safe for concurrent use.
type Store struct {
	reducer *reducer.Reducer
	history history.Store
	logger  *slog.Logger

	mu    sync.Mutex // serializes reductions
	state atomic.Pointer[reducer.EditorState]

	subMu sync.RWMutex
	subs  []subscription // in subscription order
}

type subscription struct {
	id string
	l  Listener
}

// New creates a store reducing with r.
func New(r *reducer.Reducer, opts ...Option) *Store {
	s := &Store{
		reducer: r,
		logger:  slog.Default().With(slog.String("component", "store")),
	}
	s.state.Store(reducer.Initial())
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state. Never nil.
func (s *Store) State() *reducer.EditorState {
	return s.state.Load()
}

// History returns the history store, or nil.
func (s *Store) History() history.Store {
	return s.history
}

// Reducer returns the reducer the store dispatches through.
func (s *Store) Reducer() *reducer.Reducer {
	return s.reducer
}

// Dispatch reduces a against the current state.
//
// Description:
//
//	On success the new state is published, a changed document is recorded
//	in history, and subscribers are notified. On failure the state is left
//	as it was and the reducer's error is returned.
//
// Outputs:
//
//	error - ErrReentrantDispatch, or the reducer's error.
//
// Thread Safety: safe for concurrent use; dispatches are serialized.
func (s *Store) Dispatch(ctx context.Context, a action.Action) error {
	return s.dispatch(ctx, a, true)
}

// DispatchAll dispatches actions in order and stops at the first error.
func (s *Store) DispatchAll(ctx context.Context, actions ...action.Action) error {
	for i, a := range actions {
		if err := s.Dispatch(ctx, a); err != nil {
			return fmt.Errorf("action %d (%s): %w", i, typeName(a), err)
		}
	}
	return nil
}

func typeName(a action.Action) string {
	if a == nil {
		return "nil"
	}
	return string(a.Type())
}

func (s *Store) dispatch(ctx context.Context, a action.Action, record bool) error {
	name := typeName(a)
	if owner, _ := ctx.Value(dispatchKey{}).(*Store); owner == s {
		recordDispatch(name, outcomeRejected, 0)
		return fmt.Errorf("%s: %w", name, ErrReentrantDispatch)
	}
	ctx = context.WithValue(ctx, dispatchKey{}, s)

	start := time.Now()
	ctx, span := tracer.Start(ctx, "store.Dispatch",
		trace.WithAttributes(attribute.String("action", name)))
	defer span.End()

	s.mu.Lock()
	prev := s.state.Load()
	next, err := s.reducer.Reduce(ctx, prev, a)
	if err != nil {
		s.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		recordDispatch(name, outcomeError, time.Since(start))
		return err
	}
	s.state.Store(next)
	if record && next.Document != nil && next.Document != prev.Document {
		s.recordHistory(ctx, next)
	}
	s.mu.Unlock()

	if next == prev {
		recordDispatch(name, outcomeUnchanged, time.Since(start))
		return nil
	}
	recordDispatch(name, outcomeChanged, time.Since(start))
	span.SetAttributes(attribute.Int64("generation", int64(next.Generation)))
	s.notify(Change{Action: a, Prev: prev, Next: next})
	return nil
}

// recordHistory appends the committed document. Failures are logged; the
// state change stands.
func (s *Store) recordHistory(ctx context.Context, st *reducer.EditorState) {
	if s.history == nil {
		return
	}
	rev, err := s.history.Append(ctx, st.Document)
	if err != nil {
		historyErrors.Inc()
		s.logger.Warn("history append failed",
			slog.String("document", st.Document.ID()),
			slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("revision recorded",
		slog.String("document", rev.DocumentID),
		slog.Uint64("revision", rev.Number))
}

// Subscribe registers l and returns its subscription ID. Listeners are
// notified in the order they subscribed.
func (s *Store) Subscribe(l Listener) string {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := uuid.NewString()
	s.subs = append(s.subs, subscription{id: id, l: l})
	return id
}

// Unsubscribe removes a subscription. Returns false if it was not found.
func (s *Store) Unsubscribe(id string) bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	i := slices.IndexFunc(s.subs, func(sub subscription) bool { return sub.id == id })
	if i < 0 {
		return false
	}
	s.subs = slices.Delete(s.subs, i, i+1)
	return true
}

func (s *Store) notify(c Change) {
	s.subMu.RLock()
	subs := slices.Clone(s.subs)
	s.subMu.RUnlock()

	for _, sub := range subs {
		s.safeNotify(sub.l, c)
	}
}

func (s *Store) safeNotify(l Listener, c Change) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("store listener panicked",
				slog.String("action", typeName(c.Action)),
				slog.Any("panic", r))
		}
	}()
	l(c)
}
