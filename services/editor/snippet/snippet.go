// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snippet suggests insertable code fragments and works out where in
// the current document each of them may be dropped.
//
// # Pipeline
//
//	SuggestFns ──▶ []ScoredSnippet ──▶ stable sort by score ──▶ targets
//	 (in registration order)                                      │
//	                                     drop snippets with none ◀┘
//
// A fixed palette of PredefinedList replaces the whole pipeline when set.
package snippet

import (
	"context"
	"maps"
	"slices"

	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/render"
)

// Snippet is an insertable fragment.
type Snippet interface {
	// ID identifies the snippet, for example in a catalog.
	ID() string

	// BuildInsertionEdit returns the edit that drops the snippet at target.
	// The edit is a valid drop only if ok is true and its Priority is
	// positive.
	BuildInsertionEdit(target *render.ResolvedTarget) (edit ast.InsertionEdit, ok bool)

	// DisplaySpans renders the snippet for a palette.
	DisplaySpans() []*render.Span
}

// ScoredSnippet is a Snippet with a relevance score.
type ScoredSnippet struct {
	Snippet Snippet
	Score   float64

	// Sources maps whatever triggered the suggestion (a keyword, a search
	// term) to the score it contributed.
	Sources map[string]float64
}

// ScoredSnippetWithTargets is a ScoredSnippet with the places it may go.
type ScoredSnippetWithTargets struct {
	ScoredSnippet

	// Targets are the valid drop targets in render order.
	Targets []*render.ResolvedTarget

	// Edits maps target ID to the edit for that target.
	Edits map[string]ast.InsertionEdit
}

// Clone returns a copy that shares no slices or maps with s. Targets and
// edits are immutable values and are shared.
func (s ScoredSnippetWithTargets) Clone() ScoredSnippetWithTargets {
	out := s
	out.Sources = maps.Clone(s.Sources)
	out.Targets = slices.Clone(s.Targets)
	out.Edits = maps.Clone(s.Edits)
	return out
}

// Target returns the target with the given ID.
func (s ScoredSnippetWithTargets) Target(id string) (*render.ResolvedTarget, bool) {
	for _, t := range s.Targets {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// PredefinedList is a fixed palette. A nil *PredefinedList means "ask the
// suggest functions"; a non-nil one, even with no snippets, means "show
// exactly these".
type PredefinedList struct {
	Snippets []ScoredSnippetWithTargets
}

// NewPredefinedList wraps snippets in a list.
func NewPredefinedList(snippets ...ScoredSnippetWithTargets) *PredefinedList {
	return &PredefinedList{Snippets: snippets}
}

// Context is what a SuggestFn sees.
type Context struct {
	// Document may be nil when no document is loaded.
	Document      *ast.Document
	RenderedLines []*render.RenderedLine
	SearchText    string

	// SuggestFns lists every registered function, including the one being
	// called, so that functions can delegate to each other.
	SuggestFns []SuggestFn
}

// SuggestFn produces candidate snippets for a context.
//
// Implementations must be pure: the same Context yields the same snippets
// in the same order. They must not keep references to the Context.
type SuggestFn interface {
	Suggest(ctx context.Context, sc Context) []ScoredSnippet
}

// SuggestFunc adapts a function to SuggestFn.
type SuggestFunc func(ctx context.Context, sc Context) []ScoredSnippet

// Suggest calls f.
func (f SuggestFunc) Suggest(ctx context.Context, sc Context) []ScoredSnippet {
	return f(ctx, sc)
}
