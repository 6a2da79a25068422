// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reducer computes the next editor state from the previous one and
// an action.
//
// The state is a value: Reduce never modifies its input and returns the same
// pointer when an action changes nothing, so callers detect changes by
// pointer comparison. Each field has its own slice reducer that sees only
// that field and the action. Render output and snippet suggestions are
// derived from the slices after they have been reduced.
package reducer

import (
	"github.com/AleutianAI/codewords/services/editor/action"
	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/render"
	"github.com/AleutianAI/codewords/services/editor/snippet"
)

// EditorState is the editor's application state.
//
// Treat every field as read-only. Maps and slices are replaced, never
// modified, by Reduce.
type EditorState struct {
	// Document is nil until one is loaded.
	Document *ast.Document

	SearchText string

	// Predefined is a fixed palette; nil defers to SuggestFns.
	Predefined *snippet.PredefinedList

	SuggestFns    []snippet.SuggestFn
	ClickHandlers map[string]action.ClickHandler

	// Drag is nil when no drag is in progress.
	Drag *action.DragInProgress

	// MetaLines and RenderedLines are the rendering of Document.
	MetaLines     []render.MetaLine
	RenderedLines []*render.RenderedLine

	// Snippets is the current palette with drop targets.
	Snippets []snippet.ScoredSnippetWithTargets

	// Generation increases with every state change.
	Generation uint64
}

// Initial returns the empty state.
func Initial() *EditorState {
	return &EditorState{}
}

// ClickHandler returns the handler registered under name.
func (s *EditorState) ClickHandler(name string) (action.ClickHandler, bool) {
	h, ok := s.ClickHandlers[name]
	return h, ok
}

// Snippet returns the palette entry with the given ID.
func (s *EditorState) Snippet(id string) (snippet.ScoredSnippetWithTargets, bool) {
	for _, sn := range s.Snippets {
		if sn.Snippet.ID() == id {
			return sn, true
		}
	}
	return snippet.ScoredSnippetWithTargets{}, false
}
