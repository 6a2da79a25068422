// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package editor

import (
	"encoding/json"
	"time"

	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/history"
	"github.com/AleutianAI/codewords/services/editor/reducer"
	"github.com/AleutianAI/codewords/services/editor/render"
	"github.com/AleutianAI/codewords/services/editor/snippet"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is returned by GET /v1/editor/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// LineView is one rendered line.
type LineView struct {
	Index   int      `json:"index"`
	Indent  int      `json:"indent"`
	Text    string   `json:"text"`
	Path    ast.Path `json:"path"`
	Targets []string `json:"targets,omitempty"`
}

// StateView summarises an EditorState for clients.
type StateView struct {
	Generation uint64            `json:"generation"`
	DocumentID string            `json:"document_id,omitempty"`
	Document   *ast.DocumentWire `json:"document,omitempty"`
	Lines      []LineView        `json:"lines"`
	SearchText string            `json:"search_text"`
	Predefined bool              `json:"predefined"`
	Snippets   []SnippetView     `json:"snippets"`
	Dragging   string            `json:"dragging,omitempty"`
	Hovered    string            `json:"hovered,omitempty"`
	Selection  *Selection        `json:"selection,omitempty"`
}

// SnippetView is one palette entry.
type SnippetView struct {
	ID      string             `json:"id"`
	Display string             `json:"display"`
	Score   float64            `json:"score"`
	Sources map[string]float64 `json:"sources,omitempty"`
	Targets []TargetView       `json:"targets"`
}

// TargetView is one drop target of a snippet.
type TargetView struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind"`
	Position string   `json:"position"`
	Line     int      `json:"line"`
	Path     ast.Path `json:"path"`
	Priority int      `json:"priority"`
}

// SnippetsResponse is returned by GET /v1/editor/snippets.
type SnippetsResponse struct {
	Query    string        `json:"query"`
	Snippets []SnippetView `json:"snippets"`
}

// ActionResponse is returned after dispatching an action.
type ActionResponse struct {
	Type       string `json:"type"`
	Generation uint64 `json:"generation"`
}

// ClickRequest is the body of POST /v1/editor/click.
type ClickRequest struct {
	Line   int `json:"line" binding:"gte=0"`
	Column int `json:"column" binding:"gte=0"`
}

// ClickResponse reports whether a handler consumed a click.
type ClickResponse struct {
	Handled   bool       `json:"handled"`
	Selection *Selection `json:"selection,omitempty"`
}

// DropRequest is the body of POST /v1/editor/drop.
type DropRequest struct {
	Query     string `json:"query"`
	SnippetID string `json:"snippet_id" binding:"required"`
	TargetID  string `json:"target_id" binding:"required"`
}

// DropResponse reports the outcome of a drop.
type DropResponse struct {
	Applied    bool   `json:"applied"`
	Generation uint64 `json:"generation"`
}

// UndoResponse reports whether undo restored a revision.
type UndoResponse struct {
	Undone     bool   `json:"undone"`
	Generation uint64 `json:"generation"`
}

// RevisionView is one stored revision.
type RevisionView struct {
	Number    uint64    `json:"number"`
	CreatedAt time.Time `json:"created_at"`
	Text      []string  `json:"text"`
}

// HistoryResponse is returned by GET /v1/editor/history.
type HistoryResponse struct {
	DocumentID string         `json:"document_id"`
	Revisions  []RevisionView `json:"revisions"`
}

// NewStateView builds the client view of st.
func NewStateView(st *reducer.EditorState, sel *Selection) StateView {
	v := StateView{
		Generation: st.Generation,
		Lines:      make([]LineView, 0, len(st.RenderedLines)),
		SearchText: st.SearchText,
		Predefined: st.Predefined != nil,
		Snippets:   NewSnippetViews(st.Snippets),
		Selection:  sel,
	}
	if st.Document != nil {
		v.DocumentID = st.Document.ID()
		v.Document = ast.DocumentToWire(st.Document)
	}
	for i, l := range st.RenderedLines {
		v.Lines = append(v.Lines, newLineView(i, l))
	}
	if st.Drag != nil {
		v.Dragging = st.Drag.Snippet.Snippet.ID()
		if st.Drag.Hovered != nil {
			v.Hovered = st.Drag.Hovered.ID
		}
	}
	return v
}

func newLineView(i int, l *render.RenderedLine) LineView {
	lv := LineView{
		Index:  i,
		Indent: l.Meta.Indent,
		Text:   l.Span.Text(),
		Path:   l.Meta.Path,
	}
	for _, t := range l.DropTargets {
		lv.Targets = append(lv.Targets, t.ID)
	}
	return lv
}

// NewSnippetViews builds palette views, keeping order.
func NewSnippetViews(snippets []snippet.ScoredSnippetWithTargets) []SnippetView {
	out := make([]SnippetView, 0, len(snippets))
	for _, s := range snippets {
		sv := SnippetView{
			ID:      s.Snippet.ID(),
			Score:   s.Score,
			Sources: s.Sources,
			Targets: make([]TargetView, 0, len(s.Targets)),
		}
		for _, d := range s.Snippet.DisplaySpans() {
			sv.Display += d.Text()
		}
		for _, t := range s.Targets {
			sv.Targets = append(sv.Targets, TargetView{
				ID:       t.ID,
				Kind:     t.Kind.String(),
				Position: t.Position.String(),
				Line:     t.Line,
				Path:     t.Path,
				Priority: s.Edits[t.ID].Priority,
			})
		}
		out = append(out, sv)
	}
	return out
}

// newRevisionViews renders stored revisions as plain text.
func newRevisionViews(revs []history.Revision, lines func(*ast.Document) []string) []RevisionView {
	out := make([]RevisionView, 0, len(revs))
	for _, r := range revs {
		out = append(out, RevisionView{
			Number:    r.Number,
			CreatedAt: r.CreatedAt,
			Text:      lines(r.Document),
		})
	}
	return out
}

// wsMessage is what a websocket client sends.
type wsMessage struct {
	// Op is "action", "click", "drop", "undo" or "suggest".
	Op string `json:"op"`

	// Action is a wire action for Op "action".
	Action json.RawMessage `json:"action,omitempty"`

	Line      int    `json:"line,omitempty"`
	Column    int    `json:"column,omitempty"`
	Query     string `json:"query,omitempty"`
	SnippetID string `json:"snippet_id,omitempty"`
	TargetID  string `json:"target_id,omitempty"`
}

// wsReply is what the server pushes.
type wsReply struct {
	Event     string         `json:"event"`
	SessionID string         `json:"session_id,omitempty"`
	State     *StateView     `json:"state,omitempty"`
	Snippets  []SnippetView  `json:"snippets,omitempty"`
	Handled   *bool          `json:"handled,omitempty"`
	Error     *ErrorResponse `json:"error,omitempty"`
}
