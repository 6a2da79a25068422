// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package action

import (
	"context"
	"reflect"

	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/render"
)

// ClickEvent describes a click on a rendered span.
type ClickEvent struct {
	// Line and Column locate the click; Column counts runes after the
	// indentation.
	Line   int
	Column int

	// HandlerID is the name the handler was looked up under.
	HandlerID string

	// Span is the innermost span carrying HandlerID.
	Span *render.Span
	Expr *ast.Expression
	Path ast.Path

	Document *ast.Document
}

// ClickHandler reacts to clicks on spans that name it.
type ClickHandler interface {
	// HandleClick returns true when it consumed the click, which stops
	// further handlers from running.
	HandleClick(ctx context.Context, ev ClickEvent) bool
}

// ClickFunc is the function form of a handler. Register it through
// NewClickHandler so that re-registering it is recognised as the same
// handler.
type ClickFunc func(ctx context.Context, ev ClickEvent) bool

type funcHandler struct {
	fn ClickFunc
}

func (h *funcHandler) HandleClick(ctx context.Context, ev ClickEvent) bool {
	return h.fn(ctx, ev)
}

// NewClickHandler wraps fn. Each call returns a distinct handler.
func NewClickHandler(fn ClickFunc) ClickHandler {
	return &funcHandler{fn: fn}
}

// SameHandler reports whether a and b are the identical handler.
//
// Handlers of non-comparable dynamic types are never the same, which keeps
// the comparison from panicking.
func SameHandler(a, b ClickHandler) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() || !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}
