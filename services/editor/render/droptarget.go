// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package render

import (
	"strconv"
	"sync/atomic"

	"github.com/AleutianAI/codewords/services/editor/ast"
)

// TargetKind distinguishes targets inside a line from targets between lines.
type TargetKind int

const (
	// TargetInline is a span within a line, typically one slot.
	TargetInline TargetKind = iota

	// TargetFullLine sits above or below a whole line.
	TargetFullLine
)

// String returns "INLINE" or "FULL_LINE".
func (k TargetKind) String() string {
	if k == TargetFullLine {
		return "FULL_LINE"
	}
	return "INLINE"
}

// TargetPosition says where, relative to the target path, a drop lands.
type TargetPosition int

const (
	// PositionBefore inserts before the slot at Path.
	PositionBefore TargetPosition = iota

	// PositionReplace replaces the slot at Path. On a list expression it
	// appends into the list instead.
	PositionReplace

	// PositionAfter inserts after the slot at Path.
	PositionAfter
)

// String returns "BEFORE", "REPLACE" or "AFTER".
func (p TargetPosition) String() string {
	switch p {
	case PositionBefore:
		return "BEFORE"
	case PositionAfter:
		return "AFTER"
	default:
		return "REPLACE"
	}
}

// EditMutator lets a language adjust the edit a snippet builds for a
// target. Returning false rejects the target.
type EditMutator func(edit ast.InsertionEdit, target *ResolvedTarget) (ast.InsertionEdit, bool)

// DropTarget is a place a snippet may be dropped.
type DropTarget struct {
	// ID is unique per process. Snippet edits are keyed by it.
	ID       string
	Kind     TargetKind
	Position TargetPosition
	Path     ast.Path

	// Mutate is optional.
	Mutate EditMutator
}

var dropTargetSeq atomic.Uint64

// NewDropTarget creates a target with a fresh ID.
func NewDropTarget(kind TargetKind, position TargetPosition, path ast.Path) *DropTarget {
	return &DropTarget{
		ID:       "cwdt" + strconv.FormatUint(dropTargetSeq.Add(1), 10),
		Kind:     kind,
		Position: position,
		Path:     path.Clone(),
	}
}

// ResolvedTarget is a DropTarget with the expressions it refers to looked up
// in a specific document.
type ResolvedTarget struct {
	*DropTarget

	// Expr is the expression at Path. Nil for an empty fixed slot.
	Expr *ast.Expression

	// Parent is the expression holding the slot at Path. Nil when Path is
	// the document root.
	Parent *ast.Expression

	// Scope is the scope enclosing the target within Scopes.
	Scope  ast.ScopeID
	Scopes *ast.ScopeTable

	// Line is the index of the rendered line the target belongs to.
	Line int
}

// resolveTarget looks up the expressions of t in doc.
func resolveTarget(doc *ast.Document, t *DropTarget, line int) (*ResolvedTarget, error) {
	rt := &ResolvedTarget{
		DropTarget: t,
		Scopes:     doc.Scopes(),
		Line:       line,
	}
	if len(t.Path) == 0 {
		rt.Expr = doc.Root()
		rt.Scope = doc.ScopeAt(t.Path)
		return rt, nil
	}
	parent, err := doc.Root().Descendant(t.Path, 0, len(t.Path)-1)
	if err != nil {
		return nil, err
	}
	if !parent.HasSlot(t.Path.Last()) {
		return nil, &ast.InvalidPathError{Path: t.Path.Clone(), Depth: len(t.Path) - 1}
	}
	rt.Parent = parent
	rt.Expr = parent.Child(t.Path.Last())
	rt.Scope = doc.ScopeAt(scopePath(t, rt.Expr))
	return rt, nil
}

// scopePath returns the path whose scope an insertion at t lands in. Only an
// append into a list lands inside the expression at t.Path; every other
// insertion becomes a sibling or a replacement within the parent.
func scopePath(t *DropTarget, expr *ast.Expression) ast.Path {
	if t.Position == PositionReplace && expr != nil && expr.Type().Kind == ast.KindDynamic {
		return t.Path
	}
	return t.Path.Parent()
}
