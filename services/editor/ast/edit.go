// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"fmt"
	"time"
)

// EditKind selects where an InsertionEdit places its expressions.
type EditKind int

const (
	// EditBefore inserts before the slot named by the last path segment.
	EditBefore EditKind = iota

	// EditAfter inserts after the slot named by the last path segment.
	EditAfter

	// EditAppend appends to the dynamic expression at Path.
	EditAppend

	// EditReplace stores a single expression in the slot named by the
	// last path segment.
	EditReplace
)

// String returns "BEFORE", "AFTER", "APPEND", "REPLACE" or "UNKNOWN".
func (k EditKind) String() string {
	switch k {
	case EditBefore:
		return "BEFORE"
	case EditAfter:
		return "AFTER"
	case EditAppend:
		return "APPEND"
	case EditReplace:
		return "REPLACE"
	default:
		return "UNKNOWN"
	}
}

// ParseEditKind is the inverse of EditKind.String.
func ParseEditKind(s string) (EditKind, error) {
	switch s {
	case "BEFORE":
		return EditBefore, nil
	case "AFTER":
		return EditAfter, nil
	case "APPEND":
		return EditAppend, nil
	case "REPLACE":
		return EditReplace, nil
	default:
		return 0, fmt.Errorf("unknown edit kind %q", s)
	}
}

// InsertionEdit describes one structural insertion into a document.
type InsertionEdit struct {
	Kind EditKind

	// Path locates the target. For EditAppend it is the dynamic parent,
	// otherwise it ends with the slot the edit is relative to.
	Path Path

	// Expressions are inserted in order. EditReplace takes exactly one.
	Expressions []*Expression

	// Priority ranks competing edits. Only positive priorities are valid
	// drop edits.
	Priority int
}

// ParentPath returns the path of the expression that receives the edit.
func (e InsertionEdit) ParentPath() Path {
	if e.Kind == EditAppend {
		return e.Path
	}
	return e.Path.Parent()
}

// ApplyInsertion applies edit to prev and returns the resulting document.
//
// Description:
//
//	Clones the path from the root to the receiving parent, performs the
//	insertion on the last clone, freezes the new tree and wraps it in a
//	Document with prev's ID. Only nodes on the path and the inserted
//	expressions are new; every other node is shared with prev.
//
//	Inserted expressions are deep-copied first, so a template expression
//	can be inserted any number of times without aliasing.
//
// Inputs:
//
//	ctx - Context for tracing.
//	prev - The frozen document to edit. Never modified.
//	edit - The insertion.
//
// Outputs:
//
//	*Document - The new frozen document.
//	error - *EditError; prev is unchanged in every failure case.
//
// Thread Safety: safe to call concurrently on the same prev.
func ApplyInsertion(ctx context.Context, prev *Document, edit InsertionEdit) (*Document, error) {
	if prev == nil {
		return nil, ErrNilDocument
	}
	start := time.Now()
	ctx, span := startEditSpan(ctx, prev, edit)
	defer span.End()

	doc, err := applyInsertion(prev, edit)
	recordEditMetrics(ctx, edit.Kind, len(edit.Path), time.Since(start), err == nil)
	if err != nil {
		setEditSpanError(span, err)
		return nil, err
	}
	return doc, nil
}

func applyInsertion(prev *Document, edit InsertionEdit) (*Document, error) {
	if len(edit.Expressions) == 0 {
		return nil, newEditError(edit, "no expressions to insert", nil)
	}
	if edit.Kind != EditAppend && len(edit.Path) == 0 {
		return nil, newEditError(edit, "path must name a slot", nil)
	}
	if edit.Kind == EditReplace && len(edit.Expressions) != 1 {
		return nil, newEditError(edit, fmt.Sprintf("replace takes exactly one expression, got %d", len(edit.Expressions)), nil)
	}

	lang := prev.Language()
	inserted := make([]*Expression, len(edit.Expressions))
	for i, expr := range edit.Expressions {
		if expr == nil {
			return nil, newEditError(edit, fmt.Sprintf("expression %d is nil", i), nil)
		}
		if expr.Language() != lang {
			return nil, newEditError(edit, fmt.Sprintf("expression %d is %s", i, expr.typ.Name), ErrLanguageMismatch)
		}
		inserted[i] = expr.DeepClone()
	}

	clones, err := ClonePath(prev.root, edit.ParentPath())
	if err != nil {
		return nil, newEditError(edit, "target does not resolve", err)
	}
	parent := clones[len(clones)-1]
	slot := edit.Path.Last()

	for _, expr := range inserted {
		if !parent.typ.Accepts(slot, expr.typ) {
			return nil, newEditError(edit,
				fmt.Sprintf("%s does not accept %s (%s)", parent.typ.Name, expr.typ.Name, expr.typ.Category), nil)
		}
	}

	switch edit.Kind {
	case EditAppend:
		err = parent.Append(inserted...)
	case EditBefore, EditAfter:
		if parent.typ.Kind != KindDynamic {
			return nil, newEditError(edit, "parent "+parent.typ.Name+" is not a list", ErrNotDynamic)
		}
		idx := parent.IndexOf(slot)
		if idx < 0 {
			return nil, newEditError(edit, "target does not resolve", &InvalidPathError{Path: edit.Path.Clone(), Depth: len(edit.Path) - 1})
		}
		if edit.Kind == EditAfter {
			idx++
		}
		_, err = parent.Splice(idx, 0, inserted...)
	case EditReplace:
		if !parent.HasSlot(slot) {
			return nil, newEditError(edit, "target does not resolve", &InvalidPathError{Path: edit.Path.Clone(), Depth: len(edit.Path) - 1})
		}
		err = parent.AssignSlot(slot, inserted[0])
	default:
		return nil, newEditError(edit, "unknown edit kind", nil)
	}
	if err != nil {
		return nil, newEditError(edit, "slot rejected insertion", err)
	}

	root := clones[0]
	root.freeze()
	return &Document{id: prev.id, root: root}, nil
}
