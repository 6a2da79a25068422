// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package action defines the closed set of state transitions the editor
// accepts.
//
// Every Action is one of the variant types in this package; the unexported
// marker method keeps the set closed, so a type switch over the variants is
// exhaustive. Unknown carries action types this build does not recognise
// and is always a no-op.
package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/snippet"
)

// Type is the discriminant of an action.
type Type string

// Action types.
const (
	TypeAddExprClickHandlers      Type = "ADD_EXPR_CLICK_HANDLERS"
	TypeApplyEdit                 Type = "APPLY_EDIT"
	TypeSetDocument               Type = "SET_DOCUMENT"
	TypeSetSnippetPaletteContents Type = "SET_SNIPPET_PALETTE_CONTENTS"
	TypeSetSnippetSuggestFns      Type = "SET_SNIPPET_SUGGEST_FNS"
	TypeSnippetDragUpdate         Type = "SNIPPET_DRAG_UPDATE"
)

// Known reports whether t is one of the action types above.
func (t Type) Known() bool {
	switch t {
	case TypeAddExprClickHandlers, TypeApplyEdit, TypeSetDocument,
		TypeSetSnippetPaletteContents, TypeSetSnippetSuggestFns, TypeSnippetDragUpdate:
		return true
	}
	return false
}

var (
	// ErrInvalidHandlerName indicates a click handler name that is empty or
	// not an identifier.
	ErrInvalidHandlerName = errors.New("invalid click handler name")

	// ErrNilHandler indicates a nil click handler.
	ErrNilHandler = errors.New("nil click handler")

	// ErrEmptyEdit indicates an edit without expressions.
	ErrEmptyEdit = errors.New("edit has no expressions")

	// ErrInvalidDragUpdate indicates a drag update whose kind and payload
	// disagree.
	ErrInvalidDragUpdate = errors.New("invalid drag update")
)

var handlerNamePattern = regexp.MustCompile(`^[A-Za-z][\w-]*$`)

// Action is a state transition request.
type Action interface {
	Type() Type
	isAction()
}

// AddExprClickHandlers merges named click handlers into the registry.
type AddExprClickHandlers struct {
	Handlers map[string]ClickHandler
}

// ApplyEdit inserts into the current document.
type ApplyEdit struct {
	Edit ast.InsertionEdit
}

// SetDocument replaces the document. A nil Document unloads it.
type SetDocument struct {
	Document *ast.Document
}

// SetSnippetPaletteContents sets the search text and the fixed palette.
// A nil Predefined means the suggest functions decide the palette.
type SetSnippetPaletteContents struct {
	SearchText string
	Predefined *snippet.PredefinedList
}

// SetSnippetSuggestFns replaces the suggest functions, in priority order.
type SetSnippetSuggestFns struct {
	Fns []snippet.SuggestFn
}

// SnippetDragUpdate starts, updates or ends a drag.
type SnippetDragUpdate struct {
	Kind DragUpdateKind

	// Drag is the new drag state. Nil for DragRelease and DragCanceled.
	Drag *DragInProgress
}

// Unknown is an action of a type this build does not know.
type Unknown struct {
	Name    string
	Payload json.RawMessage
}

func (AddExprClickHandlers) Type() Type      { return TypeAddExprClickHandlers }
func (ApplyEdit) Type() Type                 { return TypeApplyEdit }
func (SetDocument) Type() Type               { return TypeSetDocument }
func (SetSnippetPaletteContents) Type() Type { return TypeSetSnippetPaletteContents }
func (SetSnippetSuggestFns) Type() Type      { return TypeSetSnippetSuggestFns }
func (SnippetDragUpdate) Type() Type         { return TypeSnippetDragUpdate }
func (u Unknown) Type() Type                 { return Type(u.Name) }

func (AddExprClickHandlers) isAction()      {}
func (ApplyEdit) isAction()                 {}
func (SetDocument) isAction()               {}
func (SetSnippetPaletteContents) isAction() {}
func (SetSnippetSuggestFns) isAction()      {}
func (SnippetDragUpdate) isAction()         {}
func (Unknown) isAction()                   {}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

// NewAddExprClickHandlers validates handler names and copies the map.
//
// Outputs:
//
//	AddExprClickHandlers - The action.
//	error - ErrInvalidHandlerName or ErrNilHandler.
func NewAddExprClickHandlers(handlers map[string]ClickHandler) (AddExprClickHandlers, error) {
	for _, name := range slices.Sorted(maps.Keys(handlers)) {
		h := handlers[name]
		if !handlerNamePattern.MatchString(name) {
			return AddExprClickHandlers{}, fmt.Errorf("%w: %q", ErrInvalidHandlerName, name)
		}
		if h == nil {
			return AddExprClickHandlers{}, fmt.Errorf("%w: %q", ErrNilHandler, name)
		}
	}
	return AddExprClickHandlers{Handlers: maps.Clone(handlers)}, nil
}

// NewApplyEdit checks the edit carries expressions.
func NewApplyEdit(edit ast.InsertionEdit) (ApplyEdit, error) {
	if len(edit.Expressions) == 0 {
		return ApplyEdit{}, fmt.Errorf("%w: %s at %s", ErrEmptyEdit, edit.Kind, edit.Path)
	}
	return ApplyEdit{Edit: edit}, nil
}

// NewSetDocument wraps a document.
func NewSetDocument(doc *ast.Document) SetDocument {
	return SetDocument{Document: doc}
}

// NewSetSnippetPaletteContents wraps the palette contents.
func NewSetSnippetPaletteContents(searchText string, predefined *snippet.PredefinedList) SetSnippetPaletteContents {
	return SetSnippetPaletteContents{SearchText: searchText, Predefined: predefined}
}

// NewSetSnippetSuggestFns copies the function list.
func NewSetSnippetSuggestFns(fns ...snippet.SuggestFn) SetSnippetSuggestFns {
	return SetSnippetSuggestFns{Fns: append([]snippet.SuggestFn(nil), fns...)}
}

// NewSnippetDragUpdate checks that drag is set exactly when the kind keeps
// a drag alive.
func NewSnippetDragUpdate(kind DragUpdateKind, drag *DragInProgress) (SnippetDragUpdate, error) {
	switch kind {
	case DragStart, DragHoverChange:
		if drag == nil {
			return SnippetDragUpdate{}, fmt.Errorf("%w: %s without drag", ErrInvalidDragUpdate, kind)
		}
	case DragRelease, DragCanceled:
		if drag != nil {
			return SnippetDragUpdate{}, fmt.Errorf("%w: %s with drag", ErrInvalidDragUpdate, kind)
		}
	default:
		return SnippetDragUpdate{}, fmt.Errorf("%w: kind %d", ErrInvalidDragUpdate, kind)
	}
	return SnippetDragUpdate{Kind: kind, Drag: drag}, nil
}
