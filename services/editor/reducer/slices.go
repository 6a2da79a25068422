// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reducer

import (
	"context"
	"maps"
	"slices"

	"github.com/AleutianAI/codewords/services/editor/action"
	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/snippet"
)

// Slice reducers. Each returns its new value and whether it differs from
// prev; on error the value is prev.

func reduceDocument(ctx context.Context, prev *ast.Document, a action.Action) (*ast.Document, bool, error) {
	switch a := a.(type) {
	case action.ApplyEdit:
		if prev == nil {
			return prev, false, &NoDocumentError{Action: a.Type()}
		}
		next, err := ast.ApplyInsertion(ctx, prev, a.Edit)
		if err != nil {
			return prev, false, err
		}
		return next, true, nil
	case action.SetDocument:
		return a.Document, a.Document != prev, nil
	default:
		return prev, false, nil
	}
}

func reduceSearchText(prev string, a action.Action) (string, bool) {
	if a, ok := a.(action.SetSnippetPaletteContents); ok {
		return a.SearchText, a.SearchText != prev
	}
	return prev, false
}

func reducePredefined(prev *snippet.PredefinedList, a action.Action) (*snippet.PredefinedList, bool) {
	if a, ok := a.(action.SetSnippetPaletteContents); ok {
		return a.Predefined, a.Predefined != prev
	}
	return prev, false
}

func reduceSuggestFns(prev []snippet.SuggestFn, a action.Action) ([]snippet.SuggestFn, bool) {
	if a, ok := a.(action.SetSnippetSuggestFns); ok {
		return a.Fns, true
	}
	return prev, false
}

// reduceClickHandlers merges the incoming handlers in name order, so a
// conflict always reports the first conflicting name. Registering the same
// handler again under the same name is a no-op.
func reduceClickHandlers(prev map[string]action.ClickHandler, a action.Action) (map[string]action.ClickHandler, bool, error) {
	add, ok := a.(action.AddExprClickHandlers)
	if !ok {
		return prev, false, nil
	}
	var next map[string]action.ClickHandler
	for _, name := range slices.Sorted(maps.Keys(add.Handlers)) {
		h := add.Handlers[name]
		if old, exists := prev[name]; exists {
			if !action.SameHandler(old, h) {
				return prev, false, &DuplicateHandlerError{Name: name}
			}
			continue
		}
		if next == nil {
			next = maps.Clone(prev)
			if next == nil {
				next = make(map[string]action.ClickHandler, len(add.Handlers))
			}
		}
		next[name] = h
	}
	if next == nil {
		return prev, false, nil
	}
	return next, true, nil
}

func reduceDrag(prev *action.DragInProgress, a action.Action) (*action.DragInProgress, bool) {
	if a, ok := a.(action.SnippetDragUpdate); ok {
		return a.Drag, a.Drag != prev
	}
	return prev, false
}
