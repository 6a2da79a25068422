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
	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/render"
	"github.com/AleutianAI/codewords/services/editor/snippet"
)

// DragUpdateKind says what a SnippetDragUpdate does.
type DragUpdateKind int

const (
	// DragStart begins a drag.
	DragStart DragUpdateKind = iota + 1

	// DragHoverChange replaces the drag geometry or hovered target.
	DragHoverChange

	// DragRelease ends the drag after a drop.
	DragRelease

	// DragCanceled abandons the drag.
	DragCanceled
)

// String returns the kind name.
func (k DragUpdateKind) String() string {
	switch k {
	case DragStart:
		return "START"
	case DragHoverChange:
		return "HOVER_CHANGE"
	case DragRelease:
		return "RELEASE"
	case DragCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// DragInProgress is the state of an ongoing snippet drag.
//
// It owns a copy of the dragged snippet, so later changes to the palette do
// not reach it. Values are never modified after construction; updates
// build a new DragInProgress.
type DragInProgress struct {
	Snippet snippet.ScoredSnippetWithTargets

	// Precise is true for pointer input and false for touch.
	Precise bool

	WidthPx  float64
	HeightPx float64
	OffsetX  float64
	OffsetY  float64

	// Hovered is one of Snippet.Targets, or nil.
	Hovered *render.ResolvedTarget
}

// NewDragInProgress starts a drag of s with nothing hovered.
func NewDragInProgress(s snippet.ScoredSnippetWithTargets, precise bool, width, height, offsetX, offsetY float64) *DragInProgress {
	return &DragInProgress{
		Snippet:  s.Clone(),
		Precise:  precise,
		WidthPx:  width,
		HeightPx: height,
		OffsetX:  offsetX,
		OffsetY:  offsetY,
	}
}

// WithHovered returns a copy of d hovering target.
func (d *DragInProgress) WithHovered(target *render.ResolvedTarget) *DragInProgress {
	next := *d
	next.Hovered = target
	return &next
}

// HoveredEdit returns the edit for the hovered target.
func (d *DragInProgress) HoveredEdit() (ast.InsertionEdit, bool) {
	if d == nil || d.Hovered == nil {
		return ast.InsertionEdit{}, false
	}
	edit, ok := d.Snippet.Edits[d.Hovered.ID]
	return edit, ok
}
