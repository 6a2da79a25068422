// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package drag

import (
	"math"

	"github.com/AleutianAI/codewords/services/editor/render"
)

// Rect is an axis-aligned rectangle in pixels. It contains its top-left
// edge but not its bottom-right one.
type Rect struct {
	Left, Top, Right, Bottom float64
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y float64) bool {
	return r.Left <= x && x < r.Right && r.Top <= y && y < r.Bottom
}

// Layout maps drop target IDs to their on-screen rectangles.
type Layout struct {
	Inline map[string]Rect
	Line   map[string]Rect
}

// HitTest returns the target under (x, y), or nil.
//
// Inline targets are tried first so that a slot wins over the line it sits
// on. Within each group the first target in list order wins.
func (l Layout) HitTest(targets []*render.ResolvedTarget, x, y float64) *render.ResolvedTarget {
	for _, t := range targets {
		if t.Kind != render.TargetInline {
			continue
		}
		if r, ok := l.Inline[t.ID]; ok && r.Contains(x, y) {
			return t
		}
	}
	for _, t := range targets {
		if t.Kind != render.TargetFullLine {
			continue
		}
		if r, ok := l.Line[t.ID]; ok && r.Contains(x, y) {
			return t
		}
	}
	return nil
}

// Grid describes a monospace rendering.
type Grid struct {
	CharWidth  float64
	LineHeight float64

	// IndentWidth is the number of columns per indent level.
	IndentWidth int
}

// GridLayout computes the layout of lines drawn on a monospace grid.
//
// Line i covers [i*LineHeight, (i+1)*LineHeight). Its before-line target is
// the upper half of that band and its after-line target the lower half, both
// spanning the full width. An inline target covers the columns of its span.
func GridLayout(lines []*render.RenderedLine, g Grid) Layout {
	l := Layout{Inline: make(map[string]Rect), Line: make(map[string]Rect)}
	for i, line := range lines {
		top := float64(i) * g.LineHeight
		mid := top + g.LineHeight/2
		bottom := top + g.LineHeight
		if t := line.Meta.BeforeLineTarget; t != nil {
			l.Line[t.ID] = Rect{Left: 0, Top: top, Right: math.Inf(1), Bottom: mid}
		}
		if t := line.Meta.AfterLineTarget; t != nil {
			l.Line[t.ID] = Rect{Left: 0, Top: mid, Right: math.Inf(1), Bottom: bottom}
		}
		if line.Span == nil {
			continue
		}
		indent := line.Meta.Indent * g.IndentWidth
		spanColumns(line.Span, indent, func(s *render.Span, from, to int) {
			if s.DropTarget == nil {
				return
			}
			l.Inline[s.DropTarget.ID] = Rect{
				Left:   float64(from) * g.CharWidth,
				Top:    top,
				Right:  float64(to) * g.CharWidth,
				Bottom: bottom,
			}
		})
	}
	return l
}

// spanColumns calls fn with the column range of s and every nested span,
// and returns the column after s.
func spanColumns(s *render.Span, col int, fn func(s *render.Span, from, to int)) int {
	start := col
	for _, p := range s.Parts {
		switch p := p.(type) {
		case render.Text:
			col += len([]rune(string(p)))
		case render.Token:
			col += len([]rune(p.Text))
		case *render.Span:
			col = spanColumns(p, col, fn)
		}
	}
	fn(s, start, col)
	return col
}
