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
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/codewords/services/editor/ast"
)

var (
	// ErrNestedDropTarget indicates a span with a drop target inside
	// another span with a drop target.
	ErrNestedDropTarget = errors.New("nested drop target")

	// ErrUnanchoredDropTarget indicates a drop target on a span without a
	// document path.
	ErrUnanchoredDropTarget = errors.New("drop target span has no path")

	// ErrNoLineBuilder indicates the document's language has no builder.
	ErrNoLineBuilder = errors.New("no line builder for language")
)

// MetaLine describes one visual line before it is turned into spans.
type MetaLine struct {
	Expr   *ast.Expression
	Path   ast.Path
	Scope  ast.ScopeID
	Indent int

	// Tag distinguishes several lines rendered for the same expression,
	// such as the opening and closing line of a block.
	Tag string

	BeforeLineTarget *DropTarget
	AfterLineTarget  *DropTarget
}

// SameLine reports whether two meta lines would render identically. Frozen
// expressions never change, so pointer identity of Expr is sufficient.
func SameLine(a, b MetaLine) bool {
	return a.Expr == b.Expr &&
		a.Scope == b.Scope &&
		a.Indent == b.Indent &&
		a.Tag == b.Tag &&
		a.Path.Equal(b.Path) &&
		(a.BeforeLineTarget == nil) == (b.BeforeLineTarget == nil) &&
		(a.AfterLineTarget == nil) == (b.AfterLineTarget == nil)
}

// LineBuilder is implemented once per language.
type LineBuilder interface {
	// BuildLines lays out expr (found at path, inside scope) as lines.
	BuildLines(doc *ast.Document, expr *ast.Expression, path ast.Path, scope ast.ScopeID, indent int) ([]MetaLine, error)

	// BuildLineSpan turns one meta line into its span tree.
	BuildLineSpan(doc *ast.Document, line MetaLine) (*Span, error)
}

// RenderedLine is a MetaLine with its span tree and resolved targets.
type RenderedLine struct {
	Meta MetaLine
	Span *Span

	// DropTargets lists the before-line target, then inline targets in
	// span order, then the after-line target.
	DropTargets []*ResolvedTarget

	InlineTargets    []*ResolvedTarget
	BeforeLineTarget *ResolvedTarget
	AfterLineTarget  *ResolvedTarget
}

// Scope returns the scope of the line.
func (l *RenderedLine) Scope() ast.ScopeID {
	return l.Meta.Scope
}

// Text returns the indented plain text of the line.
func (l *RenderedLine) Text(indent string) string {
	return strings.Repeat(indent, l.Meta.Indent) + l.Span.Text()
}

// Format returns the indented line with tokens passed through st.
func (l *RenderedLine) Format(indent string, st Styler) string {
	return strings.Repeat(indent, l.Meta.Indent) + l.Span.Format(st)
}

// RenderLine builds the span tree of one meta line and resolves its targets.
//
// Description:
//
//	Walks the span tree once. Every span carrying a DropTarget must also
//	carry a path (its Expr is nil only for an empty slot), and no drop
//	target may sit inside another one. Line targets are resolved against doc as well.
//
// Inputs:
//
//	doc - Document the line belongs to.
//	b - The language's builder.
//	meta - The line to render.
//	index - Position of the line, recorded on resolved targets.
//
// Outputs:
//
//	*RenderedLine - The rendered line.
//	error - ErrNestedDropTarget, ErrUnanchoredDropTarget, or an
//	        *ast.InvalidPathError for a target that does not resolve.
func RenderLine(doc *ast.Document, b LineBuilder, meta MetaLine, index int) (*RenderedLine, error) {
	span, err := b.BuildLineSpan(doc, meta)
	if err != nil {
		return nil, fmt.Errorf("build line %d: %w", index, err)
	}
	line := &RenderedLine{Meta: meta, Span: span}

	if meta.BeforeLineTarget != nil {
		rt, err := resolveTarget(doc, meta.BeforeLineTarget, index)
		if err != nil {
			return nil, fmt.Errorf("line %d before target: %w", index, err)
		}
		line.BeforeLineTarget = rt
	}

	if err := collectInline(doc, span, false, index, &line.InlineTargets); err != nil {
		return nil, fmt.Errorf("line %d: %w", index, err)
	}

	if meta.AfterLineTarget != nil {
		rt, err := resolveTarget(doc, meta.AfterLineTarget, index)
		if err != nil {
			return nil, fmt.Errorf("line %d after target: %w", index, err)
		}
		line.AfterLineTarget = rt
	}

	if line.BeforeLineTarget != nil {
		line.DropTargets = append(line.DropTargets, line.BeforeLineTarget)
	}
	line.DropTargets = append(line.DropTargets, line.InlineTargets...)
	if line.AfterLineTarget != nil {
		line.DropTargets = append(line.DropTargets, line.AfterLineTarget)
	}
	return line, nil
}

func collectInline(doc *ast.Document, s *Span, inTarget bool, index int, out *[]*ResolvedTarget) error {
	if s.DropTarget != nil {
		if inTarget {
			return fmt.Errorf("%w at %s", ErrNestedDropTarget, s.DropTarget.Path)
		}
		if s.Path == nil {
			return fmt.Errorf("%w: target %s", ErrUnanchoredDropTarget, s.DropTarget.ID)
		}
		rt, err := resolveTarget(doc, s.DropTarget, index)
		if err != nil {
			return err
		}
		*out = append(*out, rt)
		inTarget = true
	}
	for _, p := range s.Parts {
		if child, ok := p.(*Span); ok {
			if err := collectInline(doc, child, inTarget, index, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// BuildDocumentLines lays out the whole document.
func BuildDocumentLines(doc *ast.Document, b LineBuilder) ([]MetaLine, error) {
	if b == nil {
		return nil, fmt.Errorf("%w %s", ErrNoLineBuilder, doc.Language().Name())
	}
	return b.BuildLines(doc, doc.Root(), ast.Path{}, 0, 0)
}

// RenderDocument lays out and renders every line of doc.
func RenderDocument(doc *ast.Document, b LineBuilder) ([]MetaLine, []*RenderedLine, error) {
	metas, err := BuildDocumentLines(doc, b)
	if err != nil {
		return nil, nil, err
	}
	lines := make([]*RenderedLine, len(metas))
	for i, m := range metas {
		if lines[i], err = RenderLine(doc, b, m, i); err != nil {
			return nil, nil, err
		}
	}
	return metas, lines, nil
}

// RerenderDocument renders doc reusing span trees of a previous rendering
// where the meta lines are unchanged.
//
// Description:
//
//	Computes the single splice that turns prevMetas into the new meta
//	lines and builds spans only for the inserted range. Lines outside the
//	splice keep their span trees, but their targets are resolved again
//	against doc so that parents, scopes and line indexes are current.
func RerenderDocument(doc *ast.Document, b LineBuilder, prevMetas []MetaLine, prevLines []*RenderedLine) ([]MetaLine, []*RenderedLine, error) {
	metas, err := BuildDocumentLines(doc, b)
	if err != nil {
		return nil, nil, err
	}
	if len(prevMetas) != len(prevLines) {
		prevMetas, prevLines = nil, nil
	}
	splice, _ := ComputeDiffSplice(prevMetas, metas, SameLine)

	lines := make([]*RenderedLine, len(metas))
	for i := range metas {
		var line *RenderedLine
		switch {
		case i < splice.Position:
			line, err = reresolve(doc, prevLines[i], i)
		case i < splice.Position+splice.InsertCount:
			line, err = RenderLine(doc, b, metas[i], i)
		default:
			old := prevLines[i-splice.InsertCount+splice.DeleteCount]
			line, err = reresolve(doc, old, i)
		}
		if err != nil {
			return nil, nil, err
		}
		lines[i] = line
	}
	return metas, lines, nil
}

// reresolve copies a rendered line onto a new document, keeping its span
// tree and target IDs and resolving its targets again.
func reresolve(doc *ast.Document, old *RenderedLine, index int) (*RenderedLine, error) {
	line := &RenderedLine{Meta: old.Meta, Span: old.Span}
	var err error
	if old.BeforeLineTarget != nil {
		if line.BeforeLineTarget, err = resolveTarget(doc, old.BeforeLineTarget.DropTarget, index); err != nil {
			return nil, err
		}
		line.DropTargets = append(line.DropTargets, line.BeforeLineTarget)
	}
	for _, rt := range old.InlineTargets {
		nt, err := resolveTarget(doc, rt.DropTarget, index)
		if err != nil {
			return nil, err
		}
		line.InlineTargets = append(line.InlineTargets, nt)
	}
	line.DropTargets = append(line.DropTargets, line.InlineTargets...)
	if old.AfterLineTarget != nil {
		if line.AfterLineTarget, err = resolveTarget(doc, old.AfterLineTarget.DropTarget, index); err != nil {
			return nil, err
		}
		line.DropTargets = append(line.DropTargets, line.AfterLineTarget)
	}
	return line, nil
}

// ScopesForLines returns the scope of every line.
func ScopesForLines(lines []*RenderedLine) []ast.ScopeID {
	out := make([]ast.ScopeID, len(lines))
	for i, l := range lines {
		out[i] = l.Meta.Scope
	}
	return out
}
