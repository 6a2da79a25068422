// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package blocks

import (
	"fmt"

	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/render"
)

// Click handler IDs attached to spans.
const (
	HandlerSelect = "select"
	HandlerRename = "rename"
)

// Meta line tags.
const (
	TagStatement = "stmt"
	TagOpen      = "open"
	TagClose     = "close"
	TagEmpty     = "empty"
)

// Placeholder is shown for an empty slot.
const Placeholder = "_"

// Builder lays out blocks documents.
//
// Every statement of a list gets a full-line target before it, and the last
// one also after it, so a statement can be dropped anywhere in the list. An
// empty list renders a single line whose target appends into it. Leaves and
// empty slots are inline replace targets.
type Builder struct{}

// NewBuilder returns a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildLines implements render.LineBuilder.
func (b *Builder) BuildLines(doc *ast.Document, expr *ast.Expression, path ast.Path, scope ast.ScopeID, indent int) ([]render.MetaLine, error) {
	if expr == nil {
		return nil, fmt.Errorf("build lines at %s: %w", path, ast.ErrNilDocument)
	}
	if expr.Type().Language() != language {
		return nil, fmt.Errorf("build lines: %s: %w", expr.Type().Name, ast.ErrLanguageMismatch)
	}
	if expr.Type() == programType {
		return b.listLines(doc, expr, path, scope, indent)
	}
	return b.statementLines(doc, expr, path, scope, indent)
}

// listLines lays out a Program or Statements list at path.
func (b *Builder) listLines(doc *ast.Document, list *ast.Expression, path ast.Path, scope ast.ScopeID, indent int) ([]render.MetaLine, error) {
	if list == nil || list.ChildCount() == 0 {
		return []render.MetaLine{{
			Expr:             list,
			Path:             path.Clone(),
			Scope:            scope,
			Indent:           indent,
			Tag:              TagEmpty,
			BeforeLineTarget: render.NewDropTarget(render.TargetFullLine, render.PositionReplace, path),
		}}, nil
	}
	var out []render.MetaLine
	for i := 0; i < list.ChildCount(); i++ {
		childPath := path.Child(list.SlotAt(i))
		lines, err := b.statementLines(doc, list.ChildAt(i), childPath, scope, indent)
		if err != nil {
			return nil, err
		}
		lines[0].BeforeLineTarget = render.NewDropTarget(render.TargetFullLine, render.PositionBefore, childPath)
		if i == list.ChildCount()-1 {
			lines[len(lines)-1].AfterLineTarget = render.NewDropTarget(render.TargetFullLine, render.PositionAfter, childPath)
		}
		out = append(out, lines...)
	}
	return out, nil
}

// statementLines lays out one statement. Blocks take an opening line, their
// body and a closing line; everything else fits on one line.
func (b *Builder) statementLines(doc *ast.Document, stmt *ast.Expression, path ast.Path, scope ast.ScopeID, indent int) ([]render.MetaLine, error) {
	if stmt.Type() != blockType {
		return []render.MetaLine{{Expr: stmt, Path: path.Clone(), Scope: scope, Indent: indent, Tag: TagStatement}}, nil
	}
	inner := scope
	if id, ok := doc.Scopes().ScopeOf(stmt); ok {
		inner = id
	}
	out := []render.MetaLine{{Expr: stmt, Path: path.Clone(), Scope: scope, Indent: indent, Tag: TagOpen}}
	body, err := b.listLines(doc, stmt.Child("body"), path.Child("body"), inner, indent+1)
	if err != nil {
		return nil, err
	}
	out = append(out, body...)
	out = append(out, render.MetaLine{Expr: stmt, Path: path.Clone(), Scope: scope, Indent: indent, Tag: TagClose})
	return out, nil
}

// BuildLineSpan implements render.LineBuilder.
func (b *Builder) BuildLineSpan(_ *ast.Document, line render.MetaLine) (*render.Span, error) {
	switch line.Tag {
	case TagEmpty:
		return &render.Span{
			Expr:  line.Expr,
			Path:  line.Path,
			Parts: []render.Part{render.Token{Text: "...", Style: render.StylePlaceholder}},
		}, nil
	case TagOpen:
		return punctSpan(line.Expr, line.Path, "{"), nil
	case TagClose:
		return punctSpan(line.Expr, line.Path, "}"), nil
	case TagStatement:
		return exprSpan(line.Expr, line.Path, true), nil
	default:
		return nil, fmt.Errorf("unknown line tag %q", line.Tag)
	}
}

// DisplaySpan renders e on a single line without drop targets, for palettes.
func DisplaySpan(e *ast.Expression) *render.Span {
	return exprSpan(e, nil, false)
}

func punctSpan(e *ast.Expression, path ast.Path, text string) *render.Span {
	return &render.Span{
		Expr:            e,
		Path:            path,
		ClickHandlerIDs: []string{HandlerSelect},
		Parts:           []render.Part{render.Token{Text: text, Style: render.StylePunctuation}},
	}
}

// exprSpan renders e inline. With targets set, leaves and empty slots below
// e become inline replace targets.
func exprSpan(e *ast.Expression, path ast.Path, targets bool) *render.Span {
	s := &render.Span{Expr: e, Path: path, ClickHandlerIDs: []string{HandlerSelect}}
	switch e.Type() {
	case letType:
		s.Parts = []render.Part{
			render.Token{Text: "let", Style: render.StyleKeyword},
			render.Text(" "),
			slotSpan(e, "name", path, targets),
			render.Text(" = "),
			slotSpan(e, "value", path, targets),
		}
	case callType:
		s.Parts = []render.Part{
			slotSpan(e, "callee", path, targets),
			render.Token{Text: "(", Style: render.StylePunctuation},
			slotSpan(e, "arg", path, targets),
			render.Token{Text: ")", Style: render.StylePunctuation},
		}
	case blockType:
		s.Parts = append(s.Parts, render.Token{Text: "{ ", Style: render.StylePunctuation})
		s.Parts = append(s.Parts, inlineList(e.Child("body"), childPath(path, "body"), targets)...)
		s.Parts = append(s.Parts, render.Token{Text: " }", Style: render.StylePunctuation})
	case programType, statementsType:
		s.Parts = inlineList(e, path, targets)
	case nameType:
		s.ClickHandlerIDs = []string{HandlerSelect, HandlerRename}
		s.Parts = []render.Part{render.Token{Text: e.Value(), Style: render.StyleDeclaration}}
	case identifierType:
		s.ClickHandlerIDs = []string{HandlerSelect, HandlerRename}
		s.Parts = []render.Part{render.Token{Text: e.Value(), Style: render.StyleIdentifier}}
	case numberType:
		s.Parts = []render.Part{render.Token{Text: e.Value(), Style: render.StyleNumber}}
	default:
		s.Parts = []render.Part{render.Text(e.Type().Name)}
	}
	return s
}

// slotSpan renders one fixed slot of parent.
func slotSpan(parent *ast.Expression, slot string, path ast.Path, targets bool) *render.Span {
	p := childPath(path, slot)
	child := parent.Child(slot)
	if child == nil {
		s := &render.Span{
			Path:            p,
			ClickHandlerIDs: []string{HandlerSelect},
			Parts:           []render.Part{render.Token{Text: Placeholder, Style: render.StylePlaceholder}},
		}
		if targets {
			s.DropTarget = render.NewDropTarget(render.TargetInline, render.PositionReplace, p)
		}
		return s
	}
	s := exprSpan(child, p, targets)
	if targets && child.Type().Kind == ast.KindLeaf {
		s.DropTarget = render.NewDropTarget(render.TargetInline, render.PositionReplace, p)
	}
	return s
}

func inlineList(list *ast.Expression, path ast.Path, targets bool) []render.Part {
	if list == nil || list.ChildCount() == 0 {
		return []render.Part{render.Token{Text: "...", Style: render.StylePlaceholder}}
	}
	var parts []render.Part
	for i := 0; i < list.ChildCount(); i++ {
		if i > 0 {
			parts = append(parts, render.Token{Text: "; ", Style: render.StylePunctuation})
		}
		parts = append(parts, exprSpan(list.ChildAt(i), childPath(path, list.SlotAt(i)), targets))
	}
	return parts
}

// childPath extends path, keeping nil for display spans that have none.
func childPath(path ast.Path, slot string) ast.Path {
	if path == nil {
		return nil
	}
	return path.Child(slot)
}
