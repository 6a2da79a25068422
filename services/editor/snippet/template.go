// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snippet

import (
	"slices"

	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/render"
)

// TemplateSnippet inserts a copy of a frozen template expression.
//
// A target is legal when its kind is listed in Kinds, the receiving
// expression accepts the template's type and every name in
// FreeIdentifiers resolves in the target's scope.
type TemplateSnippet struct {
	Name     string
	Template *ast.Expression

	// FreeIdentifiers must be declared around the drop site.
	FreeIdentifiers []string

	// Kinds restricts the target kinds. Empty allows every kind.
	Kinds []render.TargetKind

	// Priority of the built edits. Zero means 1.
	Priority int

	// Display is returned by DisplaySpans.
	Display []*render.Span
}

// ID returns the snippet name.
func (s *TemplateSnippet) ID() string {
	return s.Name
}

// DisplaySpans returns the palette rendering.
func (s *TemplateSnippet) DisplaySpans() []*render.Span {
	return s.Display
}

// BuildInsertionEdit implements Snippet.
func (s *TemplateSnippet) BuildInsertionEdit(target *render.ResolvedTarget) (ast.InsertionEdit, bool) {
	if s.Template == nil || target == nil {
		return ast.InsertionEdit{}, false
	}
	if len(s.Kinds) > 0 && !slices.Contains(s.Kinds, target.Kind) {
		return ast.InsertionEdit{}, false
	}
	if !s.identifiersResolve(target) {
		return ast.InsertionEdit{}, false
	}
	priority := s.Priority
	if priority == 0 {
		priority = 1
	}
	edit := ast.InsertionEdit{
		Path:        target.Path.Clone(),
		Expressions: []*ast.Expression{s.Template},
		Priority:    priority,
	}
	typ := s.Template.Type()

	switch target.Position {
	case render.PositionBefore, render.PositionAfter:
		if target.Parent == nil || target.Parent.Type().Kind != ast.KindDynamic ||
			!target.Parent.Type().Accepts("", typ) {
			return ast.InsertionEdit{}, false
		}
		edit.Kind = ast.EditBefore
		if target.Position == render.PositionAfter {
			edit.Kind = ast.EditAfter
		}
	default:
		if target.Expr != nil && target.Expr.Type().Kind == ast.KindDynamic {
			if !target.Expr.Type().Accepts("", typ) {
				return ast.InsertionEdit{}, false
			}
			edit.Kind = ast.EditAppend
			break
		}
		if target.Parent == nil || !target.Parent.Type().Accepts(target.Path.Last(), typ) {
			return ast.InsertionEdit{}, false
		}
		edit.Kind = ast.EditReplace
	}
	return edit, true
}

func (s *TemplateSnippet) identifiersResolve(target *render.ResolvedTarget) bool {
	if len(s.FreeIdentifiers) == 0 {
		return true
	}
	if target.Scopes == nil {
		return false
	}
	for _, name := range s.FreeIdentifiers {
		if _, err := target.Scopes.Resolve(target.Scope, name); err != nil {
			return false
		}
	}
	return true
}
