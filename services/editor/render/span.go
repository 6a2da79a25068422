// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package render defines the intermediate render model of a document: a
// tree of spans per line, annotated with the expressions, paths, click
// handlers and drop targets they stand for.
//
// Languages produce the model through a LineBuilder. The editor core reads it
// to find drop targets and to route clicks. Drawing it is somebody else's job.
package render

import (
	"slices"
	"strings"

	"github.com/AleutianAI/codewords/services/editor/ast"
)

// Style names a token class, for example "keyword" or "identifier".
type Style string

// Common token styles.
const (
	StyleKeyword     Style = "keyword"
	StyleIdentifier  Style = "identifier"
	StyleDeclaration Style = "declaration"
	StyleNumber      Style = "number"
	StylePunctuation Style = "punctuation"
	StylePlaceholder Style = "placeholder"
)

// Part is one element of a Span: Text, Token, or a nested *Span.
type Part interface {
	isPart()
}

// Text is unstyled text.
type Text string

func (Text) isPart() {}

// Token is styled text.
type Token struct {
	Text  string
	Style Style
}

func (Token) isPart() {}

// Span groups parts that render one expression, or part of one.
type Span struct {
	// Expr is the expression the span renders. May be nil for decoration.
	Expr *ast.Expression

	// Path is the document path of Expr.
	Path ast.Path

	// ClickHandlerIDs names the click handlers active on this span.
	ClickHandlerIDs []string

	Parts []Part

	// DropTarget, when set, makes the whole span an inline drop target.
	// Drop targets may not nest.
	DropTarget *DropTarget
}

func (*Span) isPart() {}

// Text returns the concatenated plain text of the span.
func (s *Span) Text() string {
	var b strings.Builder
	s.writeText(&b)
	return b.String()
}

func (s *Span) writeText(b *strings.Builder) {
	for _, p := range s.Parts {
		switch p := p.(type) {
		case Text:
			b.WriteString(string(p))
		case Token:
			b.WriteString(p.Text)
		case *Span:
			p.writeText(b)
		}
	}
}

// Styler decorates token text. Implementations live with the presentation
// layer; style names are passed as plain strings.
type Styler interface {
	Apply(style string, text string) string
}

// Format renders the span, passing each token through st. A nil Styler
// yields plain text.
func (s *Span) Format(st Styler) string {
	if st == nil {
		return s.Text()
	}
	var b strings.Builder
	s.format(&b, st)
	return b.String()
}

func (s *Span) format(b *strings.Builder, st Styler) {
	for _, p := range s.Parts {
		switch p := p.(type) {
		case Text:
			b.WriteString(string(p))
		case Token:
			b.WriteString(st.Apply(string(p.Style), p.Text))
		case *Span:
			p.format(b, st)
		}
	}
}

// Walk visits s and every nested span depth-first. depth is 0 for s.
// Returning false skips the span's children.
func (s *Span) Walk(fn func(span *Span, depth int) bool) {
	s.walk(fn, 0)
}

func (s *Span) walk(fn func(*Span, int) bool, depth int) {
	if !fn(s, depth) {
		return
	}
	for _, p := range s.Parts {
		if child, ok := p.(*Span); ok {
			child.walk(fn, depth+1)
		}
	}
}

// ClickHandlersAt returns the click handler IDs that apply at a text column,
// innermost span first. Columns count runes from the start of the span.
func (s *Span) ClickHandlersAt(column int) []string {
	var ids []string
	for _, sp := range s.SpansAt(column) {
		ids = append(ids, sp.ClickHandlerIDs...)
	}
	return ids
}

// SpansAt returns every span covering a text column, innermost first.
func (s *Span) SpansAt(column int) []*Span {
	var stack []*Span
	s.locate(column, 0, &stack)
	slices.Reverse(stack)
	return stack
}

// SpanAt returns the innermost span covering a text column, or nil.
func (s *Span) SpanAt(column int) *Span {
	var stack []*Span
	s.locate(column, 0, &stack)
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// locate pushes every span containing column onto stack, outermost first,
// and returns the width of s.
func (s *Span) locate(column, offset int, stack *[]*Span) int {
	width := 0
	var inner []*Span
	for _, p := range s.Parts {
		switch p := p.(type) {
		case Text:
			width += len([]rune(string(p)))
		case Token:
			width += len([]rune(p.Text))
		case *Span:
			var sub []*Span
			w := p.locate(column, offset+width, &sub)
			if len(sub) > 0 {
				inner = sub
			}
			width += w
		}
	}
	if column >= offset && column < offset+width {
		*stack = append(*stack, s)
		*stack = append(*stack, inner...)
	}
	return width
}
