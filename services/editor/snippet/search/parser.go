// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search turns palette search text into snippets by parsing it.
//
// A Parser reads the search text from a start index and returns
// PendingParses: partial or complete readings, each scored, each possibly
// able to continue when more text is typed. A Suggester wraps a set of
// parsers as a snippet.SuggestFn and keeps the pending parses of the last
// query, so that typing one more character resumes instead of starting over.
//
// Parsers may hand a substring to the other parsers with Context.Delegate,
// which is how a call parser reads its argument:
//
//	"f(4"  ──▶ call parser reads "f("
//	              └─▶ Delegate(start=2) ──▶ number parser reads "4"
//	                                           └─▶ ContinueFunc builds f(4)
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/render"
	"github.com/AleutianAI/codewords/services/editor/snippet"
)

var (
	// ErrInconsistentPrev is returned when a previous parse does not match
	// the start index or the text it is asked to continue.
	ErrInconsistentPrev = errors.New("previous parse does not match the search text")

	// ErrNoDelegation is returned by Context.Delegate on a context that was
	// not created by a Suggester.
	ErrNoDelegation = errors.New("context cannot delegate")

	// ErrForeignParse is returned when a parser is handed a PendingParse
	// whose State it did not create.
	ErrForeignParse = errors.New("pending parse belongs to another parser")
)

// Parser reads search text into PendingParses.
//
// AttemptParse must be deterministic, and must give the same results with
// or without prev: prev only saves re-reading characters already seen. A
// prev is only ever a parse this parser returned for a prefix of the
// current text at the same start index.
type Parser interface {
	// Name identifies the parser in traces and logs.
	Name() string

	AttemptParse(ctx context.Context, sc *Context, start int, prev *PendingParse) ([]*PendingParse, error)
}

// PendingParse is one reading of the search text from Start to End.
type PendingParse struct {
	// Parser created the parse and is the only one that may continue it.
	Parser Parser

	// Input is the search text the parse was made against.
	Input string
	Start int
	End   int

	// Score grows with the strength of the match.
	Score float64

	// MayContinue reports that more characters could extend the parse.
	MayContinue bool

	// Expr is the value the parse stands for, if any. Parent parsers
	// receive it through delegation.
	Expr *ast.Expression

	// Snippet is set on parses that can be offered in a palette.
	Snippet snippet.Snippet

	// State is private to Parser.
	State any
}

// Matched returns the part of Input the parse covers.
func (p *PendingParse) Matched() string {
	return p.Input[p.Start:p.End]
}

// Constraint narrows a delegated parse.
type Constraint struct {
	// Lines and Scopes replace the parent's when non-nil.
	Lines  []*render.RenderedLine
	Scopes []ast.ScopeID

	// AllowType rejects delegated parses whose expression type it refuses.
	AllowType func(*ast.ExpressionType) bool
}

// ContinueFunc receives a completed delegated parse and returns the parent
// parser's parses built on top of it. start is the index the delegation
// began at.
type ContinueFunc func(ctx context.Context, sc *Context, start int, part *PendingParse) ([]*PendingParse, error)

type delegateFunc func(ctx context.Context, c *Constraint, start int, then ContinueFunc) ([]*PendingParse, error)

// Context is what a Parser sees.
type Context struct {
	Document *ast.Document
	Lines    []*render.RenderedLine

	// Scopes are the distinct scopes of Lines, in line order.
	Scopes []ast.ScopeID

	SearchText string

	// AllowType, when set, lets a parser give up early on a type the
	// caller will refuse anyway.
	AllowType func(*ast.ExpressionType) bool

	delegate delegateFunc
}

// Allows reports whether parses of type t can be used here.
func (sc *Context) Allows(t *ast.ExpressionType) bool {
	return sc.AllowType == nil || sc.AllowType(t)
}

// Delegate asks every other parser to read SearchText from start. then is
// called once per delegated parse that carries an expression (and passes
// c.AllowType); its results are returned together with the delegated
// parses that may still continue. The caller returns the whole lot from
// AttemptParse.
//
// A parser is never delegated to at the same start index it is already
// parsing from, which keeps delegation finite.
func (sc *Context) Delegate(ctx context.Context, c *Constraint, start int, then ContinueFunc) ([]*PendingParse, error) {
	if sc.delegate == nil {
		return nil, ErrNoDelegation
	}
	return sc.delegate(ctx, c, start, then)
}

// with returns a copy of sc narrowed by c.
func (sc *Context) with(c *Constraint) *Context {
	out := *sc
	if c == nil {
		return &out
	}
	if c.Lines != nil {
		out.Lines = c.Lines
	}
	if c.Scopes != nil {
		out.Scopes = c.Scopes
	}
	if c.AllowType != nil {
		out.AllowType = c.AllowType
	}
	return &out
}

// ValidatePrev checks that prev may be continued from start over the text
// of sc. It returns false when there is no prev.
func ValidatePrev(sc *Context, start int, prev *PendingParse) (bool, error) {
	if prev == nil {
		return false, nil
	}
	if prev.Start != start {
		return false, fmt.Errorf("%w: start %d, previous start %d", ErrInconsistentPrev, start, prev.Start)
	}
	if prev.End < prev.Start || prev.End > len(sc.SearchText) || prev.End > len(prev.Input) ||
		prev.Input[prev.Start:prev.End] != sc.SearchText[start:prev.End] {
		return false, fmt.Errorf("%w: [%d,%d) differs", ErrInconsistentPrev, prev.Start, prev.End)
	}
	return true, nil
}

// distinctScopes returns the scopes of lines without repeats, in order.
func distinctScopes(lines []*render.RenderedLine) []ast.ScopeID {
	seen := make(map[ast.ScopeID]struct{})
	var out []ast.ScopeID
	for _, id := range render.ScopesForLines(lines) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
