// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/snippet"
)

// DefaultScoreScale converts parser scores to palette scores. A complete
// number literal (1000) lands just above an exact keyword match.
const DefaultScoreScale = 1.0 / 250

// Options configures a Suggester.
type Options struct {
	// ScoreScale multiplies parser scores. Zero means DefaultScoreScale.
	ScoreScale float64

	// TraceParses logs every AttemptParse call at debug level.
	TraceParses bool
}

// DefaultOptions returns the default scale without tracing.
func DefaultOptions() *Options {
	return &Options{ScoreScale: DefaultScoreScale}
}

const (
	modeInitial   = "initial"
	modeContinued = "continued"
	modeCached    = "cached"
)

// stackItem is one parser on a delegation stack. Parsers are identified by
// their index so that parser values need not be comparable.
type stackItem struct {
	index  int
	parser Parser
	start  int
}

// delegation is the State of a parse made by the delegator.
type delegation struct {
	stack      []stackItem
	constraint *Constraint
	then       ContinueFunc
	inner      *PendingParse
}

// rootParse is a parse of the whole search text and the root parser that
// produced it.
type rootParse struct {
	index int
	parse *PendingParse
}

// Suggester adapts a set of parsers to a snippet.SuggestFn.
//
// Description:
//
//	The trimmed search text is handed to every parser from index 0. Only
//	parses covering the whole text are kept, and those with a snippet are
//	offered. When the next query extends the previous one over the same
//	document, the kept parses that may continue are resumed instead of
//	parsing from scratch; a repeated query reuses the kept parses. Parsers
//	give the same results either way, so the output depends only on the
//	snippet.Context.
//
// Thread Safety: safe for concurrent use. Queries are serialised.
type Suggester struct {
	parsers []Parser
	options Options
	deleg   *delegator
	tracer  *Tracer
	logger  *slog.Logger

	mu       sync.Mutex
	prevText string
	prevDoc  *ast.Document
	pending  []rootParse
}

// NewSuggester wraps parsers. Parsers are tried, and their snippets
// emitted, in the order given. A nil options means DefaultOptions.
func NewSuggester(parsers []Parser, options *Options) *Suggester {
	if options == nil {
		options = DefaultOptions()
	}
	s := &Suggester{
		parsers: slices.Clone(parsers),
		options: *options,
		tracer:  &Tracer{},
		logger:  slog.Default().With(slog.String("component", "search")),
	}
	if s.options.ScoreScale == 0 {
		s.options.ScoreScale = DefaultScoreScale
	}
	s.deleg = &delegator{s: s}
	return s
}

// Tracer returns the records of the most recent parsed query.
func (s *Suggester) Tracer() *Tracer {
	return s.tracer
}

// Suggest implements snippet.SuggestFn.
func (s *Suggester) Suggest(ctx context.Context, sc snippet.Context) []snippet.ScoredSnippet {
	text := strings.TrimSpace(sc.SearchText)

	s.mu.Lock()
	defer s.mu.Unlock()

	if text == "" || sc.Document == nil || len(s.parsers) == 0 {
		s.prevText, s.prevDoc, s.pending = "", nil, nil
		return nil
	}

	ctx, span := startSuggestSpan(ctx, text, len(s.parsers))
	defer span.End()

	mode := modeInitial
	if s.prevDoc == sc.Document && s.prevText != "" {
		switch {
		case text == s.prevText:
			mode = modeCached
		case strings.HasPrefix(text, s.prevText):
			mode = modeContinued
		}
	}

	if mode != modeCached {
		base := Context{
			Document:   sc.Document,
			Lines:      sc.RenderedLines,
			Scopes:     distinctScopes(sc.RenderedLines),
			SearchText: text,
		}
		s.tracer.clear()
		if mode == modeContinued {
			s.pending = s.continueParses(ctx, base)
		} else {
			s.pending = s.initialParses(ctx, base)
		}
		s.prevText, s.prevDoc = text, sc.Document
		if s.options.TraceParses {
			s.tracer.log(s.logger)
		}
	}

	out := s.snippets()
	searchesTotal.WithLabelValues(mode).Inc()
	setSuggestSpanResult(span, mode, len(s.pending), len(out))
	return out
}

func (s *Suggester) initialParses(ctx context.Context, base Context) []rootParse {
	var out []rootParse
	for i, p := range s.parsers {
		stack := []stackItem{{index: i, parser: p, start: 0}}
		out = append(out, s.attemptRoot(ctx, base, i, p, stack, nil)...)
	}
	return out
}

func (s *Suggester) continueParses(ctx context.Context, base Context) []rootParse {
	var out []rootParse
	for _, r := range s.pending {
		if !r.parse.MayContinue {
			continue
		}
		stack := []stackItem{{index: r.index, parser: r.parse.Parser, start: r.parse.Start}}
		if d, ok := r.parse.State.(*delegation); ok {
			stack = d.stack
		}
		out = append(out, s.attemptRoot(ctx, base, r.index, r.parse.Parser, stack, r.parse)...)
	}
	return out
}

// attemptRoot runs one root-level AttemptParse and keeps the parses that
// cover the whole text. A failing parser is logged and contributes nothing.
func (s *Suggester) attemptRoot(ctx context.Context, base Context, index int, p Parser, stack []stackItem, prev *PendingParse) []rootParse {
	start := 0
	if prev != nil {
		start = prev.Start
	}
	sc := s.bind(base, stack)
	parses, err := p.AttemptParse(ctx, sc, start, prev)
	s.tracer.record(TraceRecord{
		Parser:     p.Name(),
		SearchText: base.SearchText,
		Start:      start,
		Continued:  prev != nil,
		Outputs:    len(parses),
		Err:        err,
	})
	if err != nil {
		parserErrors.WithLabelValues(p.Name()).Inc()
		s.logger.Warn("search parser failed",
			slog.String("parser", p.Name()),
			slog.String("search", base.SearchText),
			slog.String("error", err.Error()))
		return nil
	}
	var out []rootParse
	for _, parse := range parses {
		if parse != nil && parse.End == len(base.SearchText) {
			out = append(out, rootParse{index: index, parse: parse})
		}
	}
	return out
}

func (s *Suggester) snippets() []snippet.ScoredSnippet {
	var out []snippet.ScoredSnippet
	for _, r := range s.pending {
		if r.parse.Snippet == nil {
			continue
		}
		score := r.parse.Score * s.options.ScoreScale
		out = append(out, snippet.ScoredSnippet{
			Snippet: r.parse.Snippet,
			Score:   score,
			Sources: map[string]float64{r.parse.Parser.Name(): score},
		})
	}
	return out
}

// bind returns a copy of sc whose Delegate works on top of stack.
func (s *Suggester) bind(sc Context, stack []stackItem) *Context {
	out := sc
	out.delegate = func(ctx context.Context, c *Constraint, start int, then ContinueFunc) ([]*PendingParse, error) {
		return s.delegateSubParse(ctx, &out, stack, start, c, then)
	}
	return &out
}

// delegateSubParse starts a delegated parse at start for every parser not
// already parsing from start further up the stack, then runs them over
// whatever text remains.
func (s *Suggester) delegateSubParse(ctx context.Context, parent *Context, stack []stackItem, start int, c *Constraint, then ContinueFunc) ([]*PendingParse, error) {
	if start < 0 || start > len(parent.SearchText) {
		return nil, fmt.Errorf("delegate at %d of %q: %w", start, parent.SearchText, ErrInconsistentPrev)
	}
	next := then
	if c != nil && c.AllowType != nil {
		next = func(ctx context.Context, sc *Context, start int, part *PendingParse) ([]*PendingParse, error) {
			if part.Expr == nil || !c.AllowType(part.Expr.Type()) {
				return nil, nil
			}
			return then(ctx, sc, start, part)
		}
	}

	var fresh []*PendingParse
	for i, p := range s.parsers {
		if onStack(stack, i, start) {
			continue
		}
		fresh = append(fresh, &PendingParse{
			Parser:      s.deleg,
			Input:       parent.SearchText,
			Start:       start,
			End:         start,
			MayContinue: true,
			State: &delegation{
				stack:      append(slices.Clone(stack), stackItem{index: i, parser: p, start: start}),
				constraint: c,
				then:       next,
			},
		})
	}
	if start == len(parent.SearchText) {
		return fresh, nil
	}

	var out []*PendingParse
	for _, dp := range fresh {
		sc := s.bind(*parent, dp.State.(*delegation).stack)
		results, err := s.deleg.AttemptParse(ctx, sc, start, dp)
		if err != nil {
			return nil, err
		}
		out = append(out, results...)
	}
	return out, nil
}

func onStack(stack []stackItem, index, start int) bool {
	for _, item := range stack {
		if item.index == index && item.start == start {
			return true
		}
	}
	return false
}

// delegator is the Parser of delegated parses. It runs the parser on top of
// the delegation stack, hands every parse with an expression back to the
// delegating parser, and keeps the rest alive while they may continue.
type delegator struct {
	s *Suggester
}

func (d *delegator) Name() string {
	return "delegate"
}

func (d *delegator) AttemptParse(ctx context.Context, sc *Context, start int, prev *PendingParse) ([]*PendingParse, error) {
	if prev == nil {
		return nil, fmt.Errorf("delegate without a pending parse: %w", ErrForeignParse)
	}
	del, ok := prev.State.(*delegation)
	if !ok || len(del.stack) == 0 {
		return nil, fmt.Errorf("delegate state %T: %w", prev.State, ErrForeignParse)
	}
	top := del.stack[len(del.stack)-1]
	sub := sc.with(del.constraint)

	results, err := top.parser.AttemptParse(ctx, sub, top.start, del.inner)
	d.s.tracer.record(TraceRecord{
		Parser:     top.parser.Name(),
		SearchText: sc.SearchText,
		Start:      top.start,
		Continued:  del.inner != nil,
		Depth:      len(del.stack) - 1,
		Outputs:    len(results),
		Err:        err,
	})
	if err != nil {
		parserErrors.WithLabelValues(top.parser.Name()).Inc()
		return nil, fmt.Errorf("%s at %d: %w", top.parser.Name(), top.start, err)
	}

	parent := d.s.bind(*sc, del.stack[:len(del.stack)-1])
	var out []*PendingParse
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Expr != nil {
			more, err := del.then(ctx, parent, top.start, r)
			if err != nil {
				return nil, err
			}
			out = append(out, more...)
		}
		if r.MayContinue {
			out = append(out, &PendingParse{
				Parser:      d,
				Input:       sc.SearchText,
				Start:       start,
				End:         r.End,
				MayContinue: true,
				State: &delegation{
					stack:      del.stack,
					constraint: del.constraint,
					then:       del.then,
					inner:      r,
				},
			})
		}
	}
	return out, nil
}
