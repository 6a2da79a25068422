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
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/codewords/services/editor/action"
	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/render"
	"github.com/AleutianAI/codewords/services/editor/snippet"
)

var tracer = otel.Tracer("codewords.reducer")

// Reducer is the root reducer.
//
// Thread Safety: Reduce is safe for concurrent use. Serializing dispatches
// is the caller's job.
type Reducer struct {
	builders map[string]render.LineBuilder
	engine   *snippet.Engine
	logger   *slog.Logger
}

// New creates a reducer.
//
// Inputs:
//
//	engine - Computes the palette. Nil uses snippet.DefaultEngineConfig.
//	builders - Line builders keyed by language name. A document whose
//	           language has no builder renders to no lines.
func New(engine *snippet.Engine, builders map[string]render.LineBuilder) *Reducer {
	if engine == nil {
		engine = snippet.NewEngine(snippet.DefaultEngineConfig())
	}
	b := make(map[string]render.LineBuilder, len(builders))
	for k, v := range builders {
		b[k] = v
	}
	return &Reducer{
		builders: b,
		engine:   engine,
		logger:   slog.Default().With(slog.String("component", "reducer")),
	}
}

// Reduce applies a to prev.
//
// Description:
//
//	Runs every slice reducer. If none reports a change, prev itself is
//	returned. Otherwise a new state is built; the rendering is refreshed
//	when the document changed, and the palette when the document, search
//	text, fixed palette or suggest functions changed. A fixed palette,
//	even an empty one, is used as is and the suggest functions are not
//	called.
//
// Inputs:
//
//	ctx - Passed to edits and suggest functions.
//	prev - Previous state. Nil means Initial().
//	a - The action.
//
// Outputs:
//
//	*EditorState - The next state, or prev when a changes nothing or fails.
//	error - *NoDocumentError, *DuplicateHandlerError, *ast.EditError or a
//	        rendering error. prev is intact on every error.
func (r *Reducer) Reduce(ctx context.Context, prev *EditorState, a action.Action) (*EditorState, error) {
	if prev == nil {
		prev = Initial()
	}
	if a == nil {
		return prev, nil
	}
	if _, ok := a.(action.Unknown); ok {
		return prev, nil
	}

	start := time.Now()
	ctx, span := tracer.Start(ctx, "reducer.Reduce",
		trace.WithAttributes(
			attribute.String("action", string(a.Type())),
			attribute.Int64("generation", int64(prev.Generation)),
		),
	)
	defer span.End()

	next, err := r.reduce(ctx, prev, a)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reduce failed")
		return prev, err
	}
	r.logger.Debug("action reduced",
		slog.String("action", string(a.Type())),
		slog.Uint64("generation", next.Generation),
		slog.Bool("changed", next != prev),
		slog.Duration("duration", time.Since(start)))
	return next, nil
}

func (r *Reducer) reduce(ctx context.Context, prev *EditorState, a action.Action) (*EditorState, error) {
	doc, docChanged, err := reduceDocument(ctx, prev.Document, a)
	if err != nil {
		return nil, err
	}
	search, searchChanged := reduceSearchText(prev.SearchText, a)
	predefined, predefinedChanged := reducePredefined(prev.Predefined, a)
	fns, fnsChanged := reduceSuggestFns(prev.SuggestFns, a)
	handlers, handlersChanged, err := reduceClickHandlers(prev.ClickHandlers, a)
	if err != nil {
		return nil, err
	}
	drag, dragChanged := reduceDrag(prev.Drag, a)

	if !docChanged && !searchChanged && !predefinedChanged && !fnsChanged && !handlersChanged && !dragChanged {
		return prev, nil
	}

	next := *prev
	next.Document = doc
	next.SearchText = search
	next.Predefined = predefined
	next.SuggestFns = fns
	next.ClickHandlers = handlers
	next.Drag = drag
	next.Generation = prev.Generation + 1

	if docChanged {
		if err := r.rerender(prev, &next); err != nil {
			return nil, err
		}
	}
	if docChanged || searchChanged || predefinedChanged || fnsChanged {
		next.Snippets = r.palette(ctx, &next)
	}
	return &next, nil
}

// rerender refreshes the rendering of next.Document, reusing prev's lines
// when the language is unchanged.
func (r *Reducer) rerender(prev, next *EditorState) error {
	next.MetaLines, next.RenderedLines = nil, nil
	if next.Document == nil {
		return nil
	}
	b := r.builders[next.Document.Language().Name()]
	if b == nil {
		r.logger.Warn("no line builder for language",
			slog.String("language", next.Document.Language().Name()))
		return nil
	}
	prevMetas, prevLines := prev.MetaLines, prev.RenderedLines
	if prev.Document == nil || prev.Document.Language() != next.Document.Language() {
		prevMetas, prevLines = nil, nil
	}
	metas, lines, err := render.RerenderDocument(next.Document, b, prevMetas, prevLines)
	if err != nil {
		return fmt.Errorf("render document %s: %w", next.Document.ID(), err)
	}
	next.MetaLines, next.RenderedLines = metas, lines
	return nil
}

func (r *Reducer) palette(ctx context.Context, s *EditorState) []snippet.ScoredSnippetWithTargets {
	sc := snippet.Context{
		Document:      s.Document,
		RenderedLines: s.RenderedLines,
		SearchText:    s.SearchText,
		SuggestFns:    s.SuggestFns,
	}
	if s.Predefined != nil {
		return r.engine.Predefined(sc, s.Predefined)
	}
	return r.engine.Calculate(ctx, sc)
}

// Builder returns the line builder for a language.
func (r *Reducer) Builder(lang *ast.Language) (render.LineBuilder, bool) {
	if lang == nil {
		return nil, false
	}
	b, ok := r.builders[lang.Name()]
	return b, ok
}
