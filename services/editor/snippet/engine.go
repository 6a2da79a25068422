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
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/render"
)

// DefaultMaxSnippets caps the ranked output.
const DefaultMaxSnippets = 10

// EngineConfig configures an Engine.
type EngineConfig struct {
	// MaxSnippets truncates the ranked output. Zero means no limit.
	MaxSnippets int `json:"max_snippets" yaml:"max_snippets" validate:"min=0,max=1000"`

	// Parallel evaluates suggest functions concurrently. Output order is
	// unaffected.
	Parallel bool `json:"parallel" yaml:"parallel"`

	// MaxConcurrency bounds parallel evaluation. Zero means one goroutine
	// per suggest function.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency" validate:"min=0"`
}

// DefaultEngineConfig returns sequential evaluation with the default cap.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{MaxSnippets: DefaultMaxSnippets}
}

// Engine ranks snippets and computes their drop targets.
//
// Thread Safety: safe for concurrent use; it holds no mutable state.
type Engine struct {
	config EngineConfig
	logger *slog.Logger
}

// NewEngine creates an engine.
func NewEngine(config EngineConfig) *Engine {
	return &Engine{
		config: config,
		logger: slog.Default().With(slog.String("component", "snippet_engine")),
	}
}

// Calculate runs every suggest function and returns the ranked snippets
// that can be dropped somewhere in the document.
//
// Description:
//
//	Returns nothing when there is no document, no suggest function or no
//	rendered line. Otherwise the results of all suggest functions are
//	concatenated in registration order, each function's results in
//	emission order, and stably sorted by descending score, so equal
//	scores keep that order. Each snippet then gets its drop targets;
//	snippets without any are discarded. Finally the list is truncated to
//	MaxSnippets.
//
// Inputs:
//
//	ctx - Passed to suggest functions.
//	sc - Document, rendered lines, search text, suggest functions.
//
// Outputs:
//
//	[]ScoredSnippetWithTargets - Ranked snippets, best first.
func (e *Engine) Calculate(ctx context.Context, sc Context) []ScoredSnippetWithTargets {
	if sc.Document == nil || len(sc.SuggestFns) == 0 || len(sc.RenderedLines) == 0 {
		return nil
	}
	start := time.Now()
	ctx, span := startCalculateSpan(ctx, sc)
	defer span.End()

	candidates := e.suggest(ctx, sc)
	slices.SortStableFunc(candidates, func(a, b ScoredSnippet) int {
		return cmp.Compare(b.Score, a.Score)
	})

	out := make([]ScoredSnippetWithTargets, 0, len(candidates))
	dropped := 0
	for _, c := range candidates {
		if e.config.MaxSnippets > 0 && len(out) == e.config.MaxSnippets {
			break
		}
		withTargets := e.WithTargets(sc, c)
		if len(withTargets.Targets) == 0 {
			dropped++
			continue
		}
		out = append(out, withTargets)
	}

	recordCalculate(len(candidates), len(out), dropped, time.Since(start))
	setCalculateSpanResult(span, len(candidates), len(out))
	e.logger.Debug("snippets calculated",
		slog.Int("candidates", len(candidates)),
		slog.Int("kept", len(out)),
		slog.Int("dropped", dropped),
		slog.String("search", sc.SearchText))
	return out
}

// Predefined returns the snippets of a fixed palette with their targets
// recomputed against sc. The palette order is kept and no SuggestFn is
// called. Entries that fit nowhere are dropped. A nil list yields nil.
func (e *Engine) Predefined(sc Context, list *PredefinedList) []ScoredSnippetWithTargets {
	if list == nil {
		return nil
	}
	out := make([]ScoredSnippetWithTargets, 0, len(list.Snippets))
	if sc.Document == nil || len(sc.RenderedLines) == 0 {
		return out
	}
	for _, s := range list.Snippets {
		if s.Snippet == nil {
			continue
		}
		withTargets := e.WithTargets(sc, s.ScoredSnippet)
		if len(withTargets.Targets) > 0 {
			out = append(out, withTargets)
		}
	}
	return out
}

// suggest collects candidates in registration order, then emission order.
func (e *Engine) suggest(ctx context.Context, sc Context) []ScoredSnippet {
	results := make([][]ScoredSnippet, len(sc.SuggestFns))
	if e.config.Parallel && len(sc.SuggestFns) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		if e.config.MaxConcurrency > 0 {
			g.SetLimit(e.config.MaxConcurrency)
		}
		for i, fn := range sc.SuggestFns {
			g.Go(func() error {
				results[i] = fn.Suggest(gctx, sc)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, fn := range sc.SuggestFns {
			results[i] = fn.Suggest(ctx, sc)
		}
	}

	var all []ScoredSnippet
	for _, r := range results {
		for _, s := range r {
			if s.Snippet == nil {
				continue
			}
			all = append(all, s)
		}
	}
	return all
}

// WithTargets tests s against every drop target of the rendered lines.
//
// Description:
//
//	For each target, in line order, asks the snippet for an edit, then
//	lets the target's mutator adjust it. A target is valid when both
//	accept and the final priority is positive.
func (e *Engine) WithTargets(sc Context, s ScoredSnippet) ScoredSnippetWithTargets {
	out := ScoredSnippetWithTargets{
		ScoredSnippet: s,
		Edits:         make(map[string]ast.InsertionEdit),
	}
	for _, line := range sc.RenderedLines {
		for _, target := range line.DropTargets {
			edit, ok := buildEdit(s.Snippet, target)
			if !ok {
				continue
			}
			out.Targets = append(out.Targets, target)
			out.Edits[target.ID] = edit
		}
	}
	return out
}

func buildEdit(s Snippet, target *render.ResolvedTarget) (ast.InsertionEdit, bool) {
	edit, ok := s.BuildInsertionEdit(target)
	if !ok {
		return ast.InsertionEdit{}, false
	}
	if target.Mutate != nil {
		if edit, ok = target.Mutate(edit, target); !ok {
			return ast.InsertionEdit{}, false
		}
	}
	return edit, edit.Priority > 0
}
