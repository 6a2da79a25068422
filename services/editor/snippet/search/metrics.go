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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("codewords.search")

var (
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codewords_search_queries_total",
		Help: "Search queries parsed, by mode (initial, continued, cached)",
	}, []string{"mode"})

	parserErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codewords_search_parser_errors_total",
		Help: "AttemptParse calls that returned an error, by parser",
	}, []string{"parser"})
)

func startSuggestSpan(ctx context.Context, text string, parsers int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "search.Suggest",
		trace.WithAttributes(
			attribute.Int("search.length", len(text)),
			attribute.Int("parsers", parsers),
		),
	)
}

func setSuggestSpanResult(span trace.Span, mode string, parses, snippets int) {
	span.SetAttributes(
		attribute.String("search.mode", mode),
		attribute.Int("search.parses", parses),
		attribute.Int("search.snippets", snippets),
	)
}
