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
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("codewords.snippet")

var (
	calculateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codewords_snippet_calculations_total",
		Help: "Total snippet calculations",
	})

	calculateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codewords_snippet_calculation_duration_seconds",
		Help:    "Duration of snippet calculations",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	snippetsCounted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codewords_snippets_total",
		Help: "Snippets seen by the engine, by outcome",
	}, []string{"outcome"})
)

// recordCalculate records one Calculate call.
func recordCalculate(candidates, kept, dropped int, d time.Duration) {
	calculateTotal.Inc()
	calculateDuration.Observe(d.Seconds())
	snippetsCounted.WithLabelValues("candidate").Add(float64(candidates))
	snippetsCounted.WithLabelValues("kept").Add(float64(kept))
	snippetsCounted.WithLabelValues("no_targets").Add(float64(dropped))
}

func startCalculateSpan(ctx context.Context, sc Context) (context.Context, trace.Span) {
	return tracer.Start(ctx, "snippet.Calculate",
		trace.WithAttributes(
			attribute.String("document.id", sc.Document.ID()),
			attribute.Int("suggest_fns", len(sc.SuggestFns)),
			attribute.Int("lines", len(sc.RenderedLines)),
		),
	)
}

func setCalculateSpanResult(span trace.Span, candidates, kept int) {
	span.SetAttributes(
		attribute.Int("snippets.candidates", candidates),
		attribute.Int("snippets.kept", kept),
	)
}
