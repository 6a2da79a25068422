// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for document edits.
var (
	tracer = otel.Tracer("codewords.ast")
	meter  = otel.Meter("codewords.ast")
)

// Metrics for edit operations.
var (
	editLatency metric.Float64Histogram
	editTotal   metric.Int64Counter
	editDepth   metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		editLatency, err = meter.Float64Histogram(
			"codewords_edit_duration_seconds",
			metric.WithDescription("Duration of document insertion edits"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		editTotal, err = meter.Int64Counter(
			"codewords_edit_total",
			metric.WithDescription("Total number of insertion edits"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		editDepth, err = meter.Int64Histogram(
			"codewords_edit_path_depth",
			metric.WithDescription("Number of nodes cloned per edit"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordEditMetrics records one insertion edit.
func recordEditMetrics(ctx context.Context, kind EditKind, depth int, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("kind", kind.String()),
		attribute.Bool("success", success),
	)
	editLatency.Record(ctx, duration.Seconds(), attrs)
	editTotal.Add(ctx, 1, attrs)
	if success {
		editDepth.Record(ctx, int64(depth+1), metric.WithAttributes(attribute.String("kind", kind.String())))
	}
}

// startEditSpan starts a span for ApplyInsertion.
func startEditSpan(ctx context.Context, doc *Document, edit InsertionEdit) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ast.ApplyInsertion",
		trace.WithAttributes(
			attribute.String("document.id", doc.id),
			attribute.String("edit.kind", edit.Kind.String()),
			attribute.String("edit.path", edit.Path.String()),
			attribute.Int("edit.expressions", len(edit.Expressions)),
		),
	)
}

func setEditSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "edit failed")
}
