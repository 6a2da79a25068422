// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("codewords.store")

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codewords_store_dispatch_total",
		Help: "Dispatched actions by type and outcome",
	}, []string{"action", "outcome"})

	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codewords_store_dispatch_duration_seconds",
		Help:    "Duration of a dispatch including reduction",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"action"})

	historyErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codewords_store_history_errors_total",
		Help: "Committed documents that could not be recorded in history",
	})

	clickTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codewords_store_clicks_total",
		Help: "Clicks routed to handlers by outcome",
	}, []string{"outcome"})
)

// Outcome label values.
const (
	outcomeChanged   = "changed"
	outcomeUnchanged = "unchanged"
	outcomeError     = "error"
	outcomeRejected  = "rejected"
)

func recordDispatch(actionType, outcome string, d time.Duration) {
	dispatchTotal.WithLabelValues(actionType, outcome).Inc()
	dispatchDuration.WithLabelValues(actionType).Observe(d.Seconds())
}
