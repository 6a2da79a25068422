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
	"log/slog"
	"slices"
	"sync"
)

// TraceRecord is one AttemptParse call.
type TraceRecord struct {
	Parser     string
	SearchText string
	Start      int

	// Continued is true when the call resumed a previous parse.
	Continued bool

	// Depth is the number of parsers the call was delegated through. Root
	// calls have depth 0.
	Depth int

	Outputs int
	Err     error
}

// Tracer collects the AttemptParse calls of one search.
//
// Thread Safety: safe for concurrent use.
type Tracer struct {
	mu      sync.Mutex
	records []TraceRecord
}

func (t *Tracer) record(r TraceRecord) {
	t.mu.Lock()
	t.records = append(t.records, r)
	t.mu.Unlock()
}

func (t *Tracer) clear() {
	t.mu.Lock()
	t.records = nil
	t.mu.Unlock()
}

// Records returns a copy of the collected records in call order.
func (t *Tracer) Records() []TraceRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.records)
}

// log writes every record at debug level.
func (t *Tracer) log(logger *slog.Logger) {
	for _, r := range t.Records() {
		attrs := []any{
			slog.String("parser", r.Parser),
			slog.String("search", r.SearchText),
			slog.Int("start", r.Start),
			slog.Bool("continued", r.Continued),
			slog.Int("depth", r.Depth),
			slog.Int("outputs", r.Outputs),
		}
		if r.Err != nil {
			attrs = append(attrs, slog.String("error", r.Err.Error()))
		}
		logger.Debug("parse attempt", attrs...)
	}
}
