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
	"strings"
)

// Match scores for a search term against a keyword.
const (
	ScoreExact     = 3.0
	ScorePrefix    = 2.0
	ScoreSubstring = 1.0

	// ScoreBrowse is given to every entry when the search text is empty.
	ScoreBrowse = 1.0
)

// CatalogEntry is one searchable snippet.
type CatalogEntry struct {
	Snippet  Snippet
	Keywords []string

	// Boost is added to any non-zero match score.
	Boost float64
}

// Catalog is a SuggestFn that matches the search text against keywords.
//
// Entries are emitted in the order they were added.
type Catalog struct {
	entries []CatalogEntry
}

// NewCatalog creates a catalog.
func NewCatalog(entries ...CatalogEntry) *Catalog {
	return &Catalog{entries: entries}
}

// Add appends entries.
func (c *Catalog) Add(entries ...CatalogEntry) {
	c.entries = append(c.entries, entries...)
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Lookup finds an entry by snippet ID.
func (c *Catalog) Lookup(id string) (Snippet, bool) {
	for _, e := range c.entries {
		if e.Snippet.ID() == id {
			return e.Snippet, true
		}
	}
	return nil, false
}

// Suggest implements SuggestFn.
//
// Each entry scores the best match of the lower-cased search text over its
// keywords: ScoreExact, ScorePrefix or ScoreSubstring. Entries without a
// match are skipped.
func (c *Catalog) Suggest(_ context.Context, sc Context) []ScoredSnippet {
	term := strings.ToLower(strings.TrimSpace(sc.SearchText))
	var out []ScoredSnippet
	for _, e := range c.entries {
		if e.Snippet == nil {
			continue
		}
		if term == "" {
			out = append(out, ScoredSnippet{
				Snippet: e.Snippet,
				Score:   ScoreBrowse + e.Boost,
				Sources: map[string]float64{"": ScoreBrowse},
			})
			continue
		}
		best, keyword := 0.0, ""
		for _, kw := range e.Keywords {
			if score := matchScore(term, strings.ToLower(kw)); score > best {
				best, keyword = score, kw
			}
		}
		if best == 0 {
			continue
		}
		out = append(out, ScoredSnippet{
			Snippet: e.Snippet,
			Score:   best + e.Boost,
			Sources: map[string]float64{keyword: best},
		})
	}
	return out
}

func matchScore(term, keyword string) float64 {
	switch {
	case keyword == term:
		return ScoreExact
	case strings.HasPrefix(keyword, term):
		return ScorePrefix
	case strings.Contains(keyword, term):
		return ScoreSubstring
	default:
		return 0
	}
}
