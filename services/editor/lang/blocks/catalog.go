// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package blocks

import (
	"context"
	"strings"

	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/render"
	"github.com/AleutianAI/codewords/services/editor/snippet"
)

// NewTemplate freezes template and wraps it in a snippet whose free
// identifiers are computed from the template.
func NewTemplate(name string, template *ast.Expression, kinds ...render.TargetKind) *snippet.TemplateSnippet {
	_ = template.Freeze(ast.FreezeOptions{})
	return &snippet.TemplateSnippet{
		Name:            name,
		Template:        template,
		FreeIdentifiers: FreeIdentifiers(template),
		Kinds:           kinds,
		Display:         []*render.Span{DisplaySpan(template)},
	}
}

// DefaultCatalog returns the built-in palette.
func DefaultCatalog() *snippet.Catalog {
	return snippet.NewCatalog(
		snippet.CatalogEntry{
			Snippet:  NewTemplate("let", NewLet("x", Num("0")), render.TargetFullLine),
			Keywords: []string{"let", "var", "declare"},
			Boost:    0.5,
		},
		snippet.CatalogEntry{
			Snippet:  NewTemplate("block", NewBlock(), render.TargetFullLine),
			Keywords: []string{"block", "scope", "{"},
		},
		snippet.CatalogEntry{
			Snippet:  NewTemplate("number", Num("0")),
			Keywords: []string{"number", "literal"},
		},
		snippet.CatalogEntry{
			Snippet:  NewTemplate("call", NewCall(nil, nil)),
			Keywords: []string{"call", "apply", "("},
		},
	)
}

// Names suggests an Identifier for every name declared in the document.
// Each snippet requires its name to be in scope at the drop site, so a
// name only lands where it can be resolved.
type Names struct {
	// BrowseOnly limits suggestions to an empty search text, for use next
	// to an IdentifierParser that handles typed names.
	BrowseOnly bool
}

// Suggest implements snippet.SuggestFn.
func (n Names) Suggest(_ context.Context, sc snippet.Context) []snippet.ScoredSnippet {
	if sc.Document == nil {
		return nil
	}
	term := strings.ToLower(strings.TrimSpace(sc.SearchText))
	if n.BrowseOnly && term != "" {
		return nil
	}
	scopes := sc.Document.Scopes()
	seen := make(map[string]struct{})
	var out []snippet.ScoredSnippet
	for id := 0; id < scopes.Len(); id++ {
		s, err := scopes.Scope(ast.ScopeID(id))
		if err != nil {
			continue
		}
		for _, name := range s.Names() {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			score := snippet.ScoreBrowse
			if term != "" {
				lower := strings.ToLower(name)
				switch {
				case lower == term:
					score = snippet.ScoreExact
				case strings.HasPrefix(lower, term):
					score = snippet.ScorePrefix
				default:
					continue
				}
			}
			out = append(out, snippet.ScoredSnippet{
				Snippet: NewTemplate("ident:"+name, Ident(name)),
				Score:   score,
				Sources: map[string]float64{name: score},
			})
		}
	}
	return out
}
