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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/render"
	"github.com/AleutianAI/codewords/services/editor/snippet"
)

func TestLanguage_Types(t *testing.T) {
	l := Language()
	assert.Equal(t, LanguageName, l.Name())
	assert.Len(t, l.Types(), 8)

	let, ok := l.Type(TypeLet)
	require.True(t, ok)
	assert.Equal(t, "name", let.DeclaresSlot)
	assert.True(t, programType.IntroducesScope)
}

func TestNewDocument_Scopes(t *testing.T) {
	doc, err := NewDocument(
		NewLet("x", Num("1")),
		NewBlock(NewLet("y", Ident("x"))),
	)
	require.NoError(t, err)

	scopes := doc.Scopes()
	require.Equal(t, 2, scopes.Len())
	_, err = scopes.Resolve(0, "x")
	assert.NoError(t, err)
	_, err = scopes.Resolve(1, "x")
	assert.NoError(t, err, "inner scope sees outer names")
	_, err = scopes.Resolve(0, "y")
	assert.ErrorIs(t, err, ast.ErrNotFound)
}

func TestBuilder_EmptyProgram(t *testing.T) {
	doc, err := NewDocument()
	require.NoError(t, err)

	_, lines, err := render.RenderDocument(doc, NewBuilder())
	require.NoError(t, err)
	require.Len(t, lines, 1)

	line := lines[0]
	assert.Equal(t, TagEmpty, line.Meta.Tag)
	assert.Equal(t, "...", line.Text(""))
	require.NotNil(t, line.BeforeLineTarget)
	assert.Equal(t, render.PositionReplace, line.BeforeLineTarget.Position)
	assert.Same(t, doc.Root(), line.BeforeLineTarget.Expr)
	assert.Nil(t, line.BeforeLineTarget.Parent)
}

func TestBuilder_EmptyBlockBody(t *testing.T) {
	doc, err := NewDocument(NewBlock())
	require.NoError(t, err)

	_, lines, err := render.RenderDocument(doc, NewBuilder())
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, []string{TagOpen, TagEmpty, TagClose},
		[]string{lines[0].Meta.Tag, lines[1].Meta.Tag, lines[2].Meta.Tag})

	empty := lines[1]
	assert.Equal(t, 1, empty.Meta.Indent)
	assert.Equal(t, ast.ScopeID(1), empty.Scope())
	require.NotNil(t, empty.BeforeLineTarget)
	assert.Equal(t, "body", empty.BeforeLineTarget.Path.Last())
	assert.Equal(t, TypeStatements, empty.BeforeLineTarget.Expr.Type().Name)
}

func TestBuilder_EmptySlotsAreTargets(t *testing.T) {
	doc, err := NewDocument(NewCall(nil, Num("1")))
	require.NoError(t, err)

	_, lines, err := render.RenderDocument(doc, NewBuilder())
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "_(1)", lines[0].Text(""))

	require.Len(t, lines[0].InlineTargets, 2)
	callee := lines[0].InlineTargets[0]
	assert.Nil(t, callee.Expr)
	assert.Equal(t, TypeCall, callee.Parent.Type().Name)
}

func TestBuilder_RejectsForeignLanguage(t *testing.T) {
	other, err := ast.NewLanguage("other", &ast.ExpressionType{Name: "Leaf", Kind: ast.KindLeaf})
	require.NoError(t, err)
	leaf, err := other.NewExpression("Leaf")
	require.NoError(t, err)
	doc, err := ast.NewDocument(leaf)
	require.NoError(t, err)

	_, _, err = render.RenderDocument(doc, NewBuilder())
	assert.ErrorIs(t, err, ast.ErrLanguageMismatch)
}

func TestDisplaySpan_HasNoTargets(t *testing.T) {
	s := DisplaySpan(NewBlock(NewLet("a", Num("1")), Ident("a")))
	assert.Equal(t, "{ let a = 1; a }", s.Text())
	s.Walk(func(span *render.Span, _ int) bool {
		assert.Nil(t, span.DropTarget)
		return true
	})
}

func TestFreeIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		expr *ast.Expression
		want []string
	}{
		{"nil", nil, nil},
		{"number", Num("1"), nil},
		{"identifier", Ident("x"), []string{"x"}},
		{"call", NewCall(Ident("f"), Ident("x")), []string{"f", "x"}},
		{"dedup", NewCall(Ident("x"), Ident("x")), []string{"x"}},
		{"declared inside", NewBlock(NewLet("x", Num("1")), Ident("x"), Ident("y")), []string{"y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FreeIdentifiers(tt.expr))
		})
	}
}

func TestDefaultCatalog_Search(t *testing.T) {
	doc, err := NewDocument(NewLet("x", Num("1")))
	require.NoError(t, err)
	cat := DefaultCatalog()
	assert.Equal(t, 4, cat.Len())

	all := cat.Suggest(context.Background(), snippet.Context{Document: doc})
	require.Len(t, all, 4)
	assert.Equal(t, "let", all[0].Snippet.ID())
	assert.InDelta(t, snippet.ScoreBrowse+0.5, all[0].Score, 1e-9)

	exact := cat.Suggest(context.Background(), snippet.Context{Document: doc, SearchText: "Block"})
	require.Len(t, exact, 1)
	assert.Equal(t, "block", exact[0].Snippet.ID())
	assert.InDelta(t, snippet.ScoreExact, exact[0].Score, 1e-9)
	assert.Equal(t, map[string]float64{"block": snippet.ScoreExact}, exact[0].Sources)

	prefix := cat.Suggest(context.Background(), snippet.Context{Document: doc, SearchText: "dec"})
	require.Len(t, prefix, 1)
	assert.InDelta(t, snippet.ScorePrefix+0.5, prefix[0].Score, 1e-9)

	none := cat.Suggest(context.Background(), snippet.Context{Document: doc, SearchText: "zzz"})
	assert.Empty(t, none)

	s, ok := cat.Lookup("call")
	require.True(t, ok)
	assert.Equal(t, "_(_)", s.DisplaySpans()[0].Text())
}

func TestNames_SuggestsDeclaredNames(t *testing.T) {
	doc, err := NewDocument(NewLet("alpha", Num("1")), NewBlock(NewLet("beta", Num("2"))))
	require.NoError(t, err)

	got := Names{}.Suggest(context.Background(), snippet.Context{Document: doc})
	require.Len(t, got, 2)
	assert.Equal(t, "ident:alpha", got[0].Snippet.ID())
	assert.Equal(t, "ident:beta", got[1].Snippet.ID())

	filtered := Names{}.Suggest(context.Background(), snippet.Context{Document: doc, SearchText: "be"})
	require.Len(t, filtered, 1)
	assert.InDelta(t, snippet.ScorePrefix, filtered[0].Score, 1e-9)

	assert.Nil(t, Names{}.Suggest(context.Background(), snippet.Context{}))
}
