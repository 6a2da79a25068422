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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScopeTable_ResolveWalksOutward verifies the nearest declaration wins
// and missing names report ErrNotFound.
func TestScopeTable_ResolveWalksOutward(t *testing.T) {
	table := NewScopeTable()
	outer, err := table.NewScope(NoScope, nil, nil)
	require.NoError(t, err)
	inner, err := table.NewScope(outer, nil, nil)
	require.NoError(t, err)

	require.NoError(t, table.Declare(outer, Declaration{Name: "x", Path: Path{"outer"}}))
	require.NoError(t, table.Declare(outer, Declaration{Name: "y"}))
	require.NoError(t, table.Declare(inner, Declaration{Name: "x", Path: Path{"inner"}}))

	got, err := table.Resolve(inner, "x")
	require.NoError(t, err)
	assert.Equal(t, Path{"inner"}, got.Path)

	got, err = table.Resolve(outer, "x")
	require.NoError(t, err)
	assert.Equal(t, Path{"outer"}, got.Path)

	_, err = table.Resolve(inner, "y")
	assert.NoError(t, err)

	_, err = table.Resolve(inner, "z")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestScopeTable_SetParentRejectsCycles verifies a scope cannot adopt one of
// its descendants (or itself) as parent.
func TestScopeTable_SetParentRejectsCycles(t *testing.T) {
	table := NewScopeTable()
	a, _ := table.NewScope(NoScope, nil, nil)
	b, _ := table.NewScope(a, nil, nil)
	c, _ := table.NewScope(b, nil, nil)

	assert.ErrorIs(t, table.SetParent(a, c), ErrScopeCycle)
	assert.ErrorIs(t, table.SetParent(a, a), ErrScopeCycle)

	s, err := table.Scope(a)
	require.NoError(t, err)
	assert.Equal(t, NoScope, s.Parent, "failed link must not change the table")

	require.NoError(t, table.SetParent(c, a))
	_, err = table.NewScope(ScopeID(42), nil, nil)
	assert.ErrorIs(t, err, ErrUnknownScope)
}

// TestBuildScopes_FromDocument verifies scopes and declarations derived from
// a tree, and that an edited document gets a fresh table.
func TestBuildScopes_FromDocument(t *testing.T) {
	tl := newTestLang(t)
	inner := tl.blockWith(tl.letExpr("y", "2"))
	doc := mustDoc(t, tl.blockWith(tl.letExpr("x", "1"), inner))

	scopes := doc.Scopes()
	assert.Equal(t, 2, scopes.Len())

	innerID, ok := scopes.ScopeOf(inner)
	require.True(t, ok)
	_, err := scopes.Resolve(innerID, "x")
	assert.NoError(t, err, "outer declaration visible from inner scope")
	_, err = scopes.Resolve(0, "y")
	assert.ErrorIs(t, err, ErrNotFound, "inner declaration invisible from outer scope")

	innerSlot := doc.Root().Child("body").SlotAt(1)
	assert.Equal(t, innerID, doc.ScopeAt(Path{"body", innerSlot, "body"}))
	assert.Equal(t, ScopeID(0), doc.ScopeAt(Path{"body"}))

	next, err := ApplyInsertion(context.Background(), doc, InsertionEdit{
		Kind: EditAppend, Path: Path{"body", innerSlot, "body"},
		Expressions: []*Expression{tl.letExpr("z", "3")},
	})
	require.NoError(t, err)
	nextScopes := next.Scopes()
	assert.NotSame(t, scopes, nextScopes)
	_, err = nextScopes.Resolve(next.ScopeAt(Path{"body", innerSlot, "body"}), "z")
	assert.NoError(t, err)
	_, err = scopes.Resolve(innerID, "z")
	assert.ErrorIs(t, err, ErrNotFound, "previous table is unchanged")
}
