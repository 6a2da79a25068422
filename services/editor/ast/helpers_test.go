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
	"testing"

	"github.com/stretchr/testify/require"
)

// testLang is a minimal language: a Block holds a body list of statements,
// Let declares a name, Identifier and Number are leaves.
type testLang struct {
	lang       *Language
	block      *ExpressionType
	stmts      *ExpressionType
	let        *ExpressionType
	name       *ExpressionType
	identifier *ExpressionType
	number     *ExpressionType
}

func newTestLang(t *testing.T) *testLang {
	t.Helper()
	tl := &testLang{
		block: &ExpressionType{
			Name:            "Block",
			Kind:            KindFixed,
			Category:        "statement",
			Slots:           []SlotSpec{{Name: "body", Accepts: []string{"statements"}}},
			IntroducesScope: true,
		},
		stmts: &ExpressionType{
			Name:         "Statements",
			Kind:         KindDynamic,
			Category:     "statements",
			ChildAccepts: []string{"statement", "expression"},
		},
		let: &ExpressionType{
			Name:     "Let",
			Kind:     KindFixed,
			Category: "statement",
			Slots: []SlotSpec{
				{Name: "name", Accepts: []string{"name"}},
				{Name: "value", Accepts: []string{"expression"}},
			},
			DeclaresSlot: "name",
		},
		name:       &ExpressionType{Name: "Name", Kind: KindLeaf, Category: "name"},
		identifier: &ExpressionType{Name: "Identifier", Kind: KindLeaf, Category: "expression"},
		number:     &ExpressionType{Name: "Number", Kind: KindLeaf, Category: "expression"},
	}
	lang, err := NewLanguage("test", tl.block, tl.stmts, tl.let, tl.name, tl.identifier, tl.number)
	require.NoError(t, err)
	tl.lang = lang
	return tl
}

// emptyBlock builds Block(body: Statements[]).
func (tl *testLang) emptyBlock() *Expression {
	b := tl.block.New()
	if err := b.AssignSlot("body", tl.stmts.New()); err != nil {
		panic(err)
	}
	return b
}

// letExpr builds Let(name: <name>, value: Number(<value>)).
func (tl *testLang) letExpr(name, value string) *Expression {
	l := tl.let.New()
	if err := l.AssignSlot("name", tl.name.NewLeaf(name)); err != nil {
		panic(err)
	}
	if err := l.AssignSlot("value", tl.number.NewLeaf(value)); err != nil {
		panic(err)
	}
	return l
}

// blockWith builds a Block whose body holds stmts.
func (tl *testLang) blockWith(stmts ...*Expression) *Expression {
	b := tl.emptyBlock()
	if err := b.Child("body").Append(stmts...); err != nil {
		panic(err)
	}
	return b
}

func mustDoc(t *testing.T, root *Expression) *Document {
	t.Helper()
	doc, err := NewDocument(root)
	require.NoError(t, err)
	return doc
}
