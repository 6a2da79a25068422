// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package blocks is a small statement language used by the editor service
// and its command line tool.
//
// A Program is a list of statements. A Block opens a nested scope, Let
// declares a name, Call applies one expression to another, and Identifier
// and Number are the leaves:
//
//	let x = 1
//	{
//	  let y = x
//	  print(y)
//	}
package blocks

import (
	"fmt"

	"github.com/AleutianAI/codewords/services/editor/ast"
)

// LanguageName is the registered name of the language.
const LanguageName = "blocks"

// Slot categories.
const (
	CategoryProgram    = "program"
	CategoryStatement  = "statement"
	CategoryStatements = "statements"
	CategoryExpression = "expression"
	CategoryName       = "name"
)

// Type names.
const (
	TypeProgram    = "Program"
	TypeBlock      = "Block"
	TypeStatements = "Statements"
	TypeLet        = "Let"
	TypeCall       = "Call"
	TypeName       = "Name"
	TypeIdentifier = "Identifier"
	TypeNumber     = "Number"
)

var (
	programType = &ast.ExpressionType{
		Name:            TypeProgram,
		Kind:            ast.KindDynamic,
		Category:        CategoryProgram,
		ChildAccepts:    []string{CategoryStatement, CategoryExpression},
		IntroducesScope: true,
	}
	blockType = &ast.ExpressionType{
		Name:            TypeBlock,
		Kind:            ast.KindFixed,
		Category:        CategoryStatement,
		Slots:           []ast.SlotSpec{{Name: "body", Accepts: []string{CategoryStatements}}},
		IntroducesScope: true,
	}
	statementsType = &ast.ExpressionType{
		Name:         TypeStatements,
		Kind:         ast.KindDynamic,
		Category:     CategoryStatements,
		ChildAccepts: []string{CategoryStatement, CategoryExpression},
	}
	letType = &ast.ExpressionType{
		Name:     TypeLet,
		Kind:     ast.KindFixed,
		Category: CategoryStatement,
		Slots: []ast.SlotSpec{
			{Name: "name", Accepts: []string{CategoryName}},
			{Name: "value", Accepts: []string{CategoryExpression}},
		},
		DeclaresSlot: "name",
	}
	callType = &ast.ExpressionType{
		Name:     TypeCall,
		Kind:     ast.KindFixed,
		Category: CategoryExpression,
		Slots: []ast.SlotSpec{
			{Name: "callee", Accepts: []string{CategoryExpression}},
			{Name: "arg", Accepts: []string{CategoryExpression}},
		},
	}
	nameType       = &ast.ExpressionType{Name: TypeName, Kind: ast.KindLeaf, Category: CategoryName}
	identifierType = &ast.ExpressionType{Name: TypeIdentifier, Kind: ast.KindLeaf, Category: CategoryExpression}
	numberType     = &ast.ExpressionType{Name: TypeNumber, Kind: ast.KindLeaf, Category: CategoryExpression}

	language = mustLanguage()
)

func mustLanguage() *ast.Language {
	l, err := ast.NewLanguage(LanguageName,
		programType, blockType, statementsType, letType, callType,
		nameType, identifierType, numberType)
	if err != nil {
		panic(fmt.Sprintf("blocks: %v", err))
	}
	return l
}

// Language returns the blocks language.
func Language() *ast.Language {
	return language
}

// Constructors build draft expressions. They panic only if handed an
// expression from another language.

// NewProgram builds a Program holding stmts.
func NewProgram(stmts ...*ast.Expression) *ast.Expression {
	p := programType.New()
	must(p.Append(stmts...))
	return p
}

// NewBlock builds a Block whose body holds stmts.
func NewBlock(stmts ...*ast.Expression) *ast.Expression {
	body := statementsType.New()
	must(body.Append(stmts...))
	b := blockType.New()
	must(b.AssignSlot("body", body))
	return b
}

// NewLet builds a Let binding name to value. A nil value leaves the slot
// empty.
func NewLet(name string, value *ast.Expression) *ast.Expression {
	l := letType.New()
	must(l.AssignSlot("name", nameType.NewLeaf(name)))
	must(l.AssignSlot("value", value))
	return l
}

// NewCall builds a Call. Nil arguments leave their slots empty.
func NewCall(callee, arg *ast.Expression) *ast.Expression {
	c := callType.New()
	must(c.AssignSlot("callee", callee))
	must(c.AssignSlot("arg", arg))
	return c
}

// Ident builds an Identifier.
func Ident(name string) *ast.Expression {
	return identifierType.NewLeaf(name)
}

// Num builds a Number.
func Num(value string) *ast.Expression {
	return numberType.NewLeaf(value)
}

// NewDocument builds a frozen document whose root is a Program of stmts.
func NewDocument(stmts ...*ast.Expression) (*ast.Document, error) {
	return ast.NewDocument(NewProgram(stmts...))
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("blocks: %v", err))
	}
}

// FreeIdentifiers returns the Identifier names used in e but not declared by
// a Let inside e, in first-use order.
func FreeIdentifiers(e *ast.Expression) []string {
	if e == nil {
		return nil
	}
	declared := make(map[string]struct{})
	e.Walk(func(_ ast.Path, x *ast.Expression) bool {
		if x.Type() == letType {
			if n := x.Child("name"); n != nil {
				declared[n.Value()] = struct{}{}
			}
		}
		return true
	})
	seen := make(map[string]struct{})
	var out []string
	e.Walk(func(_ ast.Path, x *ast.Expression) bool {
		if x.Type() != identifierType {
			return true
		}
		name := x.Value()
		if _, ok := declared[name]; ok {
			return true
		}
		if _, ok := seen[name]; ok {
			return true
		}
		seen[name] = struct{}{}
		out = append(out, name)
		return true
	})
	return out
}
