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
	"fmt"
)

// ScopeID indexes a Scope within its ScopeTable.
type ScopeID int

// NoScope is the parent of a root scope.
const NoScope ScopeID = -1

// Declaration is one name bound in a scope.
type Declaration struct {
	Name string
	Expr *Expression
	Path Path
}

// Scope is a set of declarations plus a lookup-only link to the enclosing
// scope. The link is an index into the owning table, never a pointer.
type Scope struct {
	ID     ScopeID
	Parent ScopeID

	// Owner is the expression that introduced the scope. Nil for scopes
	// created directly on a table.
	Owner *Expression
	Path  Path

	decls map[string]Declaration
	names []string
}

// Names returns the declared names in declaration order.
func (s *Scope) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// ScopeTable stores the scopes of one document.
//
// Thread Safety: a table built by BuildScopes is read-only and safe for
// concurrent use. Tables being assembled with NewScope/Declare are not.
type ScopeTable struct {
	scopes []*Scope
	byExpr map[*Expression]ScopeID
}

// NewScopeTable creates an empty table.
func NewScopeTable() *ScopeTable {
	return &ScopeTable{byExpr: make(map[*Expression]ScopeID)}
}

// Len returns the number of scopes.
func (t *ScopeTable) Len() int {
	return len(t.scopes)
}

// Scope returns the scope with the given ID.
func (t *ScopeTable) Scope(id ScopeID) (*Scope, error) {
	if id < 0 || int(id) >= len(t.scopes) {
		return nil, fmt.Errorf("scope %d: %w", id, ErrUnknownScope)
	}
	return t.scopes[id], nil
}

// NewScope adds a scope whose parent is parent (NoScope for a root).
//
// Outputs:
//
//	ScopeID - The new scope's ID.
//	error - ErrUnknownScope if parent is not in the table.
func (t *ScopeTable) NewScope(parent ScopeID, owner *Expression, path Path) (ScopeID, error) {
	if parent != NoScope {
		if _, err := t.Scope(parent); err != nil {
			return NoScope, err
		}
	}
	id := ScopeID(len(t.scopes))
	t.scopes = append(t.scopes, &Scope{
		ID:     id,
		Parent: parent,
		Owner:  owner,
		Path:   path.Clone(),
		decls:  make(map[string]Declaration),
	})
	if owner != nil {
		t.byExpr[owner] = id
	}
	return id, nil
}

// SetParent re-links a scope to a new parent.
//
// Description:
//
//	Walks the chain upwards from parent. If id is found on the way, the
//	new link would make id its own ancestor and the call fails without
//	changing the table.
//
// Outputs:
//
//	error - ErrScopeCycle or ErrUnknownScope.
func (t *ScopeTable) SetParent(id, parent ScopeID) error {
	s, err := t.Scope(id)
	if err != nil {
		return err
	}
	for cur := parent; cur != NoScope; {
		if cur == id {
			return fmt.Errorf("scope %d under %d: %w", id, parent, ErrScopeCycle)
		}
		anc, err := t.Scope(cur)
		if err != nil {
			return err
		}
		cur = anc.Parent
	}
	s.Parent = parent
	return nil
}

// Declare binds name in scope id. A later declaration of the same name in
// the same scope shadows the earlier one.
func (t *ScopeTable) Declare(id ScopeID, decl Declaration) error {
	s, err := t.Scope(id)
	if err != nil {
		return err
	}
	if _, exists := s.decls[decl.Name]; !exists {
		s.names = append(s.names, decl.Name)
	}
	s.decls[decl.Name] = decl
	return nil
}

// Resolve finds the nearest declaration of name, searching id and then its
// ancestors outward.
//
// Outputs:
//
//	Declaration - The nearest declaration.
//	error - ErrNotFound when no enclosing scope declares name.
func (t *ScopeTable) Resolve(id ScopeID, name string) (Declaration, error) {
	for cur := id; cur != NoScope; {
		s, err := t.Scope(cur)
		if err != nil {
			return Declaration{}, err
		}
		if d, ok := s.decls[name]; ok {
			return d, nil
		}
		cur = s.Parent
	}
	return Declaration{}, fmt.Errorf("%q: %w", name, ErrNotFound)
}

// ScopeOf returns the scope introduced by expr.
func (t *ScopeTable) ScopeOf(expr *Expression) (ScopeID, bool) {
	id, ok := t.byExpr[expr]
	return id, ok
}

// BuildScopes derives the scope table of a tree.
//
// Description:
//
//	The root always gets scope 0. Every expression whose type sets
//	IntroducesScope opens a child scope of the nearest enclosing one, and
//	every type with a DeclaresSlot binds the Value of that slot's leaf in
//	the enclosing scope. Scopes are numbered in render order, so parents
//	always have lower IDs than their children.
func BuildScopes(root *Expression) *ScopeTable {
	t := NewScopeTable()
	rootID, _ := t.NewScope(NoScope, root, Path{})
	t.build(root, Path{}, rootID, true)
	return t
}

func (t *ScopeTable) build(e *Expression, path Path, scope ScopeID, isRoot bool) {
	if !isRoot && e.typ.IntroducesScope {
		scope, _ = t.NewScope(scope, e, path)
	}
	if slot := e.typ.DeclaresSlot; slot != "" {
		if name := e.children[slot]; name != nil && name.value != "" {
			_ = t.Declare(t.enclosing(scope, e), Declaration{Name: name.value, Expr: e, Path: path.Clone()})
		}
	}
	for _, name := range e.slots {
		if child := e.children[name]; child != nil {
			t.build(child, path.Child(name), scope, false)
		}
	}
}

// enclosing returns the scope a declaration made by e belongs to. A node
// that both opens a scope and declares (a named function) binds its name in
// the outer scope.
func (t *ScopeTable) enclosing(scope ScopeID, e *Expression) ScopeID {
	s := t.scopes[scope]
	if s.Owner == e && s.Parent != NoScope {
		return s.Parent
	}
	return scope
}
