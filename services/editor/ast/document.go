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
	"sync"

	"github.com/google/uuid"
)

// Document is a frozen root Expression plus document metadata.
//
// Documents are values: every edit produces a new Document carrying the same
// ID. Holding on to an old Document keeps its whole tree intact.
type Document struct {
	id   string
	root *Expression

	scopesOnce sync.Once
	scopes     *ScopeTable
}

// NewDocumentID returns a fresh random document identifier.
func NewDocumentID() string {
	return uuid.NewString()
}

// NewDocument freezes root and wraps it in a Document with a new ID.
func NewDocument(root *Expression) (*Document, error) {
	return NewDocumentWithID(NewDocumentID(), root)
}

// NewDocumentWithID freezes root and wraps it in a Document with the given ID.
//
// Outputs:
//
//	*Document - The frozen document.
//	error - ErrNilDocument for a nil root.
func NewDocumentWithID(id string, root *Expression) (*Document, error) {
	if root == nil {
		return nil, ErrNilDocument
	}
	if id == "" {
		id = NewDocumentID()
	}
	if err := root.Freeze(FreezeOptions{}); err != nil {
		return nil, fmt.Errorf("freeze document root: %w", err)
	}
	return &Document{id: id, root: root}, nil
}

// ID returns the document identifier.
func (d *Document) ID() string {
	return d.id
}

// Root returns the frozen root expression.
func (d *Document) Root() *Expression {
	return d.root
}

// Language returns the language of the root expression.
func (d *Document) Language() *Language {
	return d.root.typ.language
}

// Lookup resolves a path from the root.
func (d *Document) Lookup(path Path) (*Expression, error) {
	return d.root.Lookup(path)
}

// Scopes returns the scope table of the document, built on first use.
func (d *Document) Scopes() *ScopeTable {
	d.scopesOnce.Do(func() {
		d.scopes = BuildScopes(d.root)
	})
	return d.scopes
}

// ScopeAt returns the innermost scope enclosing the expression at path.
func (d *Document) ScopeAt(path Path) ScopeID {
	scopes := d.Scopes()
	best := ScopeID(0)
	cur := d.root
	for i := 0; i <= len(path); i++ {
		if id, ok := scopes.ScopeOf(cur); ok {
			best = id
		}
		if i == len(path) {
			break
		}
		cur = cur.children[path[i]]
		if cur == nil {
			break
		}
	}
	return best
}

// ClonePath copies the nodes along path and nothing else.
//
// Description:
//
//	Clones root, then for each segment looks up the child on the current
//	clone, clones it, and stores the clone back into the parent clone's
//	slot. The originals are never touched. Every node off the path stays
//	shared with the original tree.
//
//	All returned clones are drafts. The caller must freeze them, normally
//	by freezing the first element, before they are published.
//
// Inputs:
//
//	root - The tree to copy from. Usually frozen.
//	path - Slot names from root to the deepest node to clone.
//
// Outputs:
//
//	[]*Expression - len(path)+1 clones, root first.
//	error - *InvalidPathError if a segment does not resolve.
func ClonePath(root *Expression, path Path) ([]*Expression, error) {
	clones := make([]*Expression, 0, len(path)+1)
	parent := root.ShallowClone()
	clones = append(clones, parent)
	for i, part := range path {
		child := parent.children[part]
		if child == nil {
			return nil, &InvalidPathError{Path: path.Clone(), Depth: i}
		}
		clone := child.ShallowClone()
		parent.children[part] = clone
		clones = append(clones, clone)
		parent = clone
	}
	return clones, nil
}
