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
	"slices"
	"strings"
)

// State is the mutability tag carried by every Expression.
type State uint8

const (
	// StateDraft expressions accept slot assignment on themselves.
	StateDraft State = iota

	// StateFrozen expressions and all their descendants are immutable.
	StateFrozen
)

// String returns "draft" or "frozen".
func (s State) String() string {
	if s == StateFrozen {
		return "frozen"
	}
	return "draft"
}

// Expression is one node of a document tree.
//
// Description:
//
//	An Expression holds its type, an ordered list of slot names and the
//	child stored in each slot. Slot names are fixed by the type for
//	KindFixed and generated for KindDynamic. Leaf expressions carry a
//	Value instead of children.
//
//	A draft Expression permits assignment to its own slots only. Freezing
//	is deep: Freeze freezes every current child first, then the node.
//
// Thread Safety:
//
//	Frozen expressions are safe for concurrent reads. Drafts are not.
type Expression struct {
	typ      *ExpressionType
	value    string
	slots    []string
	children map[string]*Expression
	state    State
}

// Type returns the expression's type.
func (e *Expression) Type() *ExpressionType {
	return e.typ
}

// Language returns the language of the expression's type.
func (e *Expression) Language() *Language {
	return e.typ.language
}

// Value returns the leaf value. Non-leaf expressions return "".
func (e *Expression) Value() string {
	return e.value
}

// State returns the mutability tag.
func (e *Expression) State() State {
	return e.state
}

// Frozen reports whether the expression is frozen.
func (e *Expression) Frozen() bool {
	return e.state == StateFrozen
}

// SlotNames returns the slot names in render order.
func (e *Expression) SlotNames() []string {
	return slices.Clone(e.slots)
}

// HasSlot reports whether the expression has a slot with the given name.
func (e *Expression) HasSlot(name string) bool {
	if e.typ.Kind == KindFixed {
		_, ok := e.typ.slotSpec(name)
		return ok
	}
	_, ok := e.children[name]
	return ok
}

// Child returns the expression in the named slot, or nil if the slot is
// empty or unknown.
func (e *Expression) Child(name string) *Expression {
	return e.children[name]
}

// Descendant resolves path[start:end] relative to e.
//
// Inputs:
//
//	path - Slot names from e downwards.
//	start, end - Sub-range of path to resolve. Use 0, len(path) for all.
//
// Outputs:
//
//	*Expression - The resolved node. e itself for an empty range.
//	error - *InvalidPathError naming the first missing segment.
func (e *Expression) Descendant(path Path, start, end int) (*Expression, error) {
	if start < 0 || end > len(path) || start > end {
		return nil, &InvalidPathError{Path: path.Clone(), Depth: start}
	}
	cur := e
	for i := start; i < end; i++ {
		next := cur.children[path[i]]
		if next == nil {
			return nil, &InvalidPathError{Path: path.Clone(), Depth: i}
		}
		cur = next
	}
	return cur, nil
}

// Lookup resolves the whole path relative to e.
func (e *Expression) Lookup(path Path) (*Expression, error) {
	return e.Descendant(path, 0, len(path))
}

// AssignSlot stores child in the named slot.
//
// Fixed slots may be cleared with a nil child. Dynamic slots must already
// exist (use Splice or Append to add them) and cannot hold nil.
//
// Outputs:
//
//	error - ErrFrozen, ErrUnknownSlot, or ErrLanguageMismatch.
func (e *Expression) AssignSlot(name string, child *Expression) error {
	if e.state == StateFrozen {
		return fmt.Errorf("assign %s.%s: %w", e.typ.Name, name, ErrFrozen)
	}
	if !e.HasSlot(name) {
		return fmt.Errorf("assign %s.%s: %w", e.typ.Name, name, ErrUnknownSlot)
	}
	if child == nil {
		if e.typ.Kind == KindDynamic {
			return fmt.Errorf("assign %s.%s: nil child in dynamic slot: %w", e.typ.Name, name, ErrUnfilledSlot)
		}
		delete(e.children, name)
		return nil
	}
	if child.typ.language != e.typ.language {
		return fmt.Errorf("assign %s.%s: %w", e.typ.Name, name, ErrLanguageMismatch)
	}
	e.children[name] = child
	return nil
}

// ShallowClone returns a new draft Expression with the same type, value and
// slot contents. Children are shared, not copied. The result is a draft
// whatever the state of e.
func (e *Expression) ShallowClone() *Expression {
	c := &Expression{
		typ:   e.typ,
		value: e.value,
		slots: slices.Clone(e.slots),
		state: StateDraft,
	}
	if e.children != nil {
		c.children = make(map[string]*Expression, len(e.children))
		for k, v := range e.children {
			c.children[k] = v
		}
	}
	return c
}

// DeepClone returns a draft copy of the whole subtree. Slot names are kept.
func (e *Expression) DeepClone() *Expression {
	c := e.ShallowClone()
	for k, v := range c.children {
		c.children[k] = v.DeepClone()
	}
	return c
}

// FreezeOptions controls Freeze.
type FreezeOptions struct {
	// Validate requires every slot to be filled before freezing.
	Validate bool
}

// Freeze makes e and its whole subtree immutable.
//
// Description:
//
//	Children are frozen first, in render order, then e. Already frozen
//	nodes are skipped, so freezing a freshly cloned path over a frozen tree
//	only visits the clones. Calling Freeze twice is a no-op.
//
//	With Validate set, an empty fixed slot fails the whole freeze before
//	any node is marked, so a failed freeze leaves the subtree in draft.
//
// Outputs:
//
//	error - ErrUnfilledSlot when Validate finds an empty slot.
func (e *Expression) Freeze(opts FreezeOptions) error {
	if e.state == StateFrozen {
		return nil
	}
	if opts.Validate {
		if err := e.validateFilled(); err != nil {
			return err
		}
	}
	e.freeze()
	return nil
}

func (e *Expression) validateFilled() error {
	if e.state == StateFrozen {
		return nil
	}
	for _, name := range e.slots {
		child := e.children[name]
		if child == nil {
			return fmt.Errorf("%s.%s: %w", e.typ.Name, name, ErrUnfilledSlot)
		}
		if err := child.validateFilled(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Expression) freeze() {
	if e.state == StateFrozen {
		return
	}
	for _, name := range e.slots {
		if child := e.children[name]; child != nil {
			child.freeze()
		}
	}
	e.state = StateFrozen
}

// Walk visits e and its descendants depth-first in render order. Returning
// false from fn skips the node's children.
func (e *Expression) Walk(fn func(path Path, expr *Expression) bool) {
	e.walk(Path{}, fn)
}

func (e *Expression) walk(path Path, fn func(Path, *Expression) bool) {
	if !fn(path, e) {
		return
	}
	for _, name := range e.slots {
		if child := e.children[name]; child != nil {
			child.walk(path.Child(name), fn)
		}
	}
}

// String renders a compact debug form such as Let(name: x, value: 1).
func (e *Expression) String() string {
	var b strings.Builder
	e.writeString(&b)
	return b.String()
}

func (e *Expression) writeString(b *strings.Builder) {
	switch e.typ.Kind {
	case KindLeaf:
		fmt.Fprintf(b, "%s(%q)", e.typ.Name, e.value)
	case KindFixed:
		b.WriteString(e.typ.Name)
		b.WriteByte('(')
		for i, name := range e.slots {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(name)
			b.WriteString(": ")
			if child := e.children[name]; child != nil {
				child.writeString(b)
			} else {
				b.WriteByte('_')
			}
		}
		b.WriteByte(')')
	default:
		b.WriteString(e.typ.Name)
		b.WriteByte('[')
		for i, name := range e.slots {
			if i > 0 {
				b.WriteString(", ")
			}
			e.children[name].writeString(b)
		}
		b.WriteByte(']')
	}
}

// Equal reports whether two subtrees have the same types, values and
// children. Slot names of dynamic expressions are not compared, only the
// order of their children.
func Equal(a, b *Expression) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.typ != b.typ || a.value != b.value || len(a.slots) != len(b.slots) {
		return false
	}
	for i := range a.slots {
		var ca, cb *Expression
		if a.typ.Kind == KindFixed {
			ca, cb = a.children[a.slots[i]], b.children[a.slots[i]]
		} else {
			ca, cb = a.children[a.slots[i]], b.children[b.slots[i]]
		}
		if !Equal(ca, cb) {
			return false
		}
	}
	return true
}
