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

	"github.com/google/uuid"
)

// slotNameLength is the starting length of a generated slot name. Names grow
// by one character per collision.
const slotNameLength = 4

// Splice removes deleteCount slots starting at start and inserts children in
// their place, mirroring slice splicing.
//
// Description:
//
//	Only KindDynamic drafts support Splice. Every inserted child gets a
//	freshly generated slot name that is unique within e. The removed
//	children are returned in order.
//
// Outputs:
//
//	[]*Expression - Removed children.
//	error - ErrFrozen, ErrNotDynamic, ErrIndexOutOfRange, ErrLanguageMismatch.
func (e *Expression) Splice(start, deleteCount int, children ...*Expression) ([]*Expression, error) {
	if e.state == StateFrozen {
		return nil, fmt.Errorf("splice %s: %w", e.typ.Name, ErrFrozen)
	}
	if e.typ.Kind != KindDynamic {
		return nil, fmt.Errorf("splice %s: %w", e.typ.Name, ErrNotDynamic)
	}
	if start < 0 || start > len(e.slots) || deleteCount < 0 || start+deleteCount > len(e.slots) {
		return nil, fmt.Errorf("splice %s at %d (+%d) of %d: %w",
			e.typ.Name, start, deleteCount, len(e.slots), ErrIndexOutOfRange)
	}
	for _, c := range children {
		if c == nil {
			return nil, fmt.Errorf("splice %s: nil child: %w", e.typ.Name, ErrUnfilledSlot)
		}
		if c.typ.language != e.typ.language {
			return nil, fmt.Errorf("splice %s: %w", e.typ.Name, ErrLanguageMismatch)
		}
	}

	removed := make([]*Expression, 0, deleteCount)
	for _, name := range e.slots[start : start+deleteCount] {
		removed = append(removed, e.children[name])
		delete(e.children, name)
	}

	names := make([]string, len(children))
	for i, c := range children {
		names[i] = e.newSlotName()
		e.children[names[i]] = c
	}
	e.slots = slices.Replace(e.slots, start, start+deleteCount, names...)
	return removed, nil
}

// Append adds children at the end of a dynamic draft.
func (e *Expression) Append(children ...*Expression) error {
	_, err := e.Splice(len(e.slots), 0, children...)
	return err
}

// Children returns the children of a dynamic expression in order.
//
// For fixed expressions the children are returned in slot order with nil
// for empty slots.
func (e *Expression) Children() []*Expression {
	out := make([]*Expression, len(e.slots))
	for i, name := range e.slots {
		out[i] = e.children[name]
	}
	return out
}

// ChildAt returns the child at index i, or nil when i is out of range.
func (e *Expression) ChildAt(i int) *Expression {
	if i < 0 || i >= len(e.slots) {
		return nil
	}
	return e.children[e.slots[i]]
}

// ChildCount returns the number of slots.
func (e *Expression) ChildCount() int {
	return len(e.slots)
}

// SlotAt returns the slot name at index i, or "" when out of range.
func (e *Expression) SlotAt(i int) string {
	if i < 0 || i >= len(e.slots) {
		return ""
	}
	return e.slots[i]
}

// IndexOf returns the position of the named slot, or -1.
func (e *Expression) IndexOf(slot string) int {
	return slices.Index(e.slots, slot)
}

// newSlotName draws a name from a random UUID, lengthening it until it does
// not collide with an existing slot.
func (e *Expression) newSlotName() string {
	src := strings.ReplaceAll(uuid.NewString(), "-", "")
	for n := slotNameLength; ; n++ {
		if n > len(src) {
			src += strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		name := strings.ToUpper(src[:n])
		if _, taken := e.children[name]; !taken {
			return name
		}
	}
}
