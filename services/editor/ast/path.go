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
	"slices"
	"strings"
)

// Path is an ordered sequence of slot names leading from a root Expression
// to one of its descendants. The empty Path denotes the root itself.
type Path []string

// String renders the path as "[a b c]".
func (p Path) String() string {
	return "[" + strings.Join(p, " ") + "]"
}

// Clone returns an independent copy of the path.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	return slices.Clone(p)
}

// Child returns a new path extended by one slot name.
//
// The receiver is never modified, so it is safe to derive many children
// from one parent path.
func (p Path) Child(slot string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = slot
	return out
}

// Parent returns the path without its last segment. The root's parent is
// the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Path{}
	}
	return p[:len(p)-1 : len(p)-1]
}

// Last returns the final slot name, or "" for the root path.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Equal reports whether two paths name the same slots.
func (p Path) Equal(other Path) bool {
	return slices.Equal(p, other)
}

// HasPrefix reports whether p starts with prefix.
func (p Path) HasPrefix(prefix Path) bool {
	return len(prefix) <= len(p) && slices.Equal(p[:len(prefix)], prefix)
}
