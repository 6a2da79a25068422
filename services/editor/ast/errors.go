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
	"errors"
	"fmt"
)

// Sentinel errors for document model failures.
//
// These errors can be checked using errors.Is() to determine the
// category of failure without inspecting error messages.
var (
	// ErrFrozen indicates a mutation was attempted on a frozen Expression.
	//
	// Frozen Expressions are deeply immutable. Use ShallowClone to obtain
	// an editable copy.
	ErrFrozen = errors.New("expression is frozen")

	// ErrUnknownSlot indicates a slot name that the Expression does not have.
	ErrUnknownSlot = errors.New("unknown slot")

	// ErrInvalidSlotName indicates a slot name that does not match
	// the allowed alphabet ([0-9A-Za-z_]+).
	ErrInvalidSlotName = errors.New("invalid slot name")

	// ErrNotDynamic indicates a list operation (splice, append) on an
	// Expression whose type does not have dynamic slots.
	ErrNotDynamic = errors.New("expression does not have dynamic slots")

	// ErrIndexOutOfRange indicates a splice or child index outside the
	// current slot list.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrUnfilledSlot indicates a validating freeze found an empty slot.
	ErrUnfilledSlot = errors.New("slot is not filled")

	// ErrLanguageMismatch indicates an Expression from one language was
	// combined with a document or parent from another.
	ErrLanguageMismatch = errors.New("language mismatch")

	// ErrInvalidType indicates an ExpressionType definition is malformed.
	//
	// Common causes:
	//   - Empty type name
	//   - A fixed type without slots
	//   - Duplicate slot names
	ErrInvalidType = errors.New("invalid expression type")

	// ErrUnknownType indicates a type name that the language does not define.
	ErrUnknownType = errors.New("unknown expression type")

	// ErrUnknownLanguage indicates a language name missing from a Registry.
	ErrUnknownLanguage = errors.New("unknown language")

	// ErrScopeCycle indicates a scope parent link that would make a scope
	// its own ancestor.
	ErrScopeCycle = errors.New("scope parent cycle")

	// ErrUnknownScope indicates a ScopeID that is not in the table.
	ErrUnknownScope = errors.New("unknown scope")

	// ErrNotFound indicates a name that no enclosing scope declares.
	ErrNotFound = errors.New("name not found")

	// ErrNilDocument indicates a nil Document or root was supplied.
	ErrNilDocument = errors.New("document is nil")
)

// InvalidPathError reports a slot path that does not resolve.
//
// A path is resolved one segment at a time from the root. Depth is the index
// of the first segment that could not be found, so Path[:Depth] resolved
// successfully.
//
// This is always a programming error on the caller's side.
type InvalidPathError struct {
	// Path is the full path that was requested.
	Path Path

	// Depth is the index of the failing segment within Path.
	Depth int
}

// Error returns a formatted error message naming the failing segment.
func (e *InvalidPathError) Error() string {
	if e.Depth < 0 || e.Depth >= len(e.Path) {
		return fmt.Sprintf("invalid path %s", e.Path)
	}
	return fmt.Sprintf("invalid path %s: no slot %q at depth %d", e.Path, e.Path[e.Depth], e.Depth)
}

// EditError reports a structurally illegal edit.
//
// The document the edit was applied to is unchanged. Cause, when set, is
// the lower level failure (an InvalidPathError, ErrNotDynamic, ...), so
// errors.Is and errors.As see through an EditError.
type EditError struct {
	// Kind is the kind of insertion that failed.
	Kind EditKind

	// Path is the target path of the insertion.
	Path Path

	// Reason describes the failure in human-readable form.
	Reason string

	// Cause is the underlying error. May be nil.
	Cause error
}

// Error returns "edit <kind> at <path>: <reason>[: <cause>]".
func (e *EditError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("edit %s at %s: %s: %v", e.Kind, e.Path, e.Reason, e.Cause)
	}
	return fmt.Sprintf("edit %s at %s: %s", e.Kind, e.Path, e.Reason)
}

// Unwrap returns the underlying cause error.
func (e *EditError) Unwrap() error {
	return e.Cause
}

func newEditError(edit InsertionEdit, reason string, cause error) *EditError {
	return &EditError{
		Kind:   edit.Kind,
		Path:   edit.Path.Clone(),
		Reason: reason,
		Cause:  cause,
	}
}

// IsInvalidPath checks if an error is or wraps an InvalidPathError.
func IsInvalidPath(err error) bool {
	var pathErr *InvalidPathError
	return errors.As(err, &pathErr)
}

// IsEditError checks if an error is or wraps an EditError.
func IsEditError(err error) bool {
	var editErr *EditError
	return errors.As(err, &editErr)
}
