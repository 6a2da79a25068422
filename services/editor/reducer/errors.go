// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reducer

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/codewords/services/editor/action"
)

var (
	// ErrNoDocument is wrapped by NoDocumentError.
	ErrNoDocument = errors.New("no document")

	// ErrDuplicateHandler is wrapped by DuplicateHandlerError.
	ErrDuplicateHandler = errors.New("duplicate click handler")
)

// NoDocumentError is returned when an action needs a document and none is
// loaded.
type NoDocumentError struct {
	Action action.Type
}

func (e *NoDocumentError) Error() string {
	return fmt.Sprintf("%s: no document loaded", e.Action)
}

func (e *NoDocumentError) Unwrap() error {
	return ErrNoDocument
}

// DuplicateHandlerError is returned when a name is registered with a second,
// different click handler.
type DuplicateHandlerError struct {
	Name string
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("click handler %q already registered with a different handler", e.Name)
}

func (e *DuplicateHandlerError) Unwrap() error {
	return ErrDuplicateHandler
}

// IsNoDocument checks if an error is or wraps a NoDocumentError.
func IsNoDocument(err error) bool {
	var e *NoDocumentError
	return errors.As(err, &e)
}

// IsDuplicateHandler checks if an error is or wraps a DuplicateHandlerError.
func IsDuplicateHandler(err error) bool {
	var e *DuplicateHandlerError
	return errors.As(err, &e)
}
