// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history keeps numbered revisions of documents.
//
// Every document committed by the store becomes a revision. Revisions of one
// document are numbered from 1 without gaps; undo truncates the tail and
// reloads the new latest revision.
//
// Two implementations exist:
//
//	MemoryStore - bounded ring per document, lost on restart
//	BadgerStore - BadgerDB backed, survives restarts
package history

import (
	"context"
	"errors"
	"time"

	"github.com/AleutianAI/codewords/services/editor/ast"
)

var (
	// ErrNotFound is returned when a document or revision is not stored.
	ErrNotFound = errors.New("revision not found")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("history store closed")

	// ErrNilDocument is returned by Append for a nil document.
	ErrNilDocument = errors.New("nil document")
)

// Revision is one stored version of a document.
type Revision struct {
	DocumentID string
	Number     uint64
	Document   *ast.Document
	CreatedAt  time.Time
}

// Store keeps the revisions of documents.
//
// Thread Safety: implementations are safe for concurrent use.
type Store interface {
	// Append stores doc as the next revision of doc.ID().
	Append(ctx context.Context, doc *ast.Document) (Revision, error)

	// Latest returns the newest revision, or ErrNotFound.
	Latest(ctx context.Context, docID string) (Revision, error)

	// Get returns revision number, or ErrNotFound.
	Get(ctx context.Context, docID string, number uint64) (Revision, error)

	// List returns the stored revisions, oldest first. Revisions evicted
	// by a retention limit are not listed.
	List(ctx context.Context, docID string) ([]Revision, error)

	// Truncate deletes every revision numbered above keep. The next Append
	// is numbered one above the newest remaining revision.
	Truncate(ctx context.Context, docID string, keep uint64) error

	Close() error
}
