// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/codewords/services/editor/action"
	"github.com/AleutianAI/codewords/services/editor/history"
	"github.com/AleutianAI/codewords/services/editor/reducer"
)

// Click routes a click at (line, column) to the registered handlers.
//
// Description:
//
//	Spans covering the column are visited innermost first, and each span's
//	handler IDs in order. A handler ID with no registered handler is logged
//	and skipped. The first handler returning true consumes the click.
//	Handlers run outside the store lock and may dispatch.
//
// Inputs:
//
//	line - Index into the rendered lines.
//	column - Rune offset after the line's indentation.
//
// Outputs:
//
//	bool - True when a handler consumed the click.
//	error - ErrNoLine, or a NoDocumentError when nothing is loaded.
func (s *Store) Click(ctx context.Context, line, column int) (bool, error) {
	st := s.State()
	if st.Document == nil {
		return false, &reducer.NoDocumentError{Action: "click"}
	}
	if line < 0 || line >= len(st.RenderedLines) {
		return false, fmt.Errorf("%w: %d of %d", ErrNoLine, line, len(st.RenderedLines))
	}
	rl := st.RenderedLines[line]
	for _, span := range rl.Span.SpansAt(column) {
		for _, id := range span.ClickHandlerIDs {
			h, ok := st.ClickHandler(id)
			if !ok {
				s.logger.Warn("click handler not registered", slog.String("handler", id))
				clickTotal.WithLabelValues("missing").Inc()
				continue
			}
			ev := action.ClickEvent{
				Line:      line,
				Column:    column,
				HandlerID: id,
				Span:      span,
				Expr:      span.Expr,
				Path:      span.Path,
				Document:  st.Document,
			}
			if h.HandleClick(ctx, ev) {
				clickTotal.WithLabelValues("handled").Inc()
				return true, nil
			}
		}
	}
	clickTotal.WithLabelValues("unhandled").Inc()
	return false, nil
}

// Undo restores the previous revision of the current document.
//
// Description:
//
//	Drops the newest revision from history and loads the one before it.
//	The restored document is not recorded again.
//
// Outputs:
//
//	bool - False when there is nothing to undo.
//	error - ErrNoHistory, a NoDocumentError, or a history error.
func (s *Store) Undo(ctx context.Context) (bool, error) {
	if s.history == nil {
		return false, ErrNoHistory
	}
	doc := s.State().Document
	if doc == nil {
		return false, &reducer.NoDocumentError{Action: "undo"}
	}
	latest, err := s.history.Latest(ctx, doc.ID())
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if latest.Number <= 1 {
		return false, nil
	}
	prev, err := s.history.Get(ctx, doc.ID(), latest.Number-1)
	if err != nil {
		if isNotFound(err) {
			// Evicted by the retention limit.
			return false, nil
		}
		return false, err
	}
	if err := s.dispatch(ctx, action.NewSetDocument(prev.Document), false); err != nil {
		return false, err
	}
	if err := s.history.Truncate(ctx, doc.ID(), prev.Number); err != nil {
		return true, fmt.Errorf("truncate history of %s: %w", doc.ID(), err)
	}
	s.logger.Info("undo",
		slog.String("document", doc.ID()),
		slog.Uint64("revision", prev.Number))
	return true, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, history.ErrNotFound)
}
