// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package editor

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/codewords/services/editor/action"
	"github.com/AleutianAI/codewords/services/editor/ast"
	"github.com/AleutianAI/codewords/services/editor/drag"
	"github.com/AleutianAI/codewords/services/editor/history"
	"github.com/AleutianAI/codewords/services/editor/reducer"
	"github.com/AleutianAI/codewords/services/editor/store"
)

// Handlers serves the editor HTTP API.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for svc.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleHealth handles GET /v1/editor/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleGetState handles GET /v1/editor/state.
//
// Response:
//
//	200 OK: StateView
func (h *Handlers) HandleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, NewStateView(h.svc.State(), h.svc.Selection()))
}

// HandleGetDocument handles GET /v1/editor/document.
//
// Response:
//
//	200 OK: ast.DocumentWire
//	404 Not Found: no document loaded
func (h *Handlers) HandleGetDocument(c *gin.Context) {
	doc := h.svc.State().Document
	if doc == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no document loaded", Code: "NO_DOCUMENT"})
		return
	}
	c.JSON(http.StatusOK, ast.DocumentToWire(doc))
}

// HandlePutDocument handles PUT /v1/editor/document.
//
// Description:
//
//	Replaces the document with the body, an ast.DocumentWire. The
//	document keeps the ID in the body, or gets a new one.
//
// Response:
//
//	200 OK: StateView
//	400 Bad Request: malformed document
func (h *Handlers) HandlePutDocument(c *gin.Context) {
	logger := requestLogger(c, "HandlePutDocument")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	doc, err := ast.UnmarshalDocument(body, h.svc.Registry())
	if err != nil {
		logger.Warn("Invalid document", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_DOCUMENT"})
		return
	}
	if err := h.svc.Load(c.Request.Context(), doc); err != nil {
		writeError(c, logger, err)
		return
	}
	logger.Info("Document loaded", "document_id", doc.ID())
	c.JSON(http.StatusOK, NewStateView(h.svc.State(), h.svc.Selection()))
}

// HandleDeleteDocument handles DELETE /v1/editor/document, unloading it.
func (h *Handlers) HandleDeleteDocument(c *gin.Context) {
	logger := requestLogger(c, "HandleDeleteDocument")
	if err := h.svc.Load(c.Request.Context(), nil); err != nil {
		writeError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleAction handles POST /v1/editor/actions.
//
// Description:
//
//	Decodes one wire action (see action.Envelope) and dispatches it.
//	Unknown action types are accepted and leave the state unchanged.
//
// Response:
//
//	200 OK: ActionResponse
//	400 Bad Request: undecodable action
//	409 Conflict: no document, or a duplicate click handler
//	422 Unprocessable Entity: the edit does not apply to the document
func (h *Handlers) HandleAction(c *gin.Context) {
	logger := requestLogger(c, "HandleAction")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	typ, err := h.svc.Apply(c.Request.Context(), body)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	logger.Debug("Action dispatched", "type", string(typ))
	c.JSON(http.StatusOK, ActionResponse{Type: string(typ), Generation: h.svc.State().Generation})
}

// HandleSnippets handles GET /v1/editor/snippets?q=.
//
// Response:
//
//	200 OK: SnippetsResponse
func (h *Handlers) HandleSnippets(c *gin.Context) {
	logger := requestLogger(c, "HandleSnippets")
	query := c.Query("q")
	snippets, err := h.svc.Suggestions(c.Request.Context(), query)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, SnippetsResponse{Query: query, Snippets: NewSnippetViews(snippets)})
}

// HandleDrop handles POST /v1/editor/drop.
//
// Response:
//
//	200 OK: DropResponse
//	400 Bad Request: missing IDs
//	404 Not Found: unknown snippet or target
func (h *Handlers) HandleDrop(c *gin.Context) {
	logger := requestLogger(c, "HandleDrop")

	var req DropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	applied, err := h.svc.Drop(c.Request.Context(), req.Query, req.SnippetID, req.TargetID)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, DropResponse{Applied: applied, Generation: h.svc.State().Generation})
}

// HandleClick handles POST /v1/editor/click.
func (h *Handlers) HandleClick(c *gin.Context) {
	logger := requestLogger(c, "HandleClick")

	var req ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	handled, err := h.svc.Click(c.Request.Context(), req.Line, req.Column)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, ClickResponse{Handled: handled, Selection: h.svc.Selection()})
}

// HandleUndo handles POST /v1/editor/undo.
func (h *Handlers) HandleUndo(c *gin.Context) {
	logger := requestLogger(c, "HandleUndo")
	undone, err := h.svc.Undo(c.Request.Context())
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, UndoResponse{Undone: undone, Generation: h.svc.State().Generation})
}

// HandleHistory handles GET /v1/editor/history.
//
// Response:
//
//	200 OK: HistoryResponse
//	409 Conflict: no document loaded
//	501 Not Implemented: history disabled
func (h *Handlers) HandleHistory(c *gin.Context) {
	logger := requestLogger(c, "HandleHistory")
	revs, err := h.svc.Revisions(c.Request.Context())
	if err != nil {
		writeError(c, logger, err)
		return
	}
	resp := HistoryResponse{Revisions: newRevisionViews(revs, h.svc.DocumentLines)}
	if len(revs) > 0 {
		resp.DocumentID = revs[0].DocumentID
	} else if doc := h.svc.State().Document; doc != nil {
		resp.DocumentID = doc.ID()
	}
	c.JSON(http.StatusOK, resp)
}

// errorStatus maps service errors to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	var (
		pathErr   *ast.InvalidPathError
		editErr   *ast.EditError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case reducer.IsNoDocument(err):
		return http.StatusConflict, "NO_DOCUMENT"
	case reducer.IsDuplicateHandler(err):
		return http.StatusConflict, "DUPLICATE_HANDLER"
	case errors.As(err, &editErr):
		return http.StatusUnprocessableEntity, "INVALID_EDIT"
	case errors.As(err, &pathErr):
		return http.StatusUnprocessableEntity, "INVALID_PATH"
	case errors.Is(err, ErrUnknownSnippet), errors.Is(err, drag.ErrUnknownTarget):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, drag.ErrDragInProgress):
		return http.StatusConflict, "DRAG_IN_PROGRESS"
	case errors.Is(err, store.ErrNoLine):
		return http.StatusBadRequest, "NO_LINE"
	case errors.Is(err, store.ErrNoHistory):
		return http.StatusNotImplemented, "NO_HISTORY"
	case errors.Is(err, history.ErrClosed):
		return http.StatusServiceUnavailable, "HISTORY_CLOSED"
	case errors.Is(err, action.ErrMissingType),
		errors.Is(err, action.ErrNotWireEncodable),
		errors.Is(err, action.ErrUnknownSnippet),
		errors.Is(err, action.ErrEmptyEdit),
		errors.Is(err, ast.ErrUnknownLanguage),
		errors.Is(err, ast.ErrUnknownType),
		errors.Is(err, ast.ErrLanguageMismatch),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return http.StatusBadRequest, "INVALID_ACTION"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	} else {
		logger.Warn("Request rejected", "error", err, "code", code)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// requestLogger returns a logger tagged with the request ID.
func requestLogger(c *gin.Context, handler string) *slog.Logger {
	return slog.Default().With(
		slog.String("component", "editor_http"),
		slog.String("request_id", getOrCreateRequestID(c)),
		slog.String("handler", handler),
	)
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
