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
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codewords/services/editor/ast"
)

func init() {
	// Set Gin to test mode to reduce noise
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(t *testing.T, mutate ...func(*Config)) (*gin.Engine, *Service) {
	t.Helper()
	svc := newTestService(t, mutate...)
	router := gin.New()
	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(svc))
	return router, svc
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
	case string:
		r = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func putLetDocument(t *testing.T, router http.Handler) StateView {
	t.Helper()
	data, err := ast.MarshalDocument(letDocument(t))
	require.NoError(t, err)
	w := do(t, router, http.MethodPut, "/v1/editor/document", data)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[StateView](t, w)
}

func TestHandlers_HandleHealth(t *testing.T) {
	router, _ := setupTestRouter(t)
	w := do(t, router, http.MethodGet, "/v1/editor/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, ServiceVersion, resp.Version)
}

func TestHandlers_RequestIDEchoed(t *testing.T) {
	router, _ := setupTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/editor/snippets", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestHandlers_DocumentLifecycle(t *testing.T) {
	router, svc := setupTestRouter(t)

	w := do(t, router, http.MethodGet, "/v1/editor/document", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_DOCUMENT", decode[ErrorResponse](t, w).Code)

	view := putLetDocument(t, router)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "let x = 1", view.Lines[0].Text)
	assert.NotEmpty(t, view.Lines[0].Targets)
	assert.NotEmpty(t, view.Snippets)
	assert.Equal(t, svc.State().Document.ID(), view.DocumentID)

	w = do(t, router, http.MethodGet, "/v1/editor/document", nil)
	require.Equal(t, http.StatusOK, w.Code)
	wire := decode[ast.DocumentWire](t, w)
	assert.Equal(t, view.DocumentID, wire.ID)
	assert.Equal(t, "blocks", wire.Language)

	w = do(t, router, http.MethodDelete, "/v1/editor/document", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, svc.State().Document)
}

func TestHandlers_PutDocumentInvalid(t *testing.T) {
	router, _ := setupTestRouter(t)
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"no root", `{"id":"d","language":"blocks"}`},
		{"unknown language", `{"id":"d","language":"lisp","root":{"type":"Program"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPut, "/v1/editor/document", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "INVALID_DOCUMENT", decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestHandlers_HandleAction(t *testing.T) {
	router, svc := setupTestRouter(t)
	gen := svc.State().Generation

	w := do(t, router, http.MethodPost, "/v1/editor/actions", `{"type":"SET_SNIPPET_PALETTE_CONTENTS","search_text":"let","predefined":null}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ActionResponse](t, w)
	assert.Equal(t, "SET_SNIPPET_PALETTE_CONTENTS", resp.Type)
	assert.Greater(t, resp.Generation, gen)
	assert.Equal(t, "let", svc.State().SearchText)

	// Unknown types are accepted and change nothing.
	before := svc.State()
	w = do(t, router, http.MethodPost, "/v1/editor/actions", `{"type":"FUTURE_ACTION","x":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FUTURE_ACTION", decode[ActionResponse](t, w).Type)
	assert.Same(t, before, svc.State())
}

func TestHandlers_HandleActionErrors(t *testing.T) {
	router, svc := setupTestRouter(t)
	edit := `{"type":"APPLY_EDIT","edit":{"kind":"REPLACE","path":["x"],"expressions":[{"type":"Number","value":"2"}],"priority":1}}`

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed", "{", http.StatusBadRequest, "INVALID_ACTION"},
		{"missing type", `{}`, http.StatusBadRequest, "INVALID_ACTION"},
		{"code-only action", `{"type":"ADD_EXPR_CLICK_HANDLERS"}`, http.StatusBadRequest, "INVALID_ACTION"},
		{"unknown palette snippet", `{"type":"SET_SNIPPET_PALETTE_CONTENTS","predefined":["nope"]}`, http.StatusBadRequest, "INVALID_ACTION"},
		{"edit without document", edit, http.StatusConflict, "NO_DOCUMENT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := svc.State()
			w := do(t, router, http.MethodPost, "/v1/editor/actions", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, w).Code)
			assert.Same(t, before, svc.State(), "a failed action leaves the state intact")
		})
	}

	putLetDocument(t, router)
	before := svc.State()
	w := do(t, router, http.MethodPost, "/v1/editor/actions", edit)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Same(t, before, svc.State())
}

func TestHandlers_SnippetsDropUndoHistory(t *testing.T) {
	router, _ := setupTestRouter(t)
	putLetDocument(t, router)

	w := do(t, router, http.MethodGet, "/v1/editor/snippets?q=number", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snippets := decode[SnippetsResponse](t, w)
	assert.Equal(t, "number", snippets.Query)
	require.NotEmpty(t, snippets.Snippets)
	first := snippets.Snippets[0]
	assert.Equal(t, "number", first.ID)
	assert.Equal(t, "0", first.Display)

	var targetID string
	for _, tg := range first.Targets {
		if tg.Kind == "INLINE" && tg.Path[len(tg.Path)-1] == "value" {
			targetID = tg.ID
		}
		assert.Positive(t, tg.Priority)
	}
	require.NotEmpty(t, targetID)

	w = do(t, router, http.MethodPost, "/v1/editor/drop", DropRequest{Query: "number", SnippetID: "number", TargetID: targetID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[DropResponse](t, w).Applied)

	state := decode[StateView](t, do(t, router, http.MethodGet, "/v1/editor/state", nil))
	assert.Equal(t, "let x = 0", state.Lines[0].Text)
	assert.Empty(t, state.Dragging)

	w = do(t, router, http.MethodGet, "/v1/editor/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode[HistoryResponse](t, w)
	assert.Equal(t, state.DocumentID, hist.DocumentID)
	require.Len(t, hist.Revisions, 2)
	assert.Equal(t, []string{"let x = 1"}, hist.Revisions[0].Text)
	assert.Equal(t, uint64(2), hist.Revisions[1].Number)

	w = do(t, router, http.MethodPost, "/v1/editor/undo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[UndoResponse](t, w).Undone)
	state = decode[StateView](t, do(t, router, http.MethodGet, "/v1/editor/state", nil))
	assert.Equal(t, "let x = 1", state.Lines[0].Text)
}

func TestHandlers_DropErrors(t *testing.T) {
	router, _ := setupTestRouter(t)
	putLetDocument(t, router)

	w := do(t, router, http.MethodPost, "/v1/editor/drop", `{"snippet_id":"number"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/v1/editor/drop", DropRequest{SnippetID: "ghost", TargetID: "cwdt1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[ErrorResponse](t, w).Code)
}

func TestHandlers_HandleClick(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := do(t, router, http.MethodPost, "/v1/editor/click", ClickRequest{Line: 0, Column: 1})
	assert.Equal(t, http.StatusConflict, w.Code, "no document")

	putLetDocument(t, router)
	w = do(t, router, http.MethodPost, "/v1/editor/click", ClickRequest{Line: 0, Column: 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ClickResponse](t, w)
	assert.True(t, resp.Handled)
	require.NotNil(t, resp.Selection)
	assert.Equal(t, "Name", resp.Selection.Type)

	w = do(t, router, http.MethodPost, "/v1/editor/click", ClickRequest{Line: 3, Column: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_LINE", decode[ErrorResponse](t, w).Code)

	w = do(t, router, http.MethodPost, "/v1/editor/click", `{"line":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlers_HistoryDisabled(t *testing.T) {
	router, _ := setupTestRouter(t, func(c *Config) { c.History.Backend = HistoryNone })
	putLetDocument(t, router)

	w := do(t, router, http.MethodGet, "/v1/editor/history", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	w = do(t, router, http.MethodPost, "/v1/editor/undo", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestNewRouter_ServesMetrics(t *testing.T) {
	svc := newTestService(t)
	router := NewRouter(svc)

	w := do(t, router, http.MethodGet, "/v1/editor/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
