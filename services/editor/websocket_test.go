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
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialEditor(t *testing.T, svc *Service) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewRouter(svc))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/editor/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads replies until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wsReply) bool) wsReply {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var r wsReply
		require.NoError(t, conn.ReadJSON(&r))
		if match(r) {
			return r
		}
	}
}

func event(name string) func(wsReply) bool {
	return func(r wsReply) bool { return r.Event == name }
}

func TestWebSocket_SessionAndState(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Load(context.Background(), letDocument(t)))
	conn := dialEditor(t, svc)

	var first wsReply
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, EventSessionCreated, first.Event)
	assert.NotEmpty(t, first.SessionID)

	var second wsReply
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, EventState, second.Event)
	require.NotNil(t, second.State)
	require.Len(t, second.State.Lines, 1)
	assert.Equal(t, "let x = 1", second.State.Lines[0].Text)
}

func TestWebSocket_SuggestAndDrop(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Load(context.Background(), letDocument(t)))
	conn := dialEditor(t, svc)
	readUntil(t, conn, event(EventState))

	require.NoError(t, conn.WriteJSON(wsMessage{Op: OpSuggest, Query: "number"}))
	reply := readUntil(t, conn, event(EventSnippets))
	require.NotEmpty(t, reply.Snippets)
	number := reply.Snippets[0]
	assert.Equal(t, "number", number.ID)

	var targetID string
	for _, tg := range number.Targets {
		if tg.Kind == "INLINE" && tg.Path.Last() == "value" {
			targetID = tg.ID
		}
	}
	require.NotEmpty(t, targetID)

	require.NoError(t, conn.WriteJSON(wsMessage{Op: OpDrop, Query: "number", SnippetID: "number", TargetID: targetID}))
	state := readUntil(t, conn, func(r wsReply) bool {
		return r.Event == EventState && r.State.Dragging == "" &&
			len(r.State.Lines) == 1 && r.State.Lines[0].Text == "let x = 0"
	})
	assert.Empty(t, state.State.Hovered)
}

func TestWebSocket_ActionAndClick(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Load(context.Background(), letDocument(t)))
	conn := dialEditor(t, svc)
	readUntil(t, conn, event(EventState))

	require.NoError(t, conn.WriteJSON(wsMessage{
		Op:     OpAction,
		Action: []byte(`{"type":"SET_SNIPPET_PALETTE_CONTENTS","search_text":"call"}`),
	}))
	readUntil(t, conn, func(r wsReply) bool {
		return r.Event == EventState && r.State.SearchText == "call"
	})

	require.NoError(t, conn.WriteJSON(wsMessage{Op: OpClick, Line: 0, Column: 4}))
	reply := readUntil(t, conn, event(EventClick))
	require.NotNil(t, reply.Handled)
	assert.True(t, *reply.Handled)
}

func TestWebSocket_Errors(t *testing.T) {
	svc := newTestService(t)
	conn := dialEditor(t, svc)
	readUntil(t, conn, event(EventState))

	require.NoError(t, conn.WriteJSON(wsMessage{Op: "teleport"}))
	reply := readUntil(t, conn, event(EventError))
	assert.Equal(t, "UNKNOWN_OP", reply.Error.Code)

	require.NoError(t, conn.WriteJSON(wsMessage{Op: OpClick}))
	reply = readUntil(t, conn, event(EventError))
	assert.Equal(t, "NO_DOCUMENT", reply.Error.Code)

	require.NoError(t, conn.WriteJSON(wsMessage{Op: OpAction, Action: []byte(`{"type":"SNIPPET_DRAG_UPDATE"}`)}))
	reply = readUntil(t, conn, event(EventError))
	assert.Equal(t, "INVALID_ACTION", reply.Error.Code)
}

func TestWebSocket_RateLimited(t *testing.T) {
	svc := newTestService(t, func(c *Config) {
		c.Server.ActionsPerSecond = 0.001
		c.Server.Burst = 1
	})
	conn := dialEditor(t, svc)
	readUntil(t, conn, event(EventState))

	require.NoError(t, conn.WriteJSON(wsMessage{Op: OpState}))
	readUntil(t, conn, event(EventState))

	require.NoError(t, conn.WriteJSON(wsMessage{Op: OpState}))
	reply := readUntil(t, conn, event(EventError))
	assert.Equal(t, "RATE_LIMITED", reply.Error.Code)
}
