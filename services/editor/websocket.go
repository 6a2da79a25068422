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
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/codewords/services/editor/store"
)

// Websocket ops a client may send.
const (
	OpAction  = "action"
	OpClick   = "click"
	OpDrop    = "drop"
	OpUndo    = "undo"
	OpSuggest = "suggest"
	OpState   = "state"
)

// Events the server pushes.
const (
	EventSessionCreated = "session_created"
	EventState          = "state"
	EventSnippets       = "snippets"
	EventClick          = "click"
	EventError          = "error"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// session is one websocket client.
//
// Every state change of the store is pushed to the client. Pushes are
// coalesced: a client that falls behind receives the newest state once.
type session struct {
	id      string
	svc     *Service
	conn    *websocket.Conn
	limiter *rate.Limiter
	logger  *slog.Logger

	writeMu sync.Mutex
	changed chan struct{}
}

// HandleWebSocket handles GET /v1/editor/ws.
//
// Description:
//
//	Upgrades the connection, sends the session ID and the current state,
//	then reads wsMessage values until the client disconnects. Messages
//	beyond the configured rate are rejected with RATE_LIMITED.
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("failed to upgrade the websocket", "error", err)
		return
	}
	defer ws.Close()

	cfg := h.svc.Config().Server
	ws.SetReadLimit(cfg.MaxMessageBytes)

	s := &session{
		id:      uuid.NewString(),
		svc:     h.svc,
		conn:    ws,
		limiter: rate.NewLimiter(rate.Limit(cfg.ActionsPerSecond), cfg.Burst),
		changed: make(chan struct{}, 1),
	}
	s.logger = slog.Default().With(
		slog.String("component", "editor_ws"),
		slog.String("session_id", s.id),
	)
	s.logger.Info("websocket session started")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	subID := h.svc.Store().Subscribe(func(store.Change) {
		select {
		case s.changed <- struct{}{}:
		default:
		}
	})
	defer h.svc.Store().Unsubscribe(subID)

	if err := s.send(wsReply{Event: EventSessionCreated, SessionID: s.id}); err != nil {
		return
	}
	if err := s.sendState(); err != nil {
		return
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.pushChanges(ctx)
	}()

	s.readLoop(ctx)
	cancel()
	wg.Wait()
	s.logger.Info("websocket session ended")
}

func (s *session) readLoop(ctx context.Context) {
	for {
		var msg wsMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.logger.Info("websocket client disconnected", "error", err.Error())
			return
		}
		if !s.limiter.Allow() {
			if err := s.sendError("RATE_LIMITED", "too many messages"); err != nil {
				return
			}
			continue
		}
		if err := s.handle(ctx, msg); err != nil {
			return
		}
	}
}

// handle runs one client message. Only a failed write is returned; request
// failures are reported to the client.
func (s *session) handle(ctx context.Context, msg wsMessage) error {
	switch msg.Op {
	case OpAction:
		if _, err := s.svc.Apply(ctx, msg.Action); err != nil {
			return s.sendServiceError(err)
		}
	case OpClick:
		handled, err := s.svc.Click(ctx, msg.Line, msg.Column)
		if err != nil {
			return s.sendServiceError(err)
		}
		return s.send(wsReply{Event: EventClick, Handled: &handled})
	case OpDrop:
		if _, err := s.svc.Drop(ctx, msg.Query, msg.SnippetID, msg.TargetID); err != nil {
			return s.sendServiceError(err)
		}
	case OpUndo:
		if _, err := s.svc.Undo(ctx); err != nil {
			return s.sendServiceError(err)
		}
	case OpSuggest:
		snippets, err := s.svc.Suggestions(ctx, msg.Query)
		if err != nil {
			return s.sendServiceError(err)
		}
		return s.send(wsReply{Event: EventSnippets, Snippets: NewSnippetViews(snippets)})
	case OpState:
		return s.sendState()
	default:
		return s.sendError("UNKNOWN_OP", "unknown op "+msg.Op)
	}
	return nil
}

// pushChanges sends the newest state after every change until ctx ends.
func (s *session) pushChanges(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.changed:
			if err := s.sendState(); err != nil {
				return
			}
		}
	}
}

func (s *session) sendState() error {
	view := NewStateView(s.svc.State(), s.svc.Selection())
	return s.send(wsReply{Event: EventState, State: &view})
}

func (s *session) sendServiceError(err error) error {
	_, code := errorStatus(err)
	return s.sendError(code, err.Error())
}

func (s *session) sendError(code, message string) error {
	return s.send(wsReply{Event: EventError, Error: &ErrorResponse{Error: message, Code: code}})
}

func (s *session) send(v wsReply) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	err := s.conn.WriteJSON(v)
	if err != nil {
		s.logger.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}
