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
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/codewords/services/editor/telemetry"
)

// RegisterRoutes registers the editor routes.
//
// Description:
//
//	Registers all /v1/editor/* endpoints with the given Gin router group.
//
// Endpoints:
//
//	GET    /v1/editor/health    - Liveness
//	GET    /v1/editor/state     - Current state summary
//	GET    /v1/editor/document  - Current document
//	PUT    /v1/editor/document  - Replace the document
//	DELETE /v1/editor/document  - Unload the document
//	POST   /v1/editor/actions   - Dispatch one wire action
//	GET    /v1/editor/snippets  - Rank snippets for ?q=
//	POST   /v1/editor/drop      - Drop a snippet on a target
//	POST   /v1/editor/click     - Click a rendered line
//	POST   /v1/editor/undo      - Restore the previous revision
//	GET    /v1/editor/history   - Revisions of the current document
//	GET    /v1/editor/ws        - Live websocket session
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	g := rg.Group("/editor")
	g.GET("/health", h.HandleHealth)
	g.GET("/state", h.HandleGetState)
	g.GET("/document", h.HandleGetDocument)
	g.PUT("/document", h.HandlePutDocument)
	g.DELETE("/document", h.HandleDeleteDocument)
	g.POST("/actions", h.HandleAction)
	g.GET("/snippets", h.HandleSnippets)
	g.POST("/drop", h.HandleDrop)
	g.POST("/click", h.HandleClick)
	g.POST("/undo", h.HandleUndo)
	g.GET("/history", h.HandleHistory)
	g.GET("/ws", h.HandleWebSocket)
}

// NewRouter builds the complete HTTP handler for svc: recovery, tracing,
// the editor routes under /v1 and Prometheus metrics on /metrics.
func NewRouter(svc *Service) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(svc.Config().Telemetry.ServiceName))
	if svc.Config().Server.Debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(svc))
	router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))
	return router
}
