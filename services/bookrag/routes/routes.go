// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes wires the HTTP endpoints onto a gin router.
package routes

import (
	"github.com/AleutianAI/bookrag/services/bookrag/handlers"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// SetupRoutes registers all endpoints.
//
//	GET  /health          liveness probe
//	GET  /metrics         Prometheus metrics
//	POST /v1/chat         synchronous chat turn
//	POST /v1/chat/stream  streaming chat turn (NDJSON)
func SetupRoutes(router *gin.Engine, chat *handlers.ChatHandler) {
	router.Use(otelgin.Middleware("bookrag-server"))

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/chat", chat.Chat)
		v1.POST("/chat/stream", chat.ChatStream)
	}
}
