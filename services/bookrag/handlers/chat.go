// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
	"github.com/AleutianAI/bookrag/services/bookrag/pipeline"
	"github.com/AleutianAI/bookrag/services/policy"
	"github.com/gin-gonic/gin"
)

// Chat handles POST /v1/chat.
//
// # Description
//
// Runs one full pipeline turn synchronously and returns the complete
// answer with source attributions in a single JSON response. Intended for
// clients that do not consume streams (the CLI ask command, evaluation
// harness, scripts).
//
// # Inputs
//
//   - JSON body: datatypes.ChatRequest
//
// # Outputs
//
//   - 200: datatypes.ChatResponse
//   - 400: validation failure
//   - 403: question blocked by the input guard
//   - 502: pipeline failure (sanitized message)
func (h *ChatHandler) Chat(c *gin.Context) {
	ctx, span := handlerTracer.Start(c.Request.Context(), "ChatHandler.Chat")
	defer span.End()
	started := time.Now()

	var req datatypes.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.EnsureDefaults()
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.EnsureSessionId()

	if h.guard != nil {
		if findings := h.guard.Scan(req.Message); policy.Blocks(findings) {
			slog.Warn("Question blocked by input guard",
				"session_id", req.SessionId,
				"pattern_id", findings[0].PatternId,
			)
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Your question contains content that cannot be sent to the model provider. Please remove any credentials or personal data and try again.",
			})
			return
		}
	}

	turns := h.loadHistory(ctx, req.SessionId)

	state, err := h.pipeline.Run(ctx, req.Message, turns, nil)
	if h.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		h.metrics.RequestsTotal.WithLabelValues(routeLabel(state), status).Inc()
		h.metrics.TurnDurationSeconds.WithLabelValues(status).Observe(time.Since(started).Seconds())
	}
	if err != nil {
		slog.Error("Chat turn failed", "session_id", req.SessionId, "error", err)
		if h.metrics != nil {
			h.metrics.ErrorsTotal.WithLabelValues(errorStage(err)).Inc()
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": pipeline.PublicError(err)})
		return
	}

	// Persist off the request path; a slow write should not delay the
	// response.
	go h.appendHistory(context.WithoutCancel(ctx), req.SessionId, req.Message, state.Answer)

	resp := datatypes.NewChatResponse(req.RequestId, req.SessionId, state.Answer, datatypes.SourcesFromPassages(state.Passages), len(turns)/2+1)
	c.JSON(http.StatusOK, resp)
}
