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

// ChatStream handles POST /v1/chat/stream.
//
// # Description
//
// Runs one pipeline turn with token streaming. The response body is
// newline-delimited JSON: zero or more {"answer":"..."} chunks followed
// by end of stream, or a single terminal {"error":"..."} chunk. Headers
// are sent before the pipeline starts, so failures after that point are
// reported in-band as an error chunk rather than an HTTP status.
//
// The pipeline runs detached from the request context: if the client
// disconnects or stops reading mid-turn, the turn still completes in the
// background and the finished answer is persisted to session history.
//
// # Inputs
//
//   - JSON body: datatypes.ChatRequest
//
// # Outputs
//
//   - 200 with application/x-ndjson body (errors in-band)
//   - 400: validation failure
//   - 403: question blocked by the input guard
func (h *ChatHandler) ChatStream(c *gin.Context) {
	ctx, span := handlerTracer.Start(c.Request.Context(), "ChatHandler.ChatStream")
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

	writer, err := NewChunkWriter(c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	turns := h.loadHistory(ctx, req.SessionId)

	if h.metrics != nil {
		h.metrics.ActiveStreams.Inc()
		defer h.metrics.ActiveStreams.Dec()
	}

	// The worker outlives the request on client timeout or disconnect, so
	// it runs on a context detached from request cancellation. History is
	// appended inside the run closure for the same reason: the turn's
	// outcome is recorded even when nobody is reading anymore.
	workerCtx := context.WithoutCancel(ctx)
	sessionID := req.SessionId
	question := req.Message

	stream := pipeline.StartStream(workerCtx, h.streamTimeout, func(runCtx context.Context, sink pipeline.TokenSink) (*datatypes.PipelineState, error) {
		state, runErr := h.pipeline.Run(runCtx, question, turns, sink)
		if h.metrics != nil {
			status := "success"
			if runErr != nil {
				status = "error"
			}
			h.metrics.RequestsTotal.WithLabelValues(routeLabel(state), status).Inc()
			h.metrics.TurnDurationSeconds.WithLabelValues(status).Observe(time.Since(started).Seconds())
			if runErr != nil {
				h.metrics.ErrorsTotal.WithLabelValues(errorStage(runErr)).Inc()
			}
		}
		if runErr != nil {
			slog.Error("Streaming chat turn failed", "session_id", sessionID, "error", runErr)
			return state, runErr
		}
		h.appendHistory(runCtx, sessionID, question, state.Answer)
		return state, nil
	})

	firstChunk := true
	for {
		chunk, ok, err := stream.Next()
		if err != nil {
			// Consumer-side timeout. The worker keeps going; this
			// response is done.
			slog.Warn("Stream consumer timed out", "session_id", sessionID, "timeout", h.streamTimeout)
			if h.metrics != nil {
				h.metrics.ErrorsTotal.WithLabelValues(errorStage(err)).Inc()
			}
			_ = writer.WriteError(pipeline.PublicError(err))
			stream.Abandon()
			return
		}
		if !ok {
			return
		}
		if firstChunk {
			firstChunk = false
			if h.metrics != nil {
				h.metrics.TimeToFirstTokenSeconds.Observe(time.Since(started).Seconds())
			}
		}
		if err := writer.WriteChunk(chunk); err != nil {
			// Client went away mid-stream. Stop reading and let the
			// worker finish detached.
			slog.Info("Client disconnected mid-stream", "session_id", sessionID)
			stream.Abandon()
			return
		}
	}
}
