// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP endpoints for book collection chat.
package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
	"github.com/AleutianAI/bookrag/services/bookrag/history"
	"github.com/AleutianAI/bookrag/services/bookrag/observability"
	"github.com/AleutianAI/bookrag/services/bookrag/pipeline"
	"github.com/AleutianAI/bookrag/services/policy"
	"go.opentelemetry.io/otel"
)

var handlerTracer = otel.Tracer("bookrag.handlers")

// ChatHandler serves the chat endpoints.
type ChatHandler struct {
	pipeline      *pipeline.Pipeline
	history       *history.Store
	guard         *policy.Guard
	metrics       *observability.ChatMetrics
	streamTimeout time.Duration
	historyLimit  int
}

// NewChatHandler creates a ChatHandler. The pipeline and history store are
// required; guard and metrics may be nil to disable input screening and
// instrumentation.
func NewChatHandler(p *pipeline.Pipeline, h *history.Store, guard *policy.Guard, metrics *observability.ChatMetrics, streamTimeout time.Duration, historyLimit int) *ChatHandler {
	if p == nil {
		panic("NewChatHandler: pipeline is required")
	}
	if h == nil {
		panic("NewChatHandler: history store is required")
	}
	if streamTimeout <= 0 {
		streamTimeout = pipeline.DefaultStreamTimeout
	}
	if historyLimit <= 0 {
		historyLimit = history.DefaultLimit
	}
	return &ChatHandler{
		pipeline:      p,
		history:       h,
		guard:         guard,
		metrics:       metrics,
		streamTimeout: streamTimeout,
		historyLimit:  historyLimit,
	}
}

// loadHistory fetches prior turns for the session. A history failure
// degrades the turn to an empty history rather than failing it; the
// question can still be answered without memory.
func (h *ChatHandler) loadHistory(ctx context.Context, sessionID string) []datatypes.ChatTurn {
	turns, err := h.history.Recent(ctx, sessionID, h.historyLimit)
	if err != nil {
		slog.Warn("Failed to load session history, continuing without it",
			"session_id", sessionID, "error", err)
		if h.metrics != nil {
			h.metrics.HistoryFailuresTotal.WithLabelValues("load").Inc()
		}
		return nil
	}
	return turns
}

// appendHistory persists a completed turn.
func (h *ChatHandler) appendHistory(ctx context.Context, sessionID, question, answer string) {
	if err := h.history.Append(ctx, sessionID, question, answer); err != nil {
		slog.Error("Failed to append conversation turn",
			"session_id", sessionID, "error", err)
		if h.metrics != nil {
			h.metrics.HistoryFailuresTotal.WithLabelValues("append").Inc()
		}
	}
}

// errorStage maps a pipeline error to its metrics stage label.
func errorStage(err error) string {
	switch {
	case pipeline.IsClassificationError(err):
		return observability.StageClassify
	case pipeline.IsRetrievalError(err):
		return observability.StageRetrieve
	case pipeline.IsGradingError(err):
		return observability.StageGrade
	case pipeline.IsGenerationError(err):
		return observability.StageGenerate
	case pipeline.IsStreamTimeoutError(err):
		return observability.StageStreamTimeout
	default:
		return observability.StageInternal
	}
}

// routeLabel returns the metrics label for a turn's route, or "unknown"
// when the turn failed before classification.
func routeLabel(state *datatypes.PipelineState) string {
	if state == nil || state.Classification == nil {
		return "unknown"
	}
	return string(state.Classification.Route)
}
