// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
	"github.com/AleutianAI/bookrag/services/llm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// classifierOutput is the JSON shape the classification model is prompted
// to emit.
type classifierOutput struct {
	RetrievalRequired     bool   `json:"retrieval_required"`
	InappropriateQuestion bool   `json:"inappropriate_question"`
	ImprovedQuestion      string `json:"improved_question"`
}

// Classifier routes an incoming question before any retrieval happens.
type Classifier struct {
	client llm.Client
	model  string
}

// NewClassifier creates a Classifier. The client is required.
func NewClassifier(client llm.Client, model string) *Classifier {
	if client == nil {
		panic("NewClassifier: llm client is required")
	}
	return &Classifier{client: client, model: model}
}

// Classify decides the route for a question and produces the rewritten
// query used for retrieval.
//
// The inappropriate flag wins over the retrieval flag: a question that is
// both inappropriate and on-topic is still refused. A model or decode
// failure returns a ClassificationError; the turn fails rather than
// degrading to a guessed route.
func (c *Classifier) Classify(ctx context.Context, question string) (*datatypes.ClassificationResult, error) {
	ctx, span := pipelineTracer.Start(ctx, "Classifier.Classify")
	defer span.End()

	var out classifierOutput
	temperature := float32(0)
	err := c.client.CompleteStructured(ctx, classifySystemPrompt, question, llm.GenerationParams{
		Model:           c.model,
		Temperature:     &temperature,
		ReasoningEffort: llm.ReasoningEffortMinimal,
	}, &out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification failed")
		return nil, &ClassificationError{Message: "model call failed", Err: err}
	}

	result := &datatypes.ClassificationResult{
		RewrittenQuery: strings.TrimSpace(out.ImprovedQuestion),
	}
	switch {
	case out.InappropriateQuestion:
		result.Route = datatypes.RouteRefuse
	case out.RetrievalRequired:
		result.Route = datatypes.RouteRetrieve
	default:
		result.Route = datatypes.RouteDirect
	}
	if result.RewrittenQuery == "" {
		result.RewrittenQuery = question
	}

	span.SetAttributes(attribute.String("pipeline.route", string(result.Route)))
	slog.Debug("Question classified", "route", result.Route)
	return result, nil
}
