// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline implements the question answering flow over a personal
// book collection.
//
// A turn moves through up to four stages:
//
//  1. Classify: one structured model call decides the route (retrieve,
//     direct, or refuse) and rewrites the question for search.
//  2. Retrieve: embed the rewritten question and pull diverse candidate
//     passages from Weaviate (retrieve route only).
//  3. Grade: score each passage concurrently, keep the relevant ones
//     ordered best first.
//  4. Generate: stream the final answer, grounded on the surviving
//     passages or purely conversational.
//
// The refuse route short-circuits to a fixed refusal message with no
// further model calls.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
	"github.com/AleutianAI/bookrag/services/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var pipelineTracer = otel.Tracer("bookrag.pipeline")

// Models names the model used at each stage. Empty fields fall back to
// the LLM client's default model.
type Models struct {
	Classify string
	Grade    string
	Generate string
}

// Config tunes the pipeline.
type Config struct {
	// Models selects per-stage models.
	Models Models

	// K is the number of passages to retrieve per question.
	K int
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{K: 6}
}

// Pipeline wires the four stages together.
type Pipeline struct {
	classifier *Classifier
	searcher   Searcher
	grader     *Grader
	generator  *Generator
	k          int
}

// New creates a Pipeline. The client and searcher are required.
func New(client llm.Client, searcher Searcher, config Config) *Pipeline {
	if client == nil {
		panic("pipeline.New: llm client is required")
	}
	if searcher == nil {
		panic("pipeline.New: searcher is required")
	}
	k := config.K
	if k <= 0 {
		k = 6
	}
	return &Pipeline{
		classifier: NewClassifier(client, config.Models.Classify),
		searcher:   searcher,
		grader:     NewGrader(client, config.Models.Grade),
		generator:  NewGenerator(client, config.Models.Generate),
		k:          k,
	}
}

// WithGradingFailureHook registers a per-passage grading failure callback,
// typically a metrics counter, and returns the pipeline for chaining.
func (p *Pipeline) WithGradingFailureHook(hook func()) *Pipeline {
	p.grader.WithFailureHook(hook)
	return p
}

// Run executes one turn and returns the final state. The returned state
// always carries the classification and, on success, a non-empty answer.
//
// Tokens stream to sink as they arrive from the generation model; sink may
// be nil. The refusal path never streams: its fixed answer appears only in
// the returned state, and callers that stream fall back to emitting it as
// a single chunk.
func (p *Pipeline) Run(ctx context.Context, question string, history []datatypes.ChatTurn, sink TokenSink) (*datatypes.PipelineState, error) {
	ctx, span := pipelineTracer.Start(ctx, "Pipeline.Run")
	defer span.End()
	started := time.Now()

	state := &datatypes.PipelineState{
		Question: question,
		History:  history,
	}

	classification, err := p.classifier.Classify(ctx, question)
	if err != nil {
		return state, err
	}
	state.Classification = classification
	span.SetAttributes(attribute.String("pipeline.route", string(classification.Route)))

	switch classification.Route {
	case datatypes.RouteRefuse:
		state.Answer = RefusalMessage
		slog.Info("Question refused", "duration_ms", time.Since(started).Milliseconds())
		return state, nil

	case datatypes.RouteRetrieve:
		passages, err := p.searcher.Search(ctx, classification.RewrittenQuery, p.k)
		if err != nil {
			return state, err
		}
		kept, err := p.grader.Grade(ctx, question, passages)
		if err != nil {
			return state, err
		}
		state.Passages = kept

	case datatypes.RouteDirect:
		// No retrieval; the conversational prompt handles it.
	}

	answer, err := p.generator.Generate(ctx, question, history, state.Passages, sink)
	if err != nil {
		return state, err
	}
	state.Answer = answer

	slog.Info("Pipeline turn complete",
		"route", classification.Route,
		"passages", len(state.Passages),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return state, nil
}
