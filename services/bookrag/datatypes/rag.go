// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides the canonical data records for the BookRAG
// pipeline.
//
// Retrieved passages arrive from the vector store in whatever shape the
// search capability produced; everything downstream of the retriever works
// exclusively with the record types defined here. No component after the
// retriever boundary needs runtime type inspection.
package datatypes

import (
	"time"
)

// =============================================================================
// Routing
// =============================================================================

// Route is the classifier's three-way verdict on how a question should be
// handled.
//
// # Description
//
// Route replaces the boolean-or-string branch value used by earlier
// prototypes with an explicit enum. The orchestrator switches on Route and
// nothing else; there is exactly one branch point in the pipeline.
type Route string

const (
	// RouteRetrieve sends the question through retrieval and grading before
	// generation.
	RouteRetrieve Route = "retrieve"

	// RouteDirect skips retrieval; the generator answers from conversation
	// context alone.
	RouteDirect Route = "direct"

	// RouteRefuse terminates the turn with the fixed refusal answer.
	RouteRefuse Route = "refuse"
)

// ClassificationResult is the classifier's verdict for one turn.
//
// # Fields
//
//   - Route: The three-way branch decision (retrieve, direct, refuse).
//   - RewrittenQuery: A natural-language reformulation of the question
//     optimized for semantic search. Defaults to the original question when
//     no improvement was warranted or when Route is not RouteRetrieve.
//
// # Invariants
//
// Immutable once produced. If Route is RouteRefuse, retrieval and grounded
// generation must not execute.
type ClassificationResult struct {
	Route          Route  `json:"route"`
	RewrittenQuery string `json:"rewritten_query"`
}

// =============================================================================
// Passages and Grades
// =============================================================================

// Grade is a structured quality judgment attached to exactly one passage.
//
// All dimension scores are in [0.0, 1.0]. Overall is the holistic score used
// for ranking; Relevant is the filter verdict. Immutable once created.
type Grade struct {
	Relevance    float64 `json:"relevance"`
	Usefulness   float64 `json:"usefulness"`
	Accuracy     float64 `json:"accuracy"`
	Completeness float64 `json:"completeness"`
	Clarity      float64 `json:"clarity"`
	Overall      float64 `json:"overall_score"`
	Relevant     bool    `json:"relevant"`
}

// RetrievedPassage is one retrieved chunk of source text with attribution.
//
// # Description
//
// Created by the retriever; Grade is attached exactly once by the grader.
// No other field is ever mutated after creation. RawScore is conventionally
// 0.0: the diversity-aware retrieval mode does not emit a comparable
// similarity score, so nothing downstream may rank on it.
//
// # Fields
//
//   - Content: The passage text.
//   - SourceName: File name of the originating book.
//   - SourcePage: Page number within the source (>= 0).
//   - RawScore: Always 0.0 under diversity-aware retrieval; not comparable.
//   - RetrievedAt: When the retriever produced this passage.
//   - Grade: Set once by the grader; nil until then.
type RetrievedPassage struct {
	Content     string    `json:"content"`
	SourceName  string    `json:"source_name"`
	SourcePage  int       `json:"source_page"`
	RawScore    float64   `json:"score"`
	RetrievedAt time.Time `json:"retrieved_at"`
	Grade       *Grade    `json:"grade,omitempty"`
}

// =============================================================================
// Conversation
// =============================================================================

// ChatTurn is one prior exchange message supplied as conversation context.
// Role is "user" or "assistant".
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message is a chat message sent to a reasoning backend.
// Kept separate from ChatTurn: ChatTurn is pipeline history, Message is the
// wire shape LLM clients consume (it additionally carries "system").
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// Pipeline State
// =============================================================================

// PipelineState is the accumulator threaded through one pipeline run.
//
// # Description
//
// Created at the start of a run, populated stage by stage in flow order
// (classification, then passages, then answer) and handed to the caller at
// termination. Owned exclusively by one run; never shared across concurrent
// questions; discarded after the run completes.
//
// # Fields
//
//   - Question: The immutable input for this turn.
//   - History: Prior turns supplied as context, oldest first.
//   - Classification: Set by the classify stage.
//   - Passages: Set by the retrieve stage, re-set (filtered, ranked, graded)
//     by the grade stage. Empty when retrieval was skipped.
//   - Answer: Set by the generate or refuse stage.
type PipelineState struct {
	Question       string                `json:"question"`
	History        []ChatTurn            `json:"history,omitempty"`
	Classification *ClassificationResult `json:"classification,omitempty"`
	Passages       []RetrievedPassage    `json:"passages,omitempty"`
	Answer         string                `json:"answer,omitempty"`
}

// SourceInfo is the attribution summary of one grounding passage as reported
// to API clients alongside an answer.
type SourceInfo struct {
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Score  float64 `json:"score,omitempty"`
}

// SourcesFromPassages maps graded passages to client-facing source summaries,
// preserving rank order. The reported score is the grade's overall score, not
// the retrieval RawScore.
func SourcesFromPassages(passages []RetrievedPassage) []SourceInfo {
	if len(passages) == 0 {
		return nil
	}
	sources := make([]SourceInfo, 0, len(passages))
	for _, p := range passages {
		info := SourceInfo{Source: p.SourceName, Page: p.SourcePage}
		if p.Grade != nil {
			info.Score = p.Grade.Overall
		}
		sources = append(sources, info)
	}
	return sources
}
