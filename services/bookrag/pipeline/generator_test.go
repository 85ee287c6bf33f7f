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
	"errors"
	"testing"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGenerator_StreamsAndAccumulates verifies that tokens reach the sink
// in order and the returned answer is their concatenation.
func TestGenerator_StreamsAndAccumulates(t *testing.T) {
	mock := &mockLLMClient{streamTokens: []string{"Attention ", "is ", "all ", "you ", "need."}}
	g := NewGenerator(mock, "")

	var received []string
	answer, err := g.Generate(context.Background(), "question", nil, nil, func(token string) error {
		received = append(received, token)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "Attention is all you need.", answer)
	assert.Equal(t, []string{"Attention ", "is ", "all ", "you ", "need."}, received)
}

// TestGenerator_NilSink verifies the non-streaming caller path.
func TestGenerator_NilSink(t *testing.T) {
	mock := &mockLLMClient{streamTokens: []string{"Hello."}}
	g := NewGenerator(mock, "")

	answer, err := g.Generate(context.Background(), "question", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello.", answer)
}

// TestGenerator_SinkFailureStillCompletes verifies that a dead consumer
// does not abort generation: the full answer is still produced so the
// turn can be persisted.
func TestGenerator_SinkFailureStillCompletes(t *testing.T) {
	mock := &mockLLMClient{streamTokens: []string{"part one ", "part two ", "part three"}}
	g := NewGenerator(mock, "")

	delivered := 0
	answer, err := g.Generate(context.Background(), "question", nil, nil, func(token string) error {
		delivered++
		return errors.New("consumer gone")
	})
	require.NoError(t, err)

	assert.Equal(t, "part one part two part three", answer)
	assert.Equal(t, 1, delivered)
}

// TestGenerator_StreamErrorIsGenerationError verifies error typing for
// transport failures mid-stream.
func TestGenerator_StreamErrorIsGenerationError(t *testing.T) {
	mock := &mockLLMClient{streamErr: errors.New("connection reset")}
	g := NewGenerator(mock, "")

	answer, err := g.Generate(context.Background(), "question", nil, nil, nil)
	require.Error(t, err)

	assert.Empty(t, answer)
	assert.True(t, IsGenerationError(err))
}

// TestGenerator_EmptyAnswerIsError verifies that whitespace-only output
// never passes as a successful turn.
func TestGenerator_EmptyAnswerIsError(t *testing.T) {
	mock := &mockLLMClient{streamTokens: []string{"  ", "\n"}}
	g := NewGenerator(mock, "")

	answer, err := g.Generate(context.Background(), "question", nil, nil, nil)
	require.Error(t, err)

	assert.Empty(t, answer)
	assert.True(t, IsGenerationError(err))
}

// TestBuildGenerationMessages_Grounded verifies transcript assembly with
// passages: grounded system prompt, history, context block, question.
func TestBuildGenerationMessages_Grounded(t *testing.T) {
	history := []datatypes.ChatTurn{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	passages := []datatypes.RetrievedPassage{
		passage("attention weights are computed", "aiengineering.pdf", 42),
	}

	messages := buildGenerationMessages("current question", history, passages)
	require.Len(t, messages, 5)

	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, generateSystemPrompt, messages[0].Content)
	assert.Equal(t, "earlier question", messages[1].Content)
	assert.Equal(t, "earlier answer", messages[2].Content)
	assert.Contains(t, messages[3].Content, "[1] AI Engineering, Page: 42")
	assert.Contains(t, messages[3].Content, "attention weights are computed")
	assert.Equal(t, "current question", messages[4].Content)
}

// TestBuildGenerationMessages_NoDocuments verifies the conversational
// variant: no context block, conversational system prompt.
func TestBuildGenerationMessages_NoDocuments(t *testing.T) {
	messages := buildGenerationMessages("hello", nil, nil)
	require.Len(t, messages, 2)

	assert.Equal(t, generateNoDocsSystemPrompt, messages[0].Content)
	assert.Equal(t, "hello", messages[1].Content)
}

// TestFormatPassages verifies that citation numbering starts at one and
// titles are cleaned.
func TestFormatPassages(t *testing.T) {
	block := formatPassages([]datatypes.RetrievedPassage{
		passage("first content", "hands_on_large_language_models.pdf", 7),
		passage("second content", "aiengineering.pdf", 12),
	})

	assert.Contains(t, block, "[1] Hands on Large Language Models, Page: 7")
	assert.Contains(t, block, "[2] AI Engineering, Page: 12")
	assert.Contains(t, block, "first content")
	assert.Contains(t, block, "second content")
}
