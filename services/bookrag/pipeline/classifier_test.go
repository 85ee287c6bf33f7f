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

// TestClassifier_RetrieveRoute verifies that a question needing retrieval
// routes to retrieve and carries the model's rewritten query.
func TestClassifier_RetrieveRoute(t *testing.T) {
	mock := &mockLLMClient{structuredFn: classifyAs(true, false, "transformer architecture attention")}
	c := NewClassifier(mock, "")

	result, err := c.Classify(context.Background(), "how does attention work?")
	require.NoError(t, err)

	assert.Equal(t, datatypes.RouteRetrieve, result.Route)
	assert.Equal(t, "transformer architecture attention", result.RewrittenQuery)
}

// TestClassifier_DirectRoute verifies that small talk skips retrieval.
func TestClassifier_DirectRoute(t *testing.T) {
	mock := &mockLLMClient{structuredFn: classifyAs(false, false, "")}
	c := NewClassifier(mock, "")

	result, err := c.Classify(context.Background(), "hello there")
	require.NoError(t, err)

	assert.Equal(t, datatypes.RouteDirect, result.Route)
}

// TestClassifier_InappropriateWinsOverRetrieval verifies that the refuse
// verdict takes priority even when the model also flags retrieval.
func TestClassifier_InappropriateWinsOverRetrieval(t *testing.T) {
	mock := &mockLLMClient{structuredFn: classifyAs(true, true, "still on topic")}
	c := NewClassifier(mock, "")

	result, err := c.Classify(context.Background(), "something inappropriate about books")
	require.NoError(t, err)

	assert.Equal(t, datatypes.RouteRefuse, result.Route)
}

// TestClassifier_EmptyRewriteFallsBackToQuestion verifies that a blank
// improved question leaves the original usable for retrieval.
func TestClassifier_EmptyRewriteFallsBackToQuestion(t *testing.T) {
	mock := &mockLLMClient{structuredFn: classifyAs(true, false, "   ")}
	c := NewClassifier(mock, "")

	result, err := c.Classify(context.Background(), "what is RAG?")
	require.NoError(t, err)

	assert.Equal(t, "what is RAG?", result.RewrittenQuery)
}

// TestClassifier_ModelFailure verifies that a failed model call surfaces
// as a ClassificationError instead of a guessed route.
func TestClassifier_ModelFailure(t *testing.T) {
	mock := &mockLLMClient{structuredFn: func(system, user string, out any) error {
		return errors.New("connection refused")
	}}
	c := NewClassifier(mock, "")

	result, err := c.Classify(context.Background(), "how does attention work?")
	require.Error(t, err)

	assert.Nil(t, result)
	assert.True(t, IsClassificationError(err))
}

// TestNewClassifier_NilClientPanics verifies the constructor contract.
func TestNewClassifier_NilClientPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewClassifier(nil, "")
	})
}
