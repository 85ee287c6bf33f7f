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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
	"github.com/AleutianAI/bookrag/services/bookrag/history"
	"github.com/AleutianAI/bookrag/services/bookrag/pipeline"
	"github.com/AleutianAI/bookrag/services/llm"
	"github.com/AleutianAI/bookrag/services/policy"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// stubLLM implements llm.Client with a fixed classification verdict and a
// fixed streamed answer.
type stubLLM struct {
	classifyErr   error
	retrieval     bool
	inappropriate bool
	streamTokens  []string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	return "", nil
}

func (s *stubLLM) Chat(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams) (string, error) {
	return "", nil
}

func (s *stubLLM) ChatStream(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams, callback llm.StreamCallback) error {
	for _, token := range s.streamTokens {
		if err := callback(llm.StreamEvent{Type: llm.StreamEventToken, Content: token}); err != nil {
			return err
		}
	}
	return callback(llm.StreamEvent{Type: llm.StreamEventDone})
}

func (s *stubLLM) CompleteStructured(ctx context.Context, system, user string, params llm.GenerationParams, out any) error {
	if s.classifyErr != nil {
		return s.classifyErr
	}
	// The direct and refuse routes never grade, so every structured call
	// here is a classification.
	data, _ := json.Marshal(map[string]any{
		"retrieval_required":     s.retrieval,
		"inappropriate_question": s.inappropriate,
		"improved_question":      "",
	})
	return json.Unmarshal(data, out)
}

type stubSearcher struct{}

func (stubSearcher) Search(ctx context.Context, query string, k int) ([]datatypes.RetrievedPassage, error) {
	return nil, nil
}

// newTestHandler wires a ChatHandler around the stub backend. The history
// store points at an unreachable Weaviate, exercising the degrade path.
func newTestHandler(t *testing.T, client llm.Client, guard *policy.Guard) *ChatHandler {
	t.Helper()
	weaviateClient, err := weaviate.NewClient(weaviate.Config{Scheme: "http", Host: "localhost:1"})
	require.NoError(t, err)

	p := pipeline.New(client, stubSearcher{}, pipeline.DefaultConfig())
	return NewChatHandler(p, history.NewStore(weaviateClient), guard, nil, 0, 0)
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Chat Tests
// =============================================================================

// TestChat_Success verifies a conversational turn returns the full answer
// envelope.
func TestChat_Success(t *testing.T) {
	h := newTestHandler(t, &stubLLM{streamTokens: []string{"Hello ", "there."}}, nil)
	router := gin.New()
	router.POST("/v1/chat", h.Chat)

	w := performRequest(router, "POST", "/v1/chat", datatypes.ChatRequest{Message: "hi"})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Hello there.", resp.Answer)
	assert.NotEmpty(t, resp.SessionId)
	assert.NotEmpty(t, resp.RequestId)
	assert.Equal(t, 1, resp.TurnCount)
}

// TestChat_RefusalRoute verifies an inappropriate question returns the
// refusal text as a normal 200 answer.
func TestChat_RefusalRoute(t *testing.T) {
	h := newTestHandler(t, &stubLLM{inappropriate: true}, nil)
	router := gin.New()
	router.POST("/v1/chat", h.Chat)

	w := performRequest(router, "POST", "/v1/chat", datatypes.ChatRequest{Message: "something bad"})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, pipeline.RefusalMessage, resp.Answer)
}

// TestChat_InvalidJSON verifies malformed bodies are rejected.
func TestChat_InvalidJSON(t *testing.T) {
	h := newTestHandler(t, &stubLLM{}, nil)
	router := gin.New()
	router.POST("/v1/chat", h.Chat)

	req, _ := http.NewRequest("POST", "/v1/chat", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestChat_MissingMessage verifies validation failures are 400s.
func TestChat_MissingMessage(t *testing.T) {
	h := newTestHandler(t, &stubLLM{}, nil)
	router := gin.New()
	router.POST("/v1/chat", h.Chat)

	w := performRequest(router, "POST", "/v1/chat", datatypes.ChatRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestChat_GuardBlocksCredentials verifies the input guard rejects a
// question carrying an API key before any model call.
func TestChat_GuardBlocksCredentials(t *testing.T) {
	guard, err := policy.NewGuard()
	require.NoError(t, err)

	h := newTestHandler(t, &stubLLM{}, guard)
	router := gin.New()
	router.POST("/v1/chat", h.Chat)

	w := performRequest(router, "POST", "/v1/chat", datatypes.ChatRequest{
		Message: "why does sk-abcdefghij1234567890ABCD return 401?",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotContains(t, resp["error"], "sk-")
}

// TestChat_PipelineFailure verifies pipeline errors surface as 502 with a
// sanitized message.
func TestChat_PipelineFailure(t *testing.T) {
	h := newTestHandler(t, &stubLLM{classifyErr: errors.New("model gone")}, nil)
	router := gin.New()
	router.POST("/v1/chat", h.Chat)

	w := performRequest(router, "POST", "/v1/chat", datatypes.ChatRequest{Message: "hi"})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotContains(t, resp["error"], "model gone")
}

// TestHealth verifies the liveness endpoint.
func TestHealth(t *testing.T) {
	router := gin.New()
	router.GET("/health", Health)

	w := performRequest(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
