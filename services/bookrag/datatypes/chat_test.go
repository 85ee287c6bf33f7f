// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestChatRequest_Validate_Valid verifies a well-formed request passes.
func TestChatRequest_Validate_Valid(t *testing.T) {
	req := ChatRequest{
		Message:   "what does the book say about attention?",
		SessionId: "abc",
		RequestId: uuid.New().String(),
	}
	assert.NoError(t, req.Validate())
}

// TestChatRequest_Validate_MissingMessage verifies the message is required.
func TestChatRequest_Validate_MissingMessage(t *testing.T) {
	req := ChatRequest{}
	assert.Error(t, req.Validate())
}

// TestChatRequest_Validate_OversizedMessage verifies the byte bound.
func TestChatRequest_Validate_OversizedMessage(t *testing.T) {
	req := ChatRequest{Message: strings.Repeat("a", MaxQuestionBytes+1)}
	assert.Error(t, req.Validate())

	req.Message = strings.Repeat("a", MaxQuestionBytes)
	assert.NoError(t, req.Validate())
}

// TestChatRequest_Validate_BadRequestId verifies RequestId must be a
// UUID v4 when present, and may be absent.
func TestChatRequest_Validate_BadRequestId(t *testing.T) {
	req := ChatRequest{Message: "hi", RequestId: "not-a-uuid"}
	assert.Error(t, req.Validate())

	req.RequestId = ""
	assert.NoError(t, req.Validate())
}

// TestChatRequest_EnsureDefaults verifies request id generation.
func TestChatRequest_EnsureDefaults(t *testing.T) {
	req := ChatRequest{Message: "hi"}
	req.EnsureDefaults()
	require.NotEmpty(t, req.RequestId)
	_, err := uuid.Parse(req.RequestId)
	assert.NoError(t, err)

	// An existing id is preserved.
	id := req.RequestId
	req.EnsureDefaults()
	assert.Equal(t, id, req.RequestId)
}

// TestChatRequest_EnsureSessionId verifies session id generation and
// reuse.
func TestChatRequest_EnsureSessionId(t *testing.T) {
	req := ChatRequest{Message: "hi"}
	session := req.EnsureSessionId()
	require.NotEmpty(t, session)
	assert.Equal(t, session, req.SessionId)

	assert.Equal(t, session, req.EnsureSessionId())
}

// TestNewChatResponse verifies the response envelope fields.
func TestNewChatResponse(t *testing.T) {
	sources := []SourceInfo{{Source: "book.pdf", Page: 3, Score: 0.9}}
	resp := NewChatResponse("req-1", "sess-1", "the answer", sources, 2)

	assert.NotEmpty(t, resp.ResponseId)
	assert.Equal(t, "req-1", resp.RequestId)
	assert.Equal(t, "sess-1", resp.SessionId)
	assert.Equal(t, "the answer", resp.Answer)
	assert.Equal(t, sources, resp.Sources)
	assert.Equal(t, 2, resp.TurnCount)
	assert.Positive(t, resp.Timestamp)
}
