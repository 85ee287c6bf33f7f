// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains request and response types for the chat endpoints.
// For the core pipeline records, see rag.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxQuestionBytes is the maximum size of a single question.
	// Checked in bytes, not runes, to bound memory.
	MaxQuestionBytes = 32 * 1024 // 32KB
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for chat datatypes.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes enforces the MaxQuestionBytes bound on a string field.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxQuestionBytes
}

// =============================================================================
// Chat Request / Response
// =============================================================================

// ChatRequest is the body of POST /v1/chat and POST /v1/chat/stream.
//
// # Fields
//
//   - Message: Required. The user's question. Max 32KB.
//   - SessionId: Optional. Existing session to continue; a new session id is
//     generated when absent. Used only to fetch and append chat history.
//   - RequestId: Optional. Client-supplied UUID v4 for tracing; generated
//     server-side when absent.
//
// # Validation
//
//   - Message: required, non-empty after trimming, max 32768 bytes
//   - RequestId: UUID v4 when present
type ChatRequest struct {
	Message   string `json:"message" validate:"required,maxbytes"`
	SessionId string `json:"session_id"`
	RequestId string `json:"request_id" validate:"omitempty,uuid4"`
}

// Validate validates the ChatRequest fields after JSON binding.
func (r *ChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults populates RequestId when the client did not supply one.
func (r *ChatRequest) EnsureDefaults() {
	if r.RequestId == "" {
		r.RequestId = uuid.New().String()
	}
}

// EnsureSessionId returns the request's session id, generating and storing a
// new one when the request did not carry one.
func (r *ChatRequest) EnsureSessionId() string {
	if r.SessionId == "" {
		r.SessionId = uuid.New().String()
	}
	return r.SessionId
}

// ChatResponse is the body returned by the non-streaming chat endpoint.
type ChatResponse struct {
	ResponseId string       `json:"response_id"`
	RequestId  string       `json:"request_id"`
	SessionId  string       `json:"session_id"`
	Timestamp  int64        `json:"timestamp"`
	Answer     string       `json:"answer"`
	Sources    []SourceInfo `json:"sources,omitempty"`
	TurnCount  int          `json:"turn_count"`
}

// NewChatResponse creates a ChatResponse with a generated response id and the
// current timestamp.
func NewChatResponse(requestID, sessionID, answer string, sources []SourceInfo, turnCount int) *ChatResponse {
	return &ChatResponse{
		ResponseId: uuid.New().String(),
		RequestId:  requestID,
		SessionId:  sessionID,
		Timestamp:  time.Now().UnixMilli(),
		Answer:     answer,
		Sources:    sources,
		TurnCount:  turnCount,
	}
}
