// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history persists chat turns per session in Weaviate so a
// follow-up question can see the conversation so far.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
)

var historyTracer = otel.Tracer("bookrag.history")

// ConversationClass is the Weaviate class holding chat turns.
const ConversationClass = "ConversationTurn"

// DefaultLimit is how many prior turns a new question sees.
const DefaultLimit = 10

// Store reads and writes session chat history.
type Store struct {
	client *weaviate.Client
}

// NewStore creates a Store. The Weaviate client is required.
func NewStore(client *weaviate.Client) *Store {
	if client == nil {
		panic("history.NewStore: weaviate client is required")
	}
	return &Store{client: client}
}

// EnsureSchema creates the ConversationTurn class if it does not exist.
// Turns are looked up by session filter, never by vector, so the class
// has no vectorizer.
func (s *Store) EnsureSchema(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(ConversationClass).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check schema for %s: %w", ConversationClass, err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:      ConversationClass,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "session_id", DataType: []string{"text"}},
			{Name: "question", DataType: []string{"text"}},
			{Name: "answer", DataType: []string{"text"}},
			{Name: "timestamp", DataType: []string{"date"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create %s class: %w", ConversationClass, err)
	}
	slog.Info("Created Weaviate class", "class", ConversationClass)
	return nil
}

// Append stores one completed turn. Turns with an empty answer are
// skipped: a failed turn leaves no trace in history, so retrying the same
// question is unaffected by the failure.
func (s *Store) Append(ctx context.Context, sessionID, question, answer string) error {
	ctx, span := historyTracer.Start(ctx, "history.Append")
	defer span.End()

	if answer == "" {
		slog.Debug("Skipping history append for empty answer", "session_id", sessionID)
		return nil
	}

	_, err := s.client.Data().Creator().
		WithClassName(ConversationClass).
		WithProperties(map[string]interface{}{
			"session_id": sessionID,
			"question":   question,
			"answer":     answer,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		}).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save conversation turn: %w", err)
	}
	return nil
}

// conversationHit mirrors the GraphQL response shape for one turn.
type conversationHit struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Timestamp string `json:"timestamp"`
}

type conversationResult struct {
	Get struct {
		ConversationTurn []conversationHit `json:"ConversationTurn"`
	} `json:"Get"`
}

// Recent returns up to limit prior turns for the session in chronological
// order, flattened to alternating user/assistant messages. A limit of zero
// or less uses DefaultLimit.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]datatypes.ChatTurn, error) {
	ctx, span := historyTracer.Start(ctx, "history.Recent")
	defer span.End()

	if limit <= 0 {
		limit = DefaultLimit
	}

	where := filters.Where().
		WithPath([]string{"session_id"}).
		WithOperator(filters.Equal).
		WithValueString(sessionID)

	resp, err := s.client.GraphQL().Get().
		WithClassName(ConversationClass).
		WithFields(
			graphql.Field{Name: "question"},
			graphql.Field{Name: "answer"},
			graphql.Field{Name: "timestamp"},
		).
		WithWhere(where).
		WithSort(graphql.Sort{Path: []string{"timestamp"}, Order: graphql.Desc}).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}

	result, err := datatypes.ParseGraphQLResponse[conversationResult](resp)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("malformed history response: %w", err)
	}

	hits := result.Get.ConversationTurn

	// The query sorts newest first to apply the limit; flip back to
	// chronological for the prompt.
	turns := make([]datatypes.ChatTurn, 0, len(hits)*2)
	for i := len(hits) - 1; i >= 0; i-- {
		turns = append(turns,
			datatypes.ChatTurn{Role: "user", Content: hits[i].Question},
			datatypes.ChatTurn{Role: "assistant", Content: hits[i].Answer},
		)
	}
	return turns, nil
}
