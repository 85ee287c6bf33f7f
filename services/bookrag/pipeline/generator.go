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
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
	"github.com/AleutianAI/bookrag/services/llm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TokenSink receives answer tokens as they arrive from the model. A sink
// error stops token forwarding but not generation; the full answer is
// still accumulated and returned.
type TokenSink func(token string) error

// Generator produces the final answer, either grounded on graded passages
// or conversational when the turn needed no retrieval.
type Generator struct {
	client llm.Client
	model  string
}

// NewGenerator creates a Generator. The client is required.
func NewGenerator(client llm.Client, model string) *Generator {
	if client == nil {
		panic("NewGenerator: llm client is required")
	}
	return &Generator{client: client, model: model}
}

// Generate streams the answer for the question. When passages is non-empty
// the grounded prompt with citation rules is used; otherwise the
// conversational prompt. History turns precede the question so the model
// sees the conversation so far.
//
// Tokens are forwarded to sink in order as they arrive; sink may be nil
// for non-streaming callers. The complete answer is returned either way.
// An empty final answer is a GenerationError.
func (g *Generator) Generate(ctx context.Context, question string, history []datatypes.ChatTurn, passages []datatypes.RetrievedPassage, sink TokenSink) (string, error) {
	ctx, span := pipelineTracer.Start(ctx, "Generator.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.Int("generation.num_passages", len(passages)),
		attribute.Int("generation.history_turns", len(history)),
	)

	messages := buildGenerationMessages(question, history, passages)

	var answer strings.Builder
	sinkFailed := false
	err := g.client.ChatStream(ctx, messages, llm.GenerationParams{
		Model:           g.model,
		ReasoningEffort: llm.ReasoningEffortMedium,
	}, func(event llm.StreamEvent) error {
		if event.Type != llm.StreamEventToken {
			return nil
		}
		answer.WriteString(event.Content)
		if sink != nil && !sinkFailed {
			if sinkErr := sink(event.Content); sinkErr != nil {
				// Keep accumulating so the turn still completes with a
				// full answer for history.
				sinkFailed = true
				slog.Warn("Token sink failed, continuing generation without forwarding", "error", sinkErr)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation stream failed")
		return "", &GenerationError{Message: "model stream failed", Err: err}
	}

	final := strings.TrimSpace(answer.String())
	if final == "" {
		span.SetStatus(codes.Error, "empty answer")
		return "", &GenerationError{Message: "model produced an empty answer"}
	}

	slog.Info("Answer generated", "length", len(final), "grounded", len(passages) > 0)
	return final, nil
}

// buildGenerationMessages assembles the chat transcript for the answer
// model. Passages are rendered with cleaned titles so the model never
// sees raw filenames.
func buildGenerationMessages(question string, history []datatypes.ChatTurn, passages []datatypes.RetrievedPassage) []datatypes.Message {
	messages := make([]datatypes.Message, 0, len(history)+3)

	if len(passages) > 0 {
		messages = append(messages, datatypes.Message{Role: "system", Content: generateSystemPrompt})
	} else {
		messages = append(messages, datatypes.Message{Role: "system", Content: generateNoDocsSystemPrompt})
	}

	for _, turn := range history {
		messages = append(messages, datatypes.Message{Role: turn.Role, Content: turn.Content})
	}

	if len(passages) > 0 {
		messages = append(messages, datatypes.Message{Role: "user", Content: formatPassages(passages)})
	}
	messages = append(messages, datatypes.Message{Role: "user", Content: question})
	return messages
}

// formatPassages renders the graded passages as a numbered context block.
// The numbering matches the citation indices the prompt asks for.
func formatPassages(passages []datatypes.RetrievedPassage) string {
	var b strings.Builder
	b.WriteString("Retrieved documents:\n")
	for i, p := range passages {
		title := FormatDocumentTitle(p.SourceName)
		fmt.Fprintf(&b, "\n[%d] %s, Page: %d\n%s\n", i+1, title, p.SourcePage, p.Content)
	}
	return b.String()
}
