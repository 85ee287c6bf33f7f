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
	"sync"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
	"github.com/AleutianAI/bookrag/services/llm"
)

// =============================================================================
// Shared Mocks
// =============================================================================

// mockLLMClient implements llm.Client for pipeline testing. Behavior is
// injected per structured prompt and per stream so one mock can serve the
// classifier, grader, and generator in the same test.
type mockLLMClient struct {
	mu sync.Mutex

	// structuredFn handles CompleteStructured calls. The system prompt
	// identifies the caller.
	structuredFn func(system, user string, out any) error

	// streamTokens are emitted one per callback by ChatStream.
	streamTokens []string

	// streamErr is returned by ChatStream instead of streaming.
	streamErr error

	// structuredCalls records the user prompts passed to CompleteStructured.
	structuredCalls []string

	// streamedMessages records the transcripts passed to ChatStream.
	streamedMessages [][]datatypes.Message
}

func (m *mockLLMClient) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	return "", nil
}

func (m *mockLLMClient) Chat(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams) (string, error) {
	return "", nil
}

func (m *mockLLMClient) ChatStream(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams, callback llm.StreamCallback) error {
	m.mu.Lock()
	m.streamedMessages = append(m.streamedMessages, messages)
	m.mu.Unlock()

	if m.streamErr != nil {
		return m.streamErr
	}
	for _, token := range m.streamTokens {
		if err := callback(llm.StreamEvent{Type: llm.StreamEventToken, Content: token}); err != nil {
			return err
		}
	}
	return callback(llm.StreamEvent{Type: llm.StreamEventDone})
}

func (m *mockLLMClient) CompleteStructured(ctx context.Context, system, user string, params llm.GenerationParams, out any) error {
	m.mu.Lock()
	m.structuredCalls = append(m.structuredCalls, user)
	m.mu.Unlock()

	if m.structuredFn == nil {
		return nil
	}
	return m.structuredFn(system, user, out)
}

func (m *mockLLMClient) streamCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streamedMessages)
}

// classifyAs returns a structuredFn that answers classification prompts
// with a fixed verdict and fails anything else.
func classifyAs(retrieval, inappropriate bool, improved string) func(system, user string, out any) error {
	return func(system, user string, out any) error {
		c := out.(*classifierOutput)
		c.RetrievalRequired = retrieval
		c.InappropriateQuestion = inappropriate
		c.ImprovedQuestion = improved
		return nil
	}
}

// mockSearcher implements Searcher with canned passages.
type mockSearcher struct {
	mu       sync.Mutex
	passages []datatypes.RetrievedPassage
	err      error

	lastQuery string
	lastK     int
	calls     int
}

func (m *mockSearcher) Search(ctx context.Context, query string, k int) ([]datatypes.RetrievedPassage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = query
	m.lastK = k
	m.calls++
	return m.passages, m.err
}

func passage(content, source string, page int) datatypes.RetrievedPassage {
	return datatypes.RetrievedPassage{Content: content, SourceName: source, SourcePage: page}
}
