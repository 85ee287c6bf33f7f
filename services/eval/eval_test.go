// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package eval

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
	"github.com/AleutianAI/bookrag/services/bookrag/pipeline"
	"github.com/AleutianAI/bookrag/services/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalStubLLM answers every classification as direct and streams a fixed
// answer. Questions containing "fail" fail their classification call.
type evalStubLLM struct{}

func (evalStubLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	return "", nil
}

func (evalStubLLM) Chat(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams) (string, error) {
	return "", nil
}

func (evalStubLLM) ChatStream(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams, callback llm.StreamCallback) error {
	if err := callback(llm.StreamEvent{Type: llm.StreamEventToken, Content: "stub answer"}); err != nil {
		return err
	}
	return callback(llm.StreamEvent{Type: llm.StreamEventDone})
}

func (evalStubLLM) CompleteStructured(ctx context.Context, system, user string, params llm.GenerationParams, out any) error {
	if strings.Contains(user, "fail") {
		return errors.New("induced failure")
	}
	data, _ := json.Marshal(map[string]any{
		"retrieval_required":     false,
		"inappropriate_question": false,
		"improved_question":      "",
	})
	return json.Unmarshal(data, out)
}

type evalStubSearcher struct{}

func (evalStubSearcher) Search(ctx context.Context, query string, k int) ([]datatypes.RetrievedPassage, error) {
	return nil, nil
}

// TestRunner_Run verifies the run writes one JSON line per question and
// counts failures without aborting.
func TestRunner_Run(t *testing.T) {
	dir := t.TempDir()
	questionsPath := filepath.Join(dir, "questions.yaml")
	outPath := filepath.Join(dir, "results.jsonl")
	require.NoError(t, os.WriteFile(questionsPath, []byte(`
questions:
  - id: q1
    question: "hello"
  - id: q2
    question: "please fail this one"
  - id: q3
    question: "goodbye"
`), 0644))

	p := pipeline.New(evalStubLLM{}, evalStubSearcher{}, pipeline.DefaultConfig())
	runner := NewRunner(p)

	summary, err := runner.Run(context.Background(), questionsPath, outPath)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Failed)

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	var results []Result
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r Result
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		results = append(results, r)
	}
	require.Len(t, results, 3)

	assert.Equal(t, "q1", results[0].Id)
	assert.Equal(t, "stub answer", results[0].Answer)
	assert.Equal(t, "direct", results[0].Route)
	assert.Empty(t, results[0].Error)

	assert.Equal(t, "q2", results[1].Id)
	assert.NotEmpty(t, results[1].Error)
	assert.Empty(t, results[1].Answer)

	assert.Equal(t, "q3", results[2].Id)
	assert.Empty(t, results[2].Error)
}

// TestRunner_Run_EmptyQuestionSet verifies an empty set is an error.
func TestRunner_Run_EmptyQuestionSet(t *testing.T) {
	dir := t.TempDir()
	questionsPath := filepath.Join(dir, "questions.yaml")
	require.NoError(t, os.WriteFile(questionsPath, []byte("questions: []\n"), 0644))

	p := pipeline.New(evalStubLLM{}, evalStubSearcher{}, pipeline.DefaultConfig())
	_, err := NewRunner(p).Run(context.Background(), questionsPath, filepath.Join(dir, "out.jsonl"))
	assert.Error(t, err)
}

// TestRunner_Run_MissingQuestionFile verifies a bad path is an error.
func TestRunner_Run_MissingQuestionFile(t *testing.T) {
	p := pipeline.New(evalStubLLM{}, evalStubSearcher{}, pipeline.DefaultConfig())
	_, err := NewRunner(p).Run(context.Background(), "/does/not/exist.yaml", filepath.Join(t.TempDir(), "out.jsonl"))
	assert.Error(t, err)
}
