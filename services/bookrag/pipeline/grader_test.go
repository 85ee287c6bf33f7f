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
	"strings"
	"sync/atomic"
	"testing"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradeByContent returns a structuredFn that grades each passage by
// looking up its content in the table. Missing content fails the call.
func gradeByContent(table map[string]datatypes.Grade) func(system, user string, out any) error {
	return func(system, user string, out any) error {
		for content, grade := range table {
			if strings.Contains(user, content) {
				*out.(*datatypes.Grade) = grade
				return nil
			}
		}
		return errors.New("model unavailable")
	}
}

// TestGrader_SortsRelevantByOverallScore verifies that surviving passages
// come back ordered best first regardless of retrieval order.
func TestGrader_SortsRelevantByOverallScore(t *testing.T) {
	mock := &mockLLMClient{structuredFn: gradeByContent(map[string]datatypes.Grade{
		"passage one":   {Overall: 0.4, Relevant: true},
		"passage two":   {Overall: 0.9, Relevant: true},
		"passage three": {Overall: 0.7, Relevant: true},
	})}
	g := NewGrader(mock, "")

	kept, err := g.Grade(context.Background(), "question", []datatypes.RetrievedPassage{
		passage("passage one", "book_a.pdf", 1),
		passage("passage two", "book_b.pdf", 2),
		passage("passage three", "book_c.pdf", 3),
	})
	require.NoError(t, err)
	require.Len(t, kept, 3)

	assert.Equal(t, "passage two", kept[0].Content)
	assert.Equal(t, "passage three", kept[1].Content)
	assert.Equal(t, "passage one", kept[2].Content)
}

// TestGrader_FiltersIrrelevantPassages verifies that passages the model
// judged irrelevant never reach generation, whatever their score.
func TestGrader_FiltersIrrelevantPassages(t *testing.T) {
	mock := &mockLLMClient{structuredFn: gradeByContent(map[string]datatypes.Grade{
		"on topic":  {Overall: 0.8, Relevant: true},
		"off topic": {Overall: 0.9, Relevant: false},
	})}
	g := NewGrader(mock, "")

	kept, err := g.Grade(context.Background(), "question", []datatypes.RetrievedPassage{
		passage("on topic", "book_a.pdf", 1),
		passage("off topic", "book_b.pdf", 2),
	})
	require.NoError(t, err)
	require.Len(t, kept, 1)

	assert.Equal(t, "on topic", kept[0].Content)
	require.NotNil(t, kept[0].Grade)
	assert.Equal(t, 0.8, kept[0].Grade.Overall)
}

// TestGrader_PartialFailureDropsOnlyFailedPassage verifies failure
// isolation: one bad grading call costs one passage, not the batch.
func TestGrader_PartialFailureDropsOnlyFailedPassage(t *testing.T) {
	mock := &mockLLMClient{structuredFn: gradeByContent(map[string]datatypes.Grade{
		"good passage": {Overall: 0.8, Relevant: true},
		// "doomed passage" is absent, so its call fails.
	})}

	var failures atomic.Int64
	g := NewGrader(mock, "").WithFailureHook(func() { failures.Add(1) })

	kept, err := g.Grade(context.Background(), "question", []datatypes.RetrievedPassage{
		passage("good passage", "book_a.pdf", 1),
		passage("doomed passage", "book_b.pdf", 2),
	})
	require.NoError(t, err)

	require.Len(t, kept, 1)
	assert.Equal(t, "good passage", kept[0].Content)
	assert.Equal(t, int64(1), failures.Load())
}

// TestGrader_AllFailuresIsError verifies that losing every passage is a
// GradingError rather than a silent empty result.
func TestGrader_AllFailuresIsError(t *testing.T) {
	mock := &mockLLMClient{structuredFn: func(system, user string, out any) error {
		return errors.New("model unavailable")
	}}
	g := NewGrader(mock, "")

	kept, err := g.Grade(context.Background(), "question", []datatypes.RetrievedPassage{
		passage("one", "book_a.pdf", 1),
		passage("two", "book_b.pdf", 2),
	})
	require.Error(t, err)

	assert.Nil(t, kept)
	assert.True(t, IsGradingError(err))
	var gradingErr *GradingError
	require.ErrorAs(t, err, &gradingErr)
	assert.Equal(t, 2, gradingErr.Failed)
}

// TestGrader_EmptyInput verifies that grading nothing is not an error.
func TestGrader_EmptyInput(t *testing.T) {
	g := NewGrader(&mockLLMClient{}, "")

	kept, err := g.Grade(context.Background(), "question", nil)
	require.NoError(t, err)
	assert.Empty(t, kept)
}

// TestClampGrade verifies that out-of-range model scores are forced back
// into [0,1].
func TestClampGrade(t *testing.T) {
	grade := datatypes.Grade{
		Relevance:    1.2,
		Usefulness:   -0.3,
		Accuracy:     0.5,
		Completeness: 2.0,
		Clarity:      1.0,
		Overall:      -1.0,
	}
	clampGrade(&grade)

	assert.Equal(t, 1.0, grade.Relevance)
	assert.Equal(t, 0.0, grade.Usefulness)
	assert.Equal(t, 0.5, grade.Accuracy)
	assert.Equal(t, 1.0, grade.Completeness)
	assert.Equal(t, 1.0, grade.Clarity)
	assert.Equal(t, 0.0, grade.Overall)
}
