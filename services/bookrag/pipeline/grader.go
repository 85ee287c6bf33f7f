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
	"sort"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
	"github.com/AleutianAI/bookrag/services/llm"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Grader scores retrieved passages against the question, one model call
// per passage, all in flight concurrently.
type Grader struct {
	client llm.Client
	model  string

	// onFailure is called once per passage whose grading call failed.
	// Used for metrics; may be nil.
	onFailure func()
}

// NewGrader creates a Grader. The client is required.
func NewGrader(client llm.Client, model string) *Grader {
	if client == nil {
		panic("NewGrader: llm client is required")
	}
	return &Grader{client: client, model: model}
}

// WithFailureHook sets a callback invoked for each passage grading
// failure and returns the grader for chaining.
func (g *Grader) WithFailureHook(hook func()) *Grader {
	g.onFailure = hook
	return g
}

// Grade fans out one grading call per passage and returns the passages
// the model judged relevant, ordered by overall score descending. Ties
// keep their retrieval order.
//
// A failed grading call drops only that passage; the rest of the batch is
// unaffected. Grade only errors when every passage failed, since an answer
// grounded on zero surviving passages would be indistinguishable from the
// no-documents path.
func (g *Grader) Grade(ctx context.Context, question string, passages []datatypes.RetrievedPassage) ([]datatypes.RetrievedPassage, error) {
	ctx, span := pipelineTracer.Start(ctx, "Grader.Grade")
	defer span.End()
	span.SetAttributes(attribute.Int("grading.num_passages", len(passages)))

	if len(passages) == 0 {
		return nil, nil
	}

	graded := make([]*datatypes.Grade, len(passages))
	gradeErrs := make([]error, len(passages))

	// Closures always return nil so one failure does not cancel the
	// sibling calls.
	var group errgroup.Group
	for i := range passages {
		group.Go(func() error {
			grade, err := g.gradeOne(ctx, question, passages[i].Content)
			if err != nil {
				gradeErrs[i] = err
				return nil
			}
			graded[i] = grade
			return nil
		})
	}
	_ = group.Wait()

	failures := 0
	kept := make([]datatypes.RetrievedPassage, 0, len(passages))
	for i, passage := range passages {
		if gradeErrs[i] != nil {
			failures++
			if g.onFailure != nil {
				g.onFailure()
			}
			slog.Warn("Passage grading failed, dropping passage",
				"source", passage.SourceName,
				"page", passage.SourcePage,
				"error", gradeErrs[i],
			)
			continue
		}
		passage.Grade = graded[i]
		if graded[i].Relevant {
			kept = append(kept, passage)
		}
	}

	if failures == len(passages) {
		span.SetAttributes(attribute.Int("grading.failures", failures))
		return nil, &GradingError{Failed: failures}
	}

	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].Grade.Overall > kept[b].Grade.Overall
	})

	span.SetAttributes(
		attribute.Int("grading.failures", failures),
		attribute.Int("grading.kept", len(kept)),
	)
	slog.Info("Passages graded", "total", len(passages), "kept", len(kept), "failures", failures)
	return kept, nil
}

func (g *Grader) gradeOne(ctx context.Context, question, content string) (*datatypes.Grade, error) {
	user := fmt.Sprintf("Question:\n%s\n\nDocument:\n%s", question, content)

	var grade datatypes.Grade
	temperature := float32(0)
	err := g.client.CompleteStructured(ctx, gradeSystemPrompt, user, llm.GenerationParams{
		Model:           g.model,
		Temperature:     &temperature,
		ReasoningEffort: llm.ReasoningEffortMedium,
	}, &grade)
	if err != nil {
		return nil, err
	}

	clampGrade(&grade)
	return &grade, nil
}

// clampGrade forces every dimension into [0,1]. Models occasionally emit
// scores like 1.2 despite the prompt's bounds.
func clampGrade(grade *datatypes.Grade) {
	for _, field := range []*float64{
		&grade.Relevance, &grade.Usefulness, &grade.Accuracy,
		&grade.Completeness, &grade.Clarity, &grade.Overall,
	} {
		if *field < 0 {
			*field = 0
		}
		if *field > 1 {
			*field = 1
		}
	}
}
