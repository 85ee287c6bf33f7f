// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package eval runs a fixed question set through the pipeline and records
// per-question results for offline review. Useful after re-ingesting the
// collection or changing models to spot regressions.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/AleutianAI/bookrag/services/bookrag/pipeline"
	"gopkg.in/yaml.v3"
)

// Question is one entry in the evaluation set.
type Question struct {
	Id       string `yaml:"id"`
	Question string `yaml:"question"`
}

type questionFile struct {
	Questions []Question `yaml:"questions"`
}

// Result records one evaluated question as a JSONL line.
type Result struct {
	Id         string `json:"id"`
	Question   string `json:"question"`
	Route      string `json:"route,omitempty"`
	Answer     string `json:"answer,omitempty"`
	Passages   int    `json:"passages"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	Total    int
	Failed   int
	Duration time.Duration
}

// Runner executes evaluation runs.
type Runner struct {
	pipeline *pipeline.Pipeline
}

// NewRunner creates a Runner. The pipeline is required.
func NewRunner(p *pipeline.Pipeline) *Runner {
	if p == nil {
		panic("eval.NewRunner: pipeline is required")
	}
	return &Runner{pipeline: p}
}

// Run reads the YAML question set at questionsPath, runs every question
// through the pipeline with empty history, and appends one JSON line per
// question to outPath. A failed question is recorded and the run
// continues.
func (r *Runner) Run(ctx context.Context, questionsPath, outPath string) (*Summary, error) {
	data, err := os.ReadFile(questionsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read question set %s: %w", questionsPath, err)
	}
	var qf questionFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("failed to parse question set %s: %w", questionsPath, err)
	}
	if len(qf.Questions) == 0 {
		return nil, fmt.Errorf("question set %s is empty", questionsPath)
	}

	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file %s: %w", outPath, err)
	}
	defer out.Close()
	enc := json.NewEncoder(out)

	started := time.Now()
	summary := &Summary{Total: len(qf.Questions)}

	for _, q := range qf.Questions {
		result := r.evalOne(ctx, q)
		if result.Error != "" {
			summary.Failed++
		}
		if err := enc.Encode(result); err != nil {
			return nil, fmt.Errorf("failed to write result for %s: %w", q.Id, err)
		}
	}

	summary.Duration = time.Since(started)
	slog.Info("Evaluation run complete",
		"total", summary.Total,
		"failed", summary.Failed,
		"duration", summary.Duration,
	)
	return summary, nil
}

func (r *Runner) evalOne(ctx context.Context, q Question) Result {
	started := time.Now()
	result := Result{Id: q.Id, Question: q.Question}

	state, err := r.pipeline.Run(ctx, q.Question, nil, nil)
	result.DurationMs = time.Since(started).Milliseconds()
	if state != nil && state.Classification != nil {
		result.Route = string(state.Classification.Route)
	}
	if err != nil {
		slog.Warn("Evaluation question failed", "id", q.Id, "error", err)
		result.Error = err.Error()
		return result
	}
	result.Answer = state.Answer
	result.Passages = len(state.Passages)
	return result
}
