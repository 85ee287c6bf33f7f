// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AleutianAI/bookrag/services/eval"
	"github.com/spf13/cobra"
)

// runEval executes the question set and appends one JSON line per
// question to the --out file.
func runEval(cmd *cobra.Command, args []string) {
	questionsPath := args[0]

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := setupLogging(cfg)
	defer logger.Close()

	b, err := buildBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	weaviateClient, err := buildWeaviateClient(cfg)
	if err != nil {
		log.Fatalf("Failed to create Weaviate client: %v", err)
	}

	runner := eval.NewRunner(buildPipeline(cfg, b, weaviateClient))
	summary, err := runner.Run(context.Background(), questionsPath, evalOut)
	if err != nil {
		log.Fatalf("Evaluation run failed: %v", err)
	}

	fmt.Printf("Evaluated %d questions (%d failed) in %s\nResults: %s\n",
		summary.Total, summary.Failed, summary.Duration.Round(time.Second), evalOut)
}
