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

	"github.com/AleutianAI/bookrag/services/ingest"
	"github.com/spf13/cobra"
)

// runIngest loads every PDF under the given directory into Weaviate.
func runIngest(cmd *cobra.Command, args []string) {
	dir := args[0]

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

	ingestor := ingest.New(weaviateClient, b.embedder, ingest.Config{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		Concurrency:  cfg.Ingest.Concurrency,
	})

	report, err := ingestor.IngestDirectory(context.Background(), dir)
	if err != nil {
		log.Fatalf("Ingest failed: %v", err)
	}

	fmt.Printf("Ingested %d chunks from %d files in %s\n",
		report.Chunks, report.Files, report.Duration.Round(time.Second))
	for _, failed := range report.Failed {
		fmt.Printf("  failed: %s\n", failed)
	}
}
