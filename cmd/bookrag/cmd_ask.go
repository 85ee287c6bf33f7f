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
	"strings"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
	"github.com/AleutianAI/bookrag/services/bookrag/history"
	"github.com/AleutianAI/bookrag/services/bookrag/pipeline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// runAsk answers one question from the terminal, streaming tokens to
// stdout as they arrive. Passing --session reuses a stored conversation
// so follow-up questions keep their context.
func runAsk(cmd *cobra.Command, args []string) {
	question := strings.Join(args, " ")

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

	ctx := context.Background()
	historyStore := history.NewStore(weaviateClient)
	if err := historyStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure the conversation schema: %v", err)
	}

	session := sessionId
	var turns []datatypes.ChatTurn
	if session == "" {
		session = uuid.New().String()
	} else {
		turns, err = historyStore.Recent(ctx, session, cfg.History.Limit)
		if err != nil {
			log.Fatalf("Failed to load conversation history: %v", err)
		}
	}

	p := buildPipeline(cfg, b, weaviateClient)

	streamed := false
	state, err := p.Run(ctx, question, turns, func(token string) error {
		streamed = true
		fmt.Print(token)
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to answer: %v", err)
	}
	// The refusal route never streams; its answer only appears in the state.
	if !streamed {
		fmt.Print(state.Answer)
	}
	fmt.Println()

	if sources := datatypes.SourcesFromPassages(state.Passages); len(sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range sources {
			fmt.Printf("  [%d] %s, Page: %d\n", i+1, pipeline.FormatDocumentTitle(src.Source), src.Page)
		}
	}

	if err := historyStore.Append(ctx, session, question, state.Answer); err != nil {
		log.Printf("Failed to save the conversation turn: %v", err)
	}
	fmt.Printf("\nSession: %s\n", session)
}
