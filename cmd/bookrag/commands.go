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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string
	sessionId  string // ask: reuse a conversation across invocations
	evalOut    string

	rootCmd = &cobra.Command{
		Use:   "bookrag",
		Short: "A cli to run and manage the BookRAG question answering service",
		Long: `BookRAG answers questions about a personal book collection.
Books are ingested as PDFs into Weaviate; questions are classified,
grounded on retrieved passages, and answered by an LLM backend.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the BookRAG HTTP server",
		Run:   runServe, // Defined in cmd_serve.go
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question against the ingested collection",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAsk, // Defined in cmd_ask.go
	}

	ingestCmd = &cobra.Command{
		Use:     "ingest [directory]",
		Short:   "Ingest PDF books from a directory into the vector store",
		Aliases: []string{"i"},
		Args:    cobra.ExactArgs(1),
		Run:     runIngest, // Defined in cmd_ingest.go
	}

	evalCmd = &cobra.Command{
		Use:   "eval [question_set.yaml]",
		Short: "Run an evaluation question set and write JSONL results",
		Args:  cobra.ExactArgs(1),
		Run:   runEval, // Defined in cmd_eval.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml",
		"Path to the configuration file")

	askCmd.Flags().StringVar(&sessionId, "session", "",
		"Session id to continue a prior conversation")
	evalCmd.Flags().StringVar(&evalOut, "out", "eval_results.jsonl",
		"Path of the JSONL results file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(evalCmd)
}
