// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command bookrag is the CLI for the BookRAG service: a question answering
// server over a personal book collection stored in Weaviate.
//
// # Subcommands
//
//   - serve:  start the HTTP server
//   - ask:    ask a single question from the terminal
//   - ingest: load PDFs into the vector store
//   - eval:   run a question set through the pipeline and record results
//
// # Environment Variables
//
//   - OPENAI_API_KEY:           required for the openai backend
//   - OLLAMA_HOST:              Ollama base URL (default: http://localhost:11434)
//   - WEAVIATE_HOST:            Weaviate host:port (default: localhost:8081)
//   - BOOKRAG_PORT:             HTTP server port (default: 8080)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector address
//
// A .env file in the working directory is loaded before anything else, so
// local development does not need exported variables.
package main

import (
	"log"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is the normal production case.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
