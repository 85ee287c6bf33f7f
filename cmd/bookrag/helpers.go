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
	"fmt"
	"log/slog"

	"github.com/AleutianAI/bookrag/pkg/logging"
	"github.com/AleutianAI/bookrag/services/bookrag/config"
	"github.com/AleutianAI/bookrag/services/bookrag/pipeline"
	"github.com/AleutianAI/bookrag/services/llm"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

// backend pairs the reasoning and embedding sides of one provider. Both
// concrete clients implement both interfaces; the split keeps consumers
// honest about which half they use.
type backend struct {
	client   llm.Client
	embedder llm.Embedder
}

// loadConfig reads the config file named by --config plus environment
// overrides.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// setupLogging installs the configured logger as the process default.
func setupLogging(cfg *config.Config) *logging.Logger {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "bookrag",
		JSON:    cfg.Logging.JSON,
	})
	slog.SetDefault(logger.Slog())
	return logger
}

// buildBackend constructs the configured LLM provider.
func buildBackend(cfg *config.Config) (*backend, error) {
	switch cfg.LLM.Backend {
	case "openai":
		client, err := llm.NewOpenAIClient()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		slog.Info("Using OpenAI LLM backend")
		return &backend{client: client, embedder: client}, nil
	case "ollama":
		client := llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
		return &backend{client: client, embedder: client}, nil
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", cfg.LLM.Backend)
	}
}

// buildWeaviateClient connects to the configured Weaviate instance.
func buildWeaviateClient(cfg *config.Config) (*weaviate.Client, error) {
	client, err := weaviate.NewClient(weaviate.Config{
		Scheme: cfg.Weaviate.Scheme,
		Host:   cfg.Weaviate.Host,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Weaviate client for %s://%s: %w",
			cfg.Weaviate.Scheme, cfg.Weaviate.Host, err)
	}
	return client, nil
}

// buildPipeline wires the four stage pipeline from configuration.
func buildPipeline(cfg *config.Config, b *backend, weaviateClient *weaviate.Client) *pipeline.Pipeline {
	searcher := pipeline.NewWeaviateSearcher(weaviateClient, b.embedder, pipeline.RetrieverConfig{
		FetchK: cfg.Retrieval.FetchK,
		Lambda: cfg.Retrieval.Lambda,
	})
	return pipeline.New(b.client, searcher, pipeline.Config{
		Models: pipeline.Models{
			Classify: cfg.LLM.ClassifyModel,
			Grade:    cfg.LLM.GradeModel,
			Generate: cfg.LLM.GenerateModel,
		},
		K: cfg.Retrieval.K,
	})
}
