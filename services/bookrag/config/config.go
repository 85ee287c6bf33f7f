// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads service configuration from a YAML file with
// environment variable overrides. Environment wins over file, file wins
// over defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var configValidate = validator.New()

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Weaviate  WeaviateConfig  `yaml:"weaviate"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Stream    StreamConfig    `yaml:"stream"`
	History   HistoryConfig   `yaml:"history"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

type ServerConfig struct {
	// Port the HTTP server listens on.
	Port int `yaml:"port" validate:"min=1,max=65535"`
}

type WeaviateConfig struct {
	// Scheme is http or https.
	Scheme string `yaml:"scheme" validate:"oneof=http https"`

	// Host is host:port of the Weaviate instance.
	Host string `yaml:"host" validate:"required"`
}

type LLMConfig struct {
	// Backend selects the provider: openai or ollama.
	Backend string `yaml:"backend" validate:"oneof=openai ollama"`

	// ClassifyModel handles question classification. Empty uses the
	// backend default model.
	ClassifyModel string `yaml:"classify_model"`

	// GradeModel handles passage grading.
	GradeModel string `yaml:"grade_model"`

	// GenerateModel handles answer generation.
	GenerateModel string `yaml:"generate_model"`
}

type RetrievalConfig struct {
	// K passages reach the grader per question.
	K int `yaml:"k" validate:"min=1"`

	// FetchK candidates are pulled from Weaviate before MMR selection.
	FetchK int `yaml:"fetch_k" validate:"min=1"`

	// Lambda balances similarity against diversity in MMR, in [0,1].
	Lambda float64 `yaml:"lambda" validate:"min=0,max=1"`
}

type StreamConfig struct {
	// TimeoutSeconds bounds the wait for each streamed chunk.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"min=1"`
}

func (s StreamConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type HistoryConfig struct {
	// Limit is how many prior turns a new question sees.
	Limit int `yaml:"limit" validate:"min=0"`
}

type IngestConfig struct {
	// ChunkSize is the target chunk length in characters.
	ChunkSize int `yaml:"chunk_size" validate:"min=100"`

	// ChunkOverlap is the overlap between adjacent chunks in characters.
	ChunkOverlap int `yaml:"chunk_overlap" validate:"min=0"`

	// Concurrency bounds concurrent embedding calls during ingest.
	Concurrency int `yaml:"concurrency" validate:"min=1"`
}

type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Dir enables file logging when set.
	Dir string `yaml:"dir"`

	// JSON switches stderr output to JSON.
	JSON bool `yaml:"json"`
}

type TracingConfig struct {
	// Enabled turns on OTLP trace export.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	Endpoint string `yaml:"endpoint"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080},
		Weaviate:  WeaviateConfig{Scheme: "http", Host: "localhost:8081"},
		LLM:       LLMConfig{Backend: "openai"},
		Retrieval: RetrievalConfig{K: 6, FetchK: 20, Lambda: 0.5},
		Stream:    StreamConfig{TimeoutSeconds: 60},
		History:   HistoryConfig{Limit: 10},
		Ingest:    IngestConfig{ChunkSize: 1000, ChunkOverlap: 200, Concurrency: 4},
		Logging:   LoggingConfig{Level: "info"},
		Tracing:   TracingConfig{Enabled: false, Endpoint: "localhost:4317"},
	}
}

// Load builds the configuration. A missing file is not an error; defaults
// plus environment overrides apply. An unreadable or invalid file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			slog.Warn("Config file not found, using defaults", "path", path)
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := configValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides file values from the environment.
func (c *Config) applyEnv() {
	envInt("BOOKRAG_PORT", &c.Server.Port)
	envString("WEAVIATE_SCHEME", &c.Weaviate.Scheme)
	envString("WEAVIATE_HOST", &c.Weaviate.Host)
	envString("LLM_BACKEND", &c.LLM.Backend)
	envString("CLASSIFY_MODEL", &c.LLM.ClassifyModel)
	envString("GRADE_MODEL", &c.LLM.GradeModel)
	envString("GENERATE_MODEL", &c.LLM.GenerateModel)
	envInt("RETRIEVAL_K", &c.Retrieval.K)
	envInt("RETRIEVAL_FETCH_K", &c.Retrieval.FetchK)
	envFloat("RETRIEVAL_LAMBDA", &c.Retrieval.Lambda)
	envInt("STREAM_TIMEOUT_SECONDS", &c.Stream.TimeoutSeconds)
	envInt("HISTORY_LIMIT", &c.History.Limit)
	envInt("INGEST_CHUNK_SIZE", &c.Ingest.ChunkSize)
	envInt("INGEST_CHUNK_OVERLAP", &c.Ingest.ChunkOverlap)
	envInt("INGEST_CONCURRENCY", &c.Ingest.Concurrency)
	envString("LOG_LEVEL", &c.Logging.Level)
	envString("LOG_DIR", &c.Logging.Dir)
	envBool("LOG_JSON", &c.Logging.JSON)
	envBool("OTEL_ENABLED", &c.Tracing.Enabled)
	envString("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.Endpoint)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Ignoring non-integer environment override", "key", key, "value", v)
		return
	}
	*dst = n
}

func envFloat(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("Ignoring non-numeric environment override", "key", key, "value", v)
		return
	}
	*dst = f
}

func envBool(key string, dst *bool) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("Ignoring non-boolean environment override", "key", key, "value", v)
		return
	}
	*dst = b
}
