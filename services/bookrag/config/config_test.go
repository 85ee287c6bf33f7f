// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault verifies the built-in defaults validate and carry the
// documented values.
func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, configValidate.Struct(cfg))

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.LLM.Backend)
	assert.Equal(t, 6, cfg.Retrieval.K)
	assert.Equal(t, 20, cfg.Retrieval.FetchK)
	assert.Equal(t, 0.5, cfg.Retrieval.Lambda)
	assert.Equal(t, 60*time.Second, cfg.Stream.Timeout())
	assert.Equal(t, 10, cfg.History.Limit)
}

// TestLoad_MissingFileUsesDefaults verifies a missing config file is not
// an error.
func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does_not_exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

// TestLoad_FileOverridesDefaults verifies yaml values win over defaults.
func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
llm:
  backend: ollama
  generate_model: llama3.1
retrieval:
  k: 3
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "ollama", cfg.LLM.Backend)
	assert.Equal(t, "llama3.1", cfg.LLM.GenerateModel)
	assert.Equal(t, 3, cfg.Retrieval.K)
	// Untouched sections keep their defaults.
	assert.Equal(t, 20, cfg.Retrieval.FetchK)
}

// TestLoad_EnvOverridesFile verifies the environment wins over the file.
func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0644))

	t.Setenv("BOOKRAG_PORT", "7070")
	t.Setenv("LLM_BACKEND", "ollama")
	t.Setenv("RETRIEVAL_LAMBDA", "0.8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "ollama", cfg.LLM.Backend)
	assert.Equal(t, 0.8, cfg.Retrieval.Lambda)
}

// TestLoad_BadEnvValueIgnored verifies malformed overrides are dropped
// instead of failing startup.
func TestLoad_BadEnvValueIgnored(t *testing.T) {
	t.Setenv("BOOKRAG_PORT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

// TestLoad_InvalidConfigRejected verifies validation failures are load
// errors.
func TestLoad_InvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  backend: gemini\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

// TestLoad_MalformedYAMLRejected verifies parse failures are load errors.
func TestLoad_MalformedYAMLRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
