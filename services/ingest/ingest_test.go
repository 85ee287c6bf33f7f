// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tmc/langchaingo/schema"
)

// TestPageOf verifies page extraction across the metadata value types the
// PDF loader produces.
func TestPageOf(t *testing.T) {
	assert.Equal(t, 7, pageOf(schema.Document{Metadata: map[string]any{"page": 7}}))
	assert.Equal(t, 12, pageOf(schema.Document{Metadata: map[string]any{"page": float64(12)}}))
	assert.Equal(t, 0, pageOf(schema.Document{Metadata: map[string]any{"page": "twelve"}}))
	assert.Equal(t, 0, pageOf(schema.Document{Metadata: map[string]any{}}))
	assert.Equal(t, 0, pageOf(schema.Document{}))
}

// TestDefaultConfig pins the chunking defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 4, cfg.Concurrency)
}

// TestNew_NilDependenciesPanic verifies the constructor contract.
func TestNew_NilDependenciesPanic(t *testing.T) {
	assert.Panics(t, func() { New(nil, nil, DefaultConfig()) })
}
