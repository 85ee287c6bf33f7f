// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
)

// ChunkWriter defines the contract for writing newline-delimited JSON
// chunks to a streaming HTTP response.
//
// # Description
//
// The stream wire format is one JSON object per line: answer chunks as
// {"answer":"..."} and at most one terminal {"error":"..."}. Each write
// flushes immediately so tokens reach the client as they arrive.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the handler and the
// timeout path may both attempt writes.
type ChunkWriter interface {
	// WriteChunk serializes one chunk as a JSON line and flushes.
	WriteChunk(chunk datatypes.StreamChunk) error

	// WriteAnswer writes an answer chunk with the given content.
	WriteAnswer(content string) error

	// WriteError writes an error chunk. The message must already be
	// sanitized; internal details stay in the logs.
	WriteError(errMsg string) error
}

// ndjsonChunkWriter writes chunks to an http.ResponseWriter with
// immediate flushing.
type ndjsonChunkWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// NewChunkWriter creates a ChunkWriter over the response. Returns an
// error if the ResponseWriter does not support flushing, since buffered
// output would defeat streaming entirely.
func NewChunkWriter(w http.ResponseWriter) (ChunkWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	return &ndjsonChunkWriter{w: w, flusher: flusher}, nil
}

func (n *ndjsonChunkWriter) WriteChunk(chunk datatypes.StreamChunk) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal stream chunk: %w", err)
	}
	if _, err := n.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write stream chunk: %w", err)
	}
	n.flusher.Flush()
	return nil
}

func (n *ndjsonChunkWriter) WriteAnswer(content string) error {
	return n.WriteChunk(datatypes.StreamChunk{Answer: content})
}

func (n *ndjsonChunkWriter) WriteError(errMsg string) error {
	return n.WriteChunk(datatypes.StreamChunk{Error: errMsg})
}
