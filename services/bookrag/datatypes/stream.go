// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// StreamChunk is one item of the streaming chat response.
//
// # Description
//
// The streaming endpoint emits newline-delimited JSON objects, each of which
// is exactly one of:
//
//	{"answer": "<token-or-full-text>"}
//	{"error": "<message>"}
//
// The stream is terminated by connection closure after the bridge's terminal
// sentinel; no chunk follows an error chunk.
type StreamChunk struct {
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
}

// IsError reports whether the chunk carries an error payload.
func (c StreamChunk) IsError() bool {
	return c.Error != ""
}
