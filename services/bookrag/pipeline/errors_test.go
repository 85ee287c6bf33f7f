// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestErrorPredicates verifies each Is helper matches its own type and
// nothing else, including through wrapping.
func TestErrorPredicates(t *testing.T) {
	classification := &ClassificationError{Message: "bad json"}
	retrieval := &RetrievalError{StatusCode: 502, Message: "down"}
	grading := &GradingError{Failed: 3}
	generation := &GenerationError{Message: "empty"}
	timeout := &StreamTimeoutError{Timeout: time.Minute}

	assert.True(t, IsClassificationError(classification))
	assert.True(t, IsRetrievalError(retrieval))
	assert.True(t, IsGradingError(grading))
	assert.True(t, IsGenerationError(generation))
	assert.True(t, IsStreamTimeoutError(timeout))

	assert.False(t, IsClassificationError(retrieval))
	assert.False(t, IsRetrievalError(classification))
	assert.False(t, IsGradingError(generation))
	assert.False(t, IsGenerationError(grading))
	assert.False(t, IsStreamTimeoutError(nil))

	// Predicates see through wrapping.
	wrapped := fmt.Errorf("turn failed: %w", retrieval)
	assert.True(t, IsRetrievalError(wrapped))
}

// TestErrorUnwrap verifies the cause chain survives the typed wrappers.
func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")

	assert.ErrorIs(t, &ClassificationError{Message: "call failed", Err: cause}, cause)
	assert.ErrorIs(t, &GenerationError{Message: "stream failed", Err: cause}, cause)
}

// TestErrorMessages spot-checks the rendered messages.
func TestErrorMessages(t *testing.T) {
	assert.Contains(t, (&GradingError{Failed: 6}).Error(), "all 6 passages")
	assert.Contains(t, (&RetrievalError{StatusCode: 502, Message: "down"}).Error(), "status 502")
	assert.Contains(t, (&StreamTimeoutError{Timeout: time.Minute}).Error(), "1m0s")
}
