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
	"time"
)

// ClassificationError indicates the question classifier failed or returned
// output that could not be decoded. A turn that cannot be classified fails
// outright rather than silently skipping retrieval.
type ClassificationError struct {
	Message string
	Err     error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("classification failed: %s", e.Message)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// IsClassificationError checks if an error is a ClassificationError.
func IsClassificationError(err error) bool {
	var ce *ClassificationError
	return errors.As(err, &ce)
}

// RetrievalError indicates the vector store query failed.
type RetrievalError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed (status %d): %s", e.StatusCode, e.Message)
}

// IsRetrievalError checks if an error is a RetrievalError.
func IsRetrievalError(err error) bool {
	var re *RetrievalError
	return errors.As(err, &re)
}

// GradingError indicates every passage grading call failed, leaving
// nothing to ground an answer on.
type GradingError struct {
	Failed int
}

func (e *GradingError) Error() string {
	return fmt.Sprintf("grading failed for all %d passages", e.Failed)
}

// IsGradingError checks if an error is a GradingError.
func IsGradingError(err error) bool {
	var ge *GradingError
	return errors.As(err, &ge)
}

// GenerationError indicates answer generation failed or produced an empty
// answer.
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("generation failed: %s", e.Message)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsGenerationError checks if an error is a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// StreamTimeoutError indicates the consumer waited longer than the
// configured window for the next streamed item.
type StreamTimeoutError struct {
	Timeout time.Duration
}

func (e *StreamTimeoutError) Error() string {
	return fmt.Sprintf("stream timed out after %s waiting for the next chunk", e.Timeout)
}

// IsStreamTimeoutError checks if an error is a StreamTimeoutError.
func IsStreamTimeoutError(err error) bool {
	var se *StreamTimeoutError
	return errors.As(err, &se)
}
