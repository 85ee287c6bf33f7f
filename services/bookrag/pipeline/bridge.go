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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
)

// DefaultStreamTimeout is how long a consumer waits for the next chunk
// before giving up on the turn.
const DefaultStreamTimeout = 60 * time.Second

// streamBuffer decouples the worker from a slow consumer for short bursts.
const streamBuffer = 64

// RunFunc executes one pipeline turn, forwarding tokens to sink.
type RunFunc func(ctx context.Context, sink TokenSink) (*datatypes.PipelineState, error)

// Stream bridges a pipeline run to a chunk-at-a-time consumer.
//
// A background worker executes the run and pushes chunks onto a buffered
// channel. Channel close is the single termination signal: after the last
// chunk (answer tokens, a whole-answer fallback, or one error chunk) the
// channel closes and Next reports completion.
//
// If the consumer stops reading (timeout, client gone), Abandon lets the
// worker finish detached: sends fail fast, the run completes, and whatever
// side effects the run closure carries (history persistence) still happen.
type Stream struct {
	items       chan datatypes.StreamChunk
	quit        chan struct{}
	abandonOnce sync.Once
	timeout     time.Duration
}

// StartStream launches the worker for one turn.
//
// The timeout bounds each Next call, not the whole turn; a turn streaming
// steadily can run arbitrarily long. A non-positive timeout uses
// DefaultStreamTimeout.
func StartStream(ctx context.Context, timeout time.Duration, run RunFunc) *Stream {
	if timeout <= 0 {
		timeout = DefaultStreamTimeout
	}
	s := &Stream{
		items:   make(chan datatypes.StreamChunk, streamBuffer),
		quit:    make(chan struct{}),
		timeout: timeout,
	}
	go s.worker(ctx, run)
	return s
}

func (s *Stream) worker(ctx context.Context, run RunFunc) {
	defer close(s.items)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Pipeline worker panicked", "panic", r)
			s.send(datatypes.StreamChunk{Error: fmt.Sprintf("internal error: %v", r)})
		}
	}()

	tokensSent := false
	state, err := run(ctx, func(token string) error {
		if token == "" {
			return nil
		}
		if !s.send(datatypes.StreamChunk{Answer: token}) {
			return errors.New("stream consumer gone")
		}
		tokensSent = true
		return nil
	})
	if err != nil {
		s.send(datatypes.StreamChunk{Error: PublicError(err)})
		return
	}

	// Refusals and non-streaming backends produce zero tokens; emit the
	// complete answer as one chunk so the consumer still gets it.
	if !tokensSent && state != nil && state.Answer != "" {
		s.send(datatypes.StreamChunk{Answer: state.Answer})
	}
}

// send delivers a chunk unless the stream was abandoned.
func (s *Stream) send(chunk datatypes.StreamChunk) bool {
	select {
	case s.items <- chunk:
		return true
	case <-s.quit:
		return false
	}
}

// Next returns the next chunk. ok is false with a nil error when the
// stream completed normally. A consumer that waits longer than the
// configured timeout gets a StreamTimeoutError; it should then call
// Abandon and stop reading.
func (s *Stream) Next() (chunk datatypes.StreamChunk, ok bool, err error) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case chunk, open := <-s.items:
		if !open {
			return datatypes.StreamChunk{}, false, nil
		}
		return chunk, true, nil
	case <-timer.C:
		return datatypes.StreamChunk{}, false, &StreamTimeoutError{Timeout: s.timeout}
	}
}

// Abandon detaches the consumer. The worker keeps running to completion
// but its sends return immediately. Safe to call more than once.
func (s *Stream) Abandon() {
	s.abandonOnce.Do(func() {
		close(s.quit)
	})
}

// PublicError maps a pipeline error to a message safe to show users.
// Internal details stay in the logs.
func PublicError(err error) string {
	switch {
	case IsClassificationError(err):
		return "Sorry, I couldn't understand your question right now. Please try again."
	case IsRetrievalError(err):
		return "Sorry, I couldn't search your book collection right now. Please try again."
	case IsGradingError(err):
		return "Sorry, I couldn't evaluate the retrieved passages right now. Please try again."
	case IsGenerationError(err):
		return "Sorry, I couldn't generate an answer right now. Please try again."
	case IsStreamTimeoutError(err):
		return "The response timed out. Please try again."
	default:
		return "Sorry, something went wrong. Please try again."
	}
}
