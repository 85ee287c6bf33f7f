// Package llm provides clients for the reasoning/completion backends used by
// the BookRAG pipeline.
//
// A backend is anything that can turn a structured prompt into text: OpenAI's
// chat completion API or a local Ollama server. All pipeline stages consume
// the Client interface; the concrete backend is selected once at startup.
package llm

import (
	"context"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
)

// Reasoning effort levels accepted by backends that support them.
// Minimal is used for low-latency classification; medium for grading and
// answer generation. Backends without the concept ignore the field.
const (
	ReasoningEffortMinimal = "minimal"
	ReasoningEffortMedium  = "medium"
)

// GenerationParams tunes a single completion call. Nil pointer fields fall
// back to backend defaults.
type GenerationParams struct {
	Model           string   `json:"model,omitempty"`
	Temperature     *float32 `json:"temperature,omitempty"`
	TopP            *float32 `json:"top_p,omitempty"`
	MaxTokens       *int     `json:"max_tokens,omitempty"`
	Stop            []string `json:"stop,omitempty"`
	ReasoningEffort string   `json:"reasoning_effort,omitempty"`
}

// StreamEventType discriminates events delivered to a StreamCallback.
type StreamEventType string

const (
	// StreamEventToken carries one incremental output fragment.
	StreamEventToken StreamEventType = "token"

	// StreamEventDone marks the end of a successful stream.
	StreamEventDone StreamEventType = "done"
)

// StreamEvent is one event produced during streaming generation.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content,omitempty"`
}

// StreamCallback receives stream events in production order. Returning an
// error aborts the stream.
type StreamCallback func(event StreamEvent) error

// Client is the standard interface for a reasoning backend.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; one shared client serves
// all in-flight turns.
type Client interface {
	// Generate produces a completion for a bare prompt.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat produces a completion for a conversation and returns the full
	// answer atomically.
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)

	// ChatStream produces a completion for a conversation, delivering
	// incremental fragments to callback in production order. The callback is
	// invoked from the calling goroutine; a callback error aborts the stream
	// and is returned.
	ChatStream(ctx context.Context, messages []datatypes.Message, params GenerationParams, callback StreamCallback) error

	// CompleteStructured produces a completion constrained to a JSON object
	// and unmarshals it into out. A malformed or unparseable response is
	// returned as an error, never silently coerced.
	CompleteStructured(ctx context.Context, system, user string, params GenerationParams, out any) error
}

// Embedder turns text into a vector in the space of the document index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
