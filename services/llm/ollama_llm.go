package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/AleutianAI/bookrag/services/bookrag/datatypes"
)

// OllamaClient implements Client and Embedder against a local Ollama server.
type OllamaClient struct {
	baseURL        string
	model          string
	embeddingModel string
	httpClient     *http.Client
}

// NewOllamaClient creates an Ollama-backed client.
//
// The server address comes from OLLAMA_HOST (default http://localhost:11434),
// the default chat model from OLLAMA_MODEL, and the embedding model from
// OLLAMA_EMBEDDING_MODEL.
func NewOllamaClient() *OllamaClient {
	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
		slog.Warn("OLLAMA_HOST not set, defaulting to local server", "url", baseURL)
	}
	model := os.Getenv("OLLAMA_MODEL")
	if model == "" {
		model = "llama3.1"
		slog.Warn("OLLAMA_MODEL not set, defaulting to llama3.1")
	}
	embeddingModel := os.Getenv("OLLAMA_EMBEDDING_MODEL")
	if embeddingModel == "" {
		embeddingModel = "nomic-embed-text"
	}
	slog.Info("Initializing Ollama client", "url", baseURL, "model", model, "embedding_model", embeddingModel)
	return &OllamaClient{
		baseURL:        baseURL,
		model:          model,
		embeddingModel: embeddingModel,
		httpClient:     &http.Client{Timeout: 300 * time.Second},
	}
}

type ollamaOptions struct {
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaChatRequest struct {
	Model    string             `json:"model"`
	Messages []datatypes.Message `json:"messages"`
	Stream   bool               `json:"stream"`
	Format   string             `json:"format,omitempty"`
	Options  *ollamaOptions     `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message datatypes.Message `json:"message"`
	Done    bool              `json:"done"`
	Error   string            `json:"error,omitempty"`
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (o *OllamaClient) resolveModel(params GenerationParams) string {
	if params.Model != "" {
		return params.Model
	}
	return o.model
}

func buildOllamaOptions(params GenerationParams) *ollamaOptions {
	if params.Temperature == nil && params.TopP == nil && params.MaxTokens == nil && len(params.Stop) == 0 {
		return nil
	}
	return &ollamaOptions{
		Temperature: params.Temperature,
		TopP:        params.TopP,
		NumPredict:  params.MaxTokens,
		Stop:        params.Stop,
	}
}

// post sends a JSON request body to the given API path and returns the
// response body. The caller owns closing the body.
func (o *OllamaClient) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Ollama request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Ollama request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var errBody bytes.Buffer
		errBody.ReadFrom(resp.Body)
		return nil, fmt.Errorf("Ollama returned status %d: %s", resp.StatusCode, errBody.String())
	}
	return resp, nil
}

// Generate implements the Client interface.
func (o *OllamaClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return o.Chat(ctx, []datatypes.Message{{Role: "user", Content: prompt}}, params)
}

// Chat implements the Client interface.
func (o *OllamaClient) Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error) {
	resp, err := o.post(ctx, "/api/chat", ollamaChatRequest{
		Model:    o.resolveModel(params),
		Messages: messages,
		Stream:   false,
		Options:  buildOllamaOptions(params),
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode Ollama response: %w", err)
	}
	if chatResp.Error != "" {
		return "", fmt.Errorf("Ollama error: %s", chatResp.Error)
	}
	return chatResp.Message.Content, nil
}

// ChatStream implements the Client interface.
//
// Ollama streams responses as newline-delimited JSON objects; each object's
// message content is forwarded to callback as a token event.
func (o *OllamaClient) ChatStream(ctx context.Context, messages []datatypes.Message, params GenerationParams, callback StreamCallback) error {
	resp, err := o.post(ctx, "/api/chat", ollamaChatRequest{
		Model:    o.resolveModel(params),
		Messages: messages,
		Stream:   true,
		Options:  buildOllamaOptions(params),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			slog.Warn("Skipping malformed Ollama stream chunk", "error", err)
			continue
		}
		if chunk.Error != "" {
			return fmt.Errorf("Ollama error mid-stream: %s", chunk.Error)
		}
		if chunk.Message.Content != "" {
			if err := callback(StreamEvent{Type: StreamEventToken, Content: chunk.Message.Content}); err != nil {
				return fmt.Errorf("stream callback aborted: %w", err)
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("Ollama stream read failed: %w", err)
	}
	return callback(StreamEvent{Type: StreamEventDone})
}

// CompleteStructured implements the Client interface.
//
// Ollama's format=json mode constrains the model to emit a single JSON
// object, which is then decoded into out.
func (o *OllamaClient) CompleteStructured(ctx context.Context, system, user string, params GenerationParams, out any) error {
	content, err := o.chatWithFormat(ctx, []datatypes.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, params, "json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("malformed structured output from Ollama: %w", err)
	}
	return nil
}

func (o *OllamaClient) chatWithFormat(ctx context.Context, messages []datatypes.Message, params GenerationParams, format string) (string, error) {
	resp, err := o.post(ctx, "/api/chat", ollamaChatRequest{
		Model:    o.resolveModel(params),
		Messages: messages,
		Stream:   false,
		Format:   format,
		Options:  buildOllamaOptions(params),
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode Ollama response: %w", err)
	}
	if chatResp.Error != "" {
		return "", fmt.Errorf("Ollama error: %s", chatResp.Error)
	}
	return chatResp.Message.Content, nil
}

// Embed implements the Embedder interface.
func (o *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.post(ctx, "/api/embeddings", ollamaEmbeddingRequest{
		Model:  o.embeddingModel,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var embResp ollamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("failed to decode Ollama embedding response: %w", err)
	}
	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("Ollama returned an empty embedding")
	}
	return embResp.Embedding, nil
}
