package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
)

// CompatClient talks to any OpenAI-compatible chat-completions endpoint
// (OpenRouter, DeepSeek, local inference servers) over raw HTTP, using the
// shared stream decoder with the SSE framing.
type CompatClient struct {
	baseURL    string
	apiKey     string
	models     []string
	httpClient *http.Client
	log        *logger.Logger
}

// NewCompatClient creates a client for an OpenAI-compatible endpoint.
func NewCompatClient(baseURL, apiKey string, models []string, log *logger.Logger) (*CompatClient, error) {
	if apiKey == "" {
		return nil, errors.New("compat API key is required")
	}
	if baseURL == "" {
		return nil, errors.New("compat base URL is required")
	}
	if len(models) == 0 {
		models = []string{"deepseek/deepseek-chat"}
	}

	return &CompatClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		models:  models,
		httpClient: &http.Client{
			// No overall timeout: streams can legitimately run for minutes.
			// Cancellation is handled through the request context.
			Timeout: 0,
		},
		log: log,
	}, nil
}

// Name returns the provider name.
func (c *CompatClient) Name() string {
	return "compat"
}

// Models returns available models.
func (c *CompatClient) Models() []string {
	return c.models
}

type compatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

func (c *CompatClient) buildMessages(req *CompletionRequest) []ChatMessage {
	messages := make([]ChatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: req.System})
	}
	return append(messages, req.Messages...)
}

func (c *CompatClient) send(ctx context.Context, req *CompletionRequest, stream bool) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = c.models[0]
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	body, err := json.Marshal(compatRequest{
		Model:       model,
		Messages:    c.buildMessages(req),
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &APIError{Provider: c.Name(), Status: resp.StatusCode, Body: string(errBody)}
	}
	if resp.Body == nil {
		return nil, &APIError{Provider: c.Name(), Status: resp.StatusCode, Body: "empty response body"}
	}

	return resp, nil
}

// Complete sends a non-streaming completion request.
func (c *CompatClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := c.send(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var content, stopReason string
	if len(parsed.Choices) > 0 {
		content = parsed.Choices[0].Message.Content
		stopReason = parsed.Choices[0].FinishReason
	}

	return &CompletionResponse{
		Content:    content,
		Model:      parsed.Model,
		TokensIn:   parsed.Usage.PromptTokens,
		TokensOut:  parsed.Usage.CompletionTokens,
		StopReason: stopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// CompleteStream sends a streaming completion request, decoding the SSE
// framing incrementally.
func (c *CompatClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.models[0]
	}

	resp, err := c.send(ctx, req, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	decoder := NewStreamDecoder(c.Name(), SSEExtractor, c.log)
	content, err := DecodeStream(ctx, resp.Body, decoder, callback)
	if err != nil {
		return nil, err
	}

	// Streaming responses carry no usage block; estimate from length.
	tokensOut := len(content) / 4

	return &CompletionResponse{
		Content:    content,
		Model:      model,
		TokensOut:  tokensOut,
		StopReason: "stop",
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}
