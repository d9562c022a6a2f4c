package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient talks to the Gemini API over raw HTTP. The streaming endpoint
// returns newline-delimited partial JSON rather than SSE framing; the shared
// stream decoder handles it with the Gemini extractor.
type GeminiClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(apiKey string, log *logger.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}

	return &GeminiClient{
		baseURL:    geminiBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		log:        log,
	}, nil
}

// Name returns the provider name.
func (c *GeminiClient) Name() string {
	return "gemini"
}

// Models returns available models.
func (c *GeminiClient) Models() []string {
	return []string{
		"gemini-1.5-pro",
		"gemini-1.5-flash",
		"gemini-1.5-flash-8b",
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
		Temperature     float64 `json:"temperature,omitempty"`
	} `json:"generationConfig"`
}

func (c *GeminiClient) buildRequest(req *CompletionRequest) *geminiRequest {
	out := &geminiRequest{}
	if req.System != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	for _, msg := range req.Messages {
		role := msg.Role
		// Gemini uses "model" for assistant turns.
		if role == "assistant" {
			role = "model"
		}
		out.Contents = append(out.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	out.GenerationConfig.MaxOutputTokens = req.MaxTokens
	out.GenerationConfig.Temperature = req.Temperature
	return out
}

func (c *GeminiClient) send(ctx context.Context, req *CompletionRequest, verb string) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// API key travels as a query parameter on this vendor.
	endpoint := fmt.Sprintf("%s/models/%s:%s?key=%s", c.baseURL, model, verb, url.QueryEscape(c.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &APIError{Provider: c.Name(), Status: resp.StatusCode, Body: string(errBody)}
	}

	return resp, nil
}

// Complete sends a non-streaming completion request.
func (c *GeminiClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	resp, err := c.send(ctx, req, "generateContent")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []geminiPart `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var content, stopReason string
	if len(parsed.Candidates) > 0 {
		for _, part := range parsed.Candidates[0].Content.Parts {
			content += part.Text
		}
		stopReason = parsed.Candidates[0].FinishReason
	}

	return &CompletionResponse{
		Content:    content,
		Model:      model,
		TokensIn:   parsed.UsageMetadata.PromptTokenCount,
		TokensOut:  parsed.UsageMetadata.CandidatesTokenCount,
		StopReason: stopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// CompleteStream sends a streaming completion request, decoding the
// newline-delimited partial-JSON framing incrementally.
func (c *GeminiClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	resp, err := c.send(ctx, req, "streamGenerateContent")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	decoder := NewStreamDecoder(c.Name(), GeminiExtractor, c.log)
	content, err := DecodeStream(ctx, resp.Body, decoder, callback)
	if err != nil {
		return nil, err
	}

	return &CompletionResponse{
		Content:    content,
		Model:      model,
		TokensOut:  len(content) / 4,
		StopReason: "stop",
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}
