// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"fmt"
)

// StreamCallback is called for each text fragment during streaming.
type StreamCallback func(token string, index int) error

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for the LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// CompleteStream sends a streaming completion request. Fragments are
	// delivered through the callback in decode order; the full accumulated
	// response is returned once the stream is exhausted.
	CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// APIError is a non-success vendor response, carrying the HTTP status and
// the raw vendor error body.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.Status, e.Body)
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderCompat    Provider = "compat"
)

// Registry holds the configured provider clients and resolves a model name
// to the client that serves it.
type Registry struct {
	clients []Client
	byName  map[string]Client
}

// NewRegistry creates a registry from the configured clients.
func NewRegistry(clients ...Client) *Registry {
	r := &Registry{byName: make(map[string]Client)}
	for _, c := range clients {
		if c == nil {
			continue
		}
		r.clients = append(r.clients, c)
		r.byName[c.Name()] = c
	}
	return r
}

// Default returns the first configured client.
func (r *Registry) Default() Client {
	if len(r.clients) == 0 {
		return nil
	}
	return r.clients[0]
}

// ForModel returns the client that serves the given model, falling back to
// the default client when no provider lists it.
func (r *Registry) ForModel(model string) Client {
	for _, c := range r.clients {
		for _, m := range c.Models() {
			if m == model {
				return c
			}
		}
	}
	return r.Default()
}

// ByName returns the client with the given provider name.
func (r *Registry) ByName(name string) (Client, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Models returns all models across configured providers.
func (r *Registry) Models() []string {
	var all []string
	for _, c := range r.clients {
		all = append(all, c.Models()...)
	}
	return all
}
