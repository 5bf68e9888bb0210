package llm

import "context"

// ChatRequest is a single-turn chat completion request.
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// Usage holds token usage stats from a completion.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// ChatResponse is the model output for a ChatRequest.
type ChatResponse struct {
	Content string
	Usage   Usage
}

// Provider defines the interface for chat completion providers
type Provider interface {
	// Complete performs a chat completion. A provider that is rate limited
	// returns a *RateLimitError and never sleeps.
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Name returns the provider name (e.g., "groq", "cerebras")
	Name() string
}
