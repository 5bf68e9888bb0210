package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAICompatProvider implements Provider for any OpenAI-compatible chat
// completions endpoint (Groq, Cerebras, OpenAI itself).
type OpenAICompatProvider struct {
	name   string
	model  string
	client *openai.Client
}

// NewOpenAICompatProvider creates a provider against the given base URL.
func NewOpenAICompatProvider(name, model, apiKey, baseURL string) *OpenAICompatProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAICompatProvider{
		name:   name,
		model:  model,
		client: &client,
	}
}

// Name returns the provider name
func (p *OpenAICompatProvider) Name() string {
	return p.name
}

// Complete performs a single chat completion.
func (p *OpenAICompatProvider) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	transaction := sentry.StartTransaction(ctx, "llm.complete")
	transaction.SetTag("provider", p.name)
	transaction.SetTag("model", p.model)
	defer transaction.Finish()

	log.Printf("📨 LLM Complete: provider=%s model=%s prompt_len=%d", p.name, p.model, len(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	span := transaction.StartChild("llm.api_call")
	resp, err := p.client.Chat.Completions.New(ctx, params)
	span.Finish()

	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			var headers http.Header
			if apiErr.Response != nil {
				headers = apiErr.Response.Header
			}
			rle := &RateLimitError{
				Provider:   p.name,
				RetryAfter: retryAfterFromHeaders(headers),
			}
			log.Printf("⏳ LLM Complete: %s rate limited, retry after %s", p.name, rle.RetryAfter)
			return nil, rle
		}

		log.Printf("❌ LLM Complete: %s error: %v", p.name, err)
		sentry.CaptureException(err)
		return nil, fmt.Errorf("%s completion failed: %w", p.name, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%s returned empty response", p.name)
	}

	usage := Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}

	log.Printf("✅ LLM Complete: provider=%s tokens=%d duration=%dms",
		p.name, usage.TotalTokens, time.Since(start).Milliseconds())

	return &ChatResponse{
		Content: resp.Choices[0].Message.Content,
		Usage:   usage,
	}, nil
}
