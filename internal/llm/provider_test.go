package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProvider is a mock implementation of the Provider interface for testing
type MockProvider struct {
	CompleteFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	NameFunc     func() string
}

func (m *MockProvider) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &ChatResponse{Content: "mock response"}, nil
}

func (m *MockProvider) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock"
}

func TestMockProviderImplementsInterface(t *testing.T) {
	var _ Provider = (*MockProvider)(nil)
}

func TestFactoryGroq(t *testing.T) {
	factory := NewProviderFactory("gsk_test", "llama-3.3-70b-versatile", "", "")

	p, err := factory.GetProvider("groq")
	require.NoError(t, err)
	assert.Equal(t, "groq", p.Name())
}

func TestFactoryCerebras(t *testing.T) {
	factory := NewProviderFactory("", "", "csk_test", "llama-3.3-70b")

	p, err := factory.GetProvider("cerebras")
	require.NoError(t, err)
	assert.Equal(t, "cerebras", p.Name())
}

func TestFactoryMissingKey(t *testing.T) {
	factory := NewProviderFactory("", "", "", "")

	_, err := factory.GetProvider("groq")
	assert.Error(t, err)

	_, err = factory.GetProvider("cerebras")
	assert.Error(t, err)
}

func TestFactoryUnknownProvider(t *testing.T) {
	factory := NewProviderFactory("key", "model", "key", "model")

	_, err := factory.GetProvider("together")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestFactoryProvidersSkipsUnconfigured(t *testing.T) {
	factory := NewProviderFactory("gsk_test", "llama-3.3-70b-versatile", "", "")

	providers := factory.Providers([]string{"groq", "cerebras"})

	require.Len(t, providers, 1)
	assert.Equal(t, "groq", providers[0].Name())
}

func TestRetryAfterPrefersMillisecondHeader(t *testing.T) {
	headers := http.Header{}
	headers.Set("retry-after-ms", "1500")
	headers.Set("retry-after", "30")

	assert.Equal(t, 1500*time.Millisecond, retryAfterFromHeaders(headers))
}

func TestRetryAfterSecondsHeader(t *testing.T) {
	headers := http.Header{}
	headers.Set("retry-after", "30")

	assert.Equal(t, 30*time.Second, retryAfterFromHeaders(headers))
}

func TestRetryAfterDefault(t *testing.T) {
	assert.Equal(t, defaultRetryAfter, retryAfterFromHeaders(http.Header{}))
	assert.Equal(t, defaultRetryAfter, retryAfterFromHeaders(nil))

	headers := http.Header{}
	headers.Set("retry-after", "garbage")
	assert.Equal(t, defaultRetryAfter, retryAfterFromHeaders(headers))
}

func TestRateLimitErrorUnwrapsWithErrorsAs(t *testing.T) {
	var target *RateLimitError

	err := error(&RateLimitError{Provider: "groq", RetryAfter: time.Minute})
	require.True(t, errors.As(err, &target))
	assert.Equal(t, time.Minute, target.RetryAfter)
	assert.Contains(t, err.Error(), "groq")
}
