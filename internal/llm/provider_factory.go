package llm

import (
	"fmt"
	"strings"
)

const (
	groqBaseURL     = "https://api.groq.com/openai/v1"
	cerebrasBaseURL = "https://api.cerebras.ai/v1"
)

// ProviderFactory creates providers based on explicit provider choice
type ProviderFactory struct {
	groqAPIKey     string
	groqModel      string
	cerebrasAPIKey string
	cerebrasModel  string
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(groqAPIKey, groqModel, cerebrasAPIKey, cerebrasModel string) *ProviderFactory {
	return &ProviderFactory{
		groqAPIKey:     groqAPIKey,
		groqModel:      groqModel,
		cerebrasAPIKey: cerebrasAPIKey,
		cerebrasModel:  cerebrasModel,
	}
}

// GetProvider returns the provider for the given name
func (f *ProviderFactory) GetProvider(providerName string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case "groq":
		if f.groqAPIKey == "" {
			return nil, fmt.Errorf("groq API key not configured")
		}
		return NewOpenAICompatProvider("groq", f.groqModel, f.groqAPIKey, groqBaseURL), nil

	case "cerebras":
		if f.cerebrasAPIKey == "" {
			return nil, fmt.Errorf("cerebras API key not configured")
		}
		return NewOpenAICompatProvider("cerebras", f.cerebrasModel, f.cerebrasAPIKey, cerebrasBaseURL), nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (allowed: groq, cerebras)", providerName)
	}
}

// Providers returns the configured providers for the given names, in order.
// Names with missing API keys are skipped.
func (f *ProviderFactory) Providers(names []string) []Provider {
	var providers []Provider
	for _, name := range names {
		p, err := f.GetProvider(name)
		if err != nil {
			continue
		}
		providers = append(providers, p)
	}
	return providers
}
