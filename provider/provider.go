package provider

import (
	"context"
	"errors"

	appconfig "github.com/mohammad-safakhou/postcraft/config"
	openai_provider "github.com/mohammad-safakhou/postcraft/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
	Gemini    Client = "gemini"
)

// Provider is the interface all LLM implementations must satisfy: a text
// generation capability plus an embedding capability. The format argument is
// "json" or "text".
type Provider interface {
	Generate(ctx context.Context, prompt string, format string, temperature float64) (string, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(cfg appconfig.LLMConfig) (Provider, error) {
	switch Client(cfg.Provider) {
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("llm.api_key (or OPENAI_API_KEY) not set")
		}
		return openai_provider.NewClient(
			cfg.APIKey,
			cfg.BaseURL,
			cfg.CompletionModel,
			cfg.EmbeddingModel,
			cfg.MaxTokens,
			cfg.Timeout,
			cfg.MaxRetries,
		), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	case Gemini:
		return nil, errors.New("gemini client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
