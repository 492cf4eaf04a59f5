package llm

import (
	"context"
	"fmt"
	"strings"
)

// groqBaseURL is the OpenAI-compatible endpoint Groq exposes.
const groqBaseURL = "https://api.groq.com/openai/v1"

// NewClient builds a Client for the configured provider.
// Returns (nil, nil) when no provider is configured so callers can treat
// AI assistance as an optional capability.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	var client Client
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client = newOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "groq":
		// Groq speaks the OpenAI chat API on its own endpoint.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = groqBaseURL
		}
		client = newOpenAIClient(cfg.APIKey, cfg.Model, baseURL)
	case "anthropic":
		client = newAnthropicClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "gemini":
		c, err := newGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("creating gemini client: %w", err)
		}
		client = c
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}

	if cfg.RequestsPerSecond > 0 {
		client = Limited(client, cfg.RequestsPerSecond, cfg.Burst)
	}
	return client, nil
}
