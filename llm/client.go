// Package llm provides text-generation clients for the extraction pipeline.
// A single Client interface covers every provider; the factory picks the
// implementation from config. Callers treat a nil client as "no AI backend
// configured" and fall back to deterministic extraction.
package llm

import "context"

// Client generates text from a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	// Provider is one of: openai, groq, anthropic, gemini. Empty disables AI.
	Provider string `yaml:"provider"`
	// APIKey authenticates against the provider.
	APIKey string `yaml:"api_key"`
	// Model is the provider-specific model name.
	Model string `yaml:"model"`
	// BaseURL overrides the provider endpoint (openai-compatible providers).
	BaseURL string `yaml:"base_url"`
	// RequestsPerSecond throttles outbound calls. Zero disables throttling.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Burst is the limiter burst size when throttling is enabled.
	Burst int `yaml:"burst"`
}

// Enabled reports whether the config names a provider.
func (c Config) Enabled() bool {
	return c.Provider != ""
}
