// Package llm wraps the language-model providers used for scoring and keyword generation.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider names a backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Default model per provider.
const (
	DefaultGeminiModel = "gemini-1.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// Client is an abstraction over LLM providers.
type Client interface {
	// GenerateJSON returns the model's JSON answer with markdown fences removed.
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	// Provider identifies the backend for budgeting and logs.
	Provider() Provider
	Close() error
}

// Config selects and tunes a provider.
type Config struct {
	Provider    Provider
	Model       string
	APIKey      string
	Temperature float32
	// BaseURL overrides the OpenAI endpoint.
	BaseURL string
}

// NewClient creates a client for cfg.Provider.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case ProviderGemini, "":
		return NewGeminiClient(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
}

// CleanJSONBlock removes markdown code block wrappers from JSON.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// TruncateRunes cuts s to at most limit runes, preferring to end on a sentence.
func TruncateRunes(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	trimmed := string(runes[:limit])
	if idx := strings.LastIndex(trimmed, ". "); idx > len(trimmed)/2 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed
}
