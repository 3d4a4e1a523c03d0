// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package openrouter

import (
	"net/http"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider/openai"
)

const (
	Name           = "openrouter"
	DefaultBaseURL = "https://openrouter.ai/api/v1"
)

// Config holds OpenRouter provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	HTTPClient *http.Client
}

// New creates an OpenRouter provider on top of the OpenAI-compatible client.
func New(cfg Config) (*openai.Provider, error) {
	base := DefaultBaseURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}

	return openai.New(openai.Config{
		Name:       Name,
		APIKey:     cfg.APIKey,
		BaseURL:    base,
		Models:     knownModels(),
		HTTPClient: cfg.HTTPClient,
	})
}

// knownModels returns a curated set of popular coding models on OpenRouter.
func knownModels() []provider.ModelInfo {
	return []provider.ModelInfo{
		{
			ID:       "openai/gpt-4.1-mini",
			Name:     "GPT-4.1 Mini",
			Provider: Name,
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				SupportsJSONMode:  true,
				MaxContextTokens:  1047576,
				MaxOutputTokens:   32768,
			},
		},
		{
			ID:       "anthropic/claude-sonnet-4.5",
			Name:     "Claude Sonnet 4.5",
			Provider: Name,
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				MaxContextTokens:  200000,
				MaxOutputTokens:   16000,
			},
		},
		{
			ID:       "qwen/qwen3-coder",
			Name:     "Qwen3 Coder",
			Provider: Name,
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				MaxContextTokens:  262144,
				MaxOutputTokens:   65536,
			},
		},
	}
}
