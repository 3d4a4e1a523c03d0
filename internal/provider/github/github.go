// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

// Package github provides the GitHub Models backend, an OpenAI-compatible
// inference endpoint authenticated with a GitHub token.
package github

import (
	"net/http"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider/openai"
)

const (
	Name           = "github"
	DefaultBaseURL = "https://models.github.ai/inference"
	DefaultModel   = "openai/gpt-4.1-mini"
)

// Config holds GitHub Models configuration.
type Config struct {
	Token      string
	BaseURL    string // optional, useful for testing against a mock server
	HTTPClient *http.Client
}

// New creates a GitHub Models provider. Returns an error if the token is
// missing.
func New(cfg Config) (*openai.Provider, error) {
	base := DefaultBaseURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}

	return openai.New(openai.Config{
		Name:            Name,
		APIKey:          cfg.Token,
		BaseURL:         base,
		LegacyMaxTokens: true,
		Models:          knownModels(),
		HTTPClient:      cfg.HTTPClient,
	})
}

// knownModels returns a curated set of models served by GitHub Models.
// IDs carry the publisher prefix the endpoint expects.
func knownModels() []provider.ModelInfo {
	std := provider.ModelCapabilities{
		SupportsStreaming: true,
		SupportsJSONMode:  true,
		MaxContextTokens:  128000,
		MaxOutputTokens:   16384,
	}
	return []provider.ModelInfo{
		{ID: "openai/gpt-4.1", Name: "OpenAI GPT-4.1", Provider: Name, Capabilities: std},
		{ID: DefaultModel, Name: "OpenAI GPT-4.1 Mini", Provider: Name, Capabilities: std},
		{ID: "openai/gpt-4o-mini", Name: "OpenAI GPT-4o Mini", Provider: Name, Capabilities: std},
		{ID: "meta/Llama-3.3-70B-Instruct", Name: "Llama 3.3 70B Instruct", Provider: Name, Capabilities: provider.ModelCapabilities{
			SupportsStreaming: true,
			MaxContextTokens:  128000,
			MaxOutputTokens:   4096,
		}},
		{ID: "mistral-ai/Codestral-2501", Name: "Codestral 25.01", Provider: Name, Capabilities: provider.ModelCapabilities{
			SupportsStreaming: true,
			MaxContextTokens:  256000,
			MaxOutputTokens:   4096,
		}},
	}
}
