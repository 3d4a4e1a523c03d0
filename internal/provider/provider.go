// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package provider

import (
	"context"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/store"
)

// Provider is the core interface for completion backends.
type Provider interface {
	Name() string
	Available(ctx context.Context) bool
	ListModels(ctx context.Context) ([]ModelInfo, error)
	Chat(ctx context.Context, req ChatRequest) (<-chan ChatEvent, error)
	Status(ctx context.Context) (ProviderStatus, error)
	Close() error
}

// Router resolves a "provider/model" reference to a provider and the
// provider-local model name.
type Router interface {
	Route(ctx context.Context, modelRef string) (Provider, string, error)
	Close() error
}

// HealthReporter is implemented by providers that track their own health.
type HealthReporter interface {
	HealthMetrics() HealthMetrics
}

// ChatRequest represents a request to the model.
type ChatRequest struct {
	Model        string
	Messages     []Message
	SystemPrompt string
	Options      ChatOptions
}

// ChatOptions contains generation parameters.
type ChatOptions struct {
	Temperature   float64
	MaxTokens     int
	StopSequences []string
}

// Message is one role-tagged entry of the conversation sent to a provider.
type Message struct {
	Role    store.Role
	Content string
}

// ChatEvent is a streaming response event.
type ChatEvent struct {
	Type  EventType
	Text  string
	Usage *Usage
	Err   error
}

// EventType defines the type of chat event.
type EventType string

const (
	EventTypeTextDelta EventType = "text_delta"
	EventTypeUsage     EventType = "usage"
	EventTypeDone      EventType = "done"
	EventTypeError     EventType = "error"
)

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Add accumulates other into u.
func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// ModelInfo describes a model's capabilities.
type ModelInfo struct {
	ID           string
	Name         string
	Provider     string
	Capabilities ModelCapabilities
}

// ModelCapabilities declares what a model supports.
type ModelCapabilities struct {
	SupportsStreaming bool
	SupportsJSONMode  bool
	MaxContextTokens  int
	MaxOutputTokens   int
}

// ProviderStatus indicates provider health.
type ProviderStatus struct {
	Available bool
	Provider  string
	Message   string
}
