// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package provider_test

import (
	"context"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider"
)

// mockProvider is a scripted provider.Provider. Each Chat call emits the
// configured events, or returns chatErr without opening a stream.
type mockProvider struct {
	name      string
	available bool
	events    []provider.ChatEvent
	chatErr   error
	closeErr  error
	lastReq   provider.ChatRequest
}

func newMockProvider(name string, available bool) *mockProvider {
	return &mockProvider{
		name:      name,
		available: available,
		events: []provider.ChatEvent{
			{Type: provider.EventTypeTextDelta, Text: "hel"},
			{Type: provider.EventTypeTextDelta, Text: "lo"},
			{Type: provider.EventTypeUsage, Usage: &provider.Usage{InputTokens: 10, OutputTokens: 5}},
			{Type: provider.EventTypeDone},
		},
	}
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Available(context.Context) bool { return m.available }

func (m *mockProvider) ListModels(context.Context) ([]provider.ModelInfo, error) {
	return nil, nil
}

func (m *mockProvider) Chat(_ context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	m.lastReq = req
	if m.chatErr != nil {
		return nil, m.chatErr
	}
	ch := make(chan provider.ChatEvent, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (m *mockProvider) Status(context.Context) (provider.ProviderStatus, error) {
	return provider.ProviderStatus{Available: m.available, Provider: m.name, Message: "ok"}, nil
}

func (m *mockProvider) Close() error { return m.closeErr }

// statusError carries an HTTP status the way SDK errors do.
type statusError struct {
	status int
}

func (e *statusError) Error() string { return "upstream said no" }

func (e *statusError) HTTPStatusCode() int { return e.status }

func validRequest() provider.ChatRequest {
	return provider.ChatRequest{
		Model:    "gpt-4.1-mini",
		Messages: []provider.Message{{Role: "user", Content: "hi"}},
		Options:  provider.ChatOptions{Temperature: 0.3, MaxTokens: 2000},
	}
}
