// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package anthropic_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider/anthropic"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/store"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNewProvider(t *testing.T, baseURL string) *anthropic.Provider {
	t.Helper()
	p, err := anthropic.New(anthropic.Config{
		APIKey:  "test-key-not-real",
		BaseURL: baseURL,
	})
	require.NoError(t, err)
	return p
}

func TestAnthropicProvider_Basics(t *testing.T) {
	p := mustNewProvider(t, "")
	assert.Equal(t, "anthropic", p.Name())
	assert.True(t, p.Available(context.Background()))
	assert.NoError(t, p.Close())

	models, err := p.ListModels(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, models)
	for _, m := range models {
		assert.Equal(t, "anthropic", m.Provider)
		assert.Positive(t, m.Capabilities.MaxOutputTokens)
	}
}

func TestAnthropicProvider_MissingAPIKey(t *testing.T) {
	_, err := anthropic.New(anthropic.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, solerr.HasCode(err, solerr.CodeProviderRequestInvalid))
}

func TestConvertMessages_DropsLeadingAssistantAndLiftsSystem(t *testing.T) {
	msgs := []provider.Message{
		{Role: store.RoleAssistant, Content: "evicted partner"},
		{Role: store.RoleSystem, Content: "extra instructions"},
		{Role: store.RoleUser, Content: "question"},
		{Role: store.RoleAssistant, Content: "answer"},
		{Role: store.RoleUser, Content: "follow-up"},
	}

	params, system, err := anthropic.ConvertMessages(msgs)
	require.NoError(t, err)
	require.Len(t, params, 3)
	assert.Equal(t, "user", string(params[0].Role))
	assert.Equal(t, "assistant", string(params[1].Role))
	assert.Equal(t, "user", string(params[2].Role))
	assert.Equal(t, []string{"extra instructions"}, system)
}

func TestBuildParams(t *testing.T) {
	req := provider.ChatRequest{
		Model:        "claude-haiku-4-5",
		SystemPrompt: "base prompt",
		Messages: []provider.Message{
			{Role: store.RoleSystem, Content: "more"},
			{Role: store.RoleUser, Content: "hi"},
		},
		Options: provider.ChatOptions{Temperature: 1.7},
	}

	params, err := anthropic.BuildParams(req)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), params.MaxTokens, "default max tokens")
	assert.Equal(t, 1.0, params.Temperature.Value, "temperature clamped to API range")
	require.Len(t, params.System, 1)
	assert.Equal(t, "base prompt\n\nmore", params.System[0].Text)

	_, err = anthropic.BuildParams(provider.ChatRequest{
		Model:    "claude-haiku-4-5",
		Messages: []provider.Message{{Role: store.RoleAssistant, Content: "only me"}},
	})
	assert.True(t, solerr.HasCode(err, solerr.CodeProviderRequestInvalid))
}

const streamBody = `event: message_start
data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-haiku-4-5","stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":12,"output_tokens":1}}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi "}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"there"}}

event: content_block_stop
data: {"type":"content_block_stop","index":0}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":3}}

event: message_stop
data: {"type":"message_stop"}

`

func TestAnthropicProvider_StreamsCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		assert.Equal(t, "test-key-not-real", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, streamBody)
	}))
	defer srv.Close()

	p := mustNewProvider(t, srv.URL)
	text, usage, err := provider.Complete(context.Background(), p, provider.ChatRequest{
		Model:    "claude-haiku-4-5",
		Messages: []provider.Message{{Role: store.RoleUser, Content: "hello"}},
		Options:  provider.ChatOptions{Temperature: 0.3, MaxTokens: 2000},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)
	assert.Equal(t, provider.Usage{InputTokens: 12, OutputTokens: 3}, usage)
}

func TestAnthropicProvider_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = fmt.Fprint(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	p := mustNewProvider(t, srv.URL)
	_, _, err := provider.Complete(context.Background(), p, provider.ChatRequest{
		Model:    "claude-haiku-4-5",
		Messages: []provider.Message{{Role: store.RoleUser, Content: "hello"}},
		Options:  provider.ChatOptions{Temperature: 0.3, MaxTokens: 2000},
	})
	require.Error(t, err)
	assert.True(t, solerr.IsTransient(err))
	assert.True(t, p.Available(context.Background()), "rate limiting does not mark the provider unhealthy")
}
