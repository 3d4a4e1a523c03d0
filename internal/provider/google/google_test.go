// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package google_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"google.golang.org/genai"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider/google"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/store"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNewProvider(t *testing.T) *google.Provider {
	t.Helper()
	p, err := google.New(google.Config{APIKey: "test-key-not-real"})
	require.NoError(t, err)
	return p
}

func TestGoogleProvider_Basics(t *testing.T) {
	p := mustNewProvider(t)
	assert.Equal(t, "google", p.Name())
	assert.True(t, p.Available(context.Background()))
	assert.NoError(t, p.Close())

	status, err := p.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "google", status.Provider)

	models, err := p.ListModels(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, models)
	for _, m := range models {
		assert.Equal(t, "google", m.Provider)
	}
}

func TestGoogleProvider_MissingAPIKey(t *testing.T) {
	_, err := google.New(google.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, solerr.HasCode(err, solerr.CodeProviderRequestInvalid))
}

func TestConvertMessages(t *testing.T) {
	contents, err := google.ConvertMessages([]provider.Message{
		{Role: store.RoleSystem, Content: "ignored here"},
		{Role: store.RoleUser, Content: "question"},
		{Role: store.RoleAssistant, Content: "answer"},
	})
	require.NoError(t, err)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "question", contents[0].Parts[0].Text)
	assert.Equal(t, "model", contents[1].Role)

	_, err = google.ConvertMessages([]provider.Message{{Role: "tool"}})
	assert.True(t, solerr.HasCode(err, solerr.CodeProviderRequestInvalid))
}

func TestBuildConfig(t *testing.T) {
	cfg := google.BuildConfig(provider.ChatRequest{
		Model:        "gemini-2.5-flash",
		SystemPrompt: "base",
		Messages: []provider.Message{
			{Role: store.RoleSystem, Content: "extra"},
			{Role: store.RoleUser, Content: "hi"},
		},
		Options: provider.ChatOptions{Temperature: 0.3, MaxTokens: 2000},
	})

	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.3, float64(*cfg.Temperature), 1e-6)
	assert.Equal(t, int32(2000), cfg.MaxOutputTokens)
	require.NotNil(t, cfg.SystemInstruction)
	require.Len(t, cfg.SystemInstruction.Parts, 2)
	assert.Equal(t, "base", cfg.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "extra", cfg.SystemInstruction.Parts[1].Text)
}

func TestClassify(t *testing.T) {
	err := google.Classify(fmt.Errorf("stream: %w", genai.APIError{Code: 429, Message: "quota", Status: "RESOURCE_EXHAUSTED"}))
	assert.True(t, solerr.IsTransient(err))

	err = google.Classify(genai.APIError{Code: 403, Message: "denied"})
	assert.True(t, solerr.HasCode(err, solerr.CodeProviderAuthFailure))

	err = google.Classify(stderrors.New("connection reset"))
	assert.True(t, solerr.HasCode(err, solerr.CodeProviderUpstreamFailure))
}
