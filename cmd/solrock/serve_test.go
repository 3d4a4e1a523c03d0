// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/config"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

func TestServe_StopsOnCancel(t *testing.T) {
	withFakeProviders(t)

	tests := []struct {
		name string
		keys map[string]string
	}{
		{name: "wired", keys: map[string]string{"openai": "sk"}},
		{name: "degraded without API key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("openai/gpt-4.1", nil, tt.keys)
			cfg.Server = config.ServerConfig{Listen: "127.0.0.1:0"}

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			assert.NoError(t, serve(ctx, cfg))
		})
	}
}

func TestServe_InvalidRateLimit(t *testing.T) {
	cfg := testConfig("openai/gpt-4.1", nil, nil)
	cfg.Server = config.ServerConfig{
		Listen:    "127.0.0.1:0",
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1},
	}

	err := serve(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, solerr.HasCode(err, solerr.CodeServerConfigInvalid))
}
