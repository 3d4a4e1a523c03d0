// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSpec(t *testing.T) {
	spec, err := generateSpec()
	require.NoError(t, err)

	var doc struct {
		OpenAPI string         `json:"openapi"`
		Paths   map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(spec, &doc))

	assert.Contains(t, doc.OpenAPI, "3.1")
	for _, path := range []string{"/api/chat", "/api/clear", "/api/memory", "/api/stats", "/health"} {
		assert.Contains(t, doc.Paths, path)
	}
}
