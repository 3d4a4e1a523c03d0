// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

//go:build !windows

package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &buf
}

func TestWarnInsecurePermissions(t *testing.T) {
	tests := []struct {
		name string
		perm os.FileMode
		warn bool
	}{
		{"owner only 0600", 0o600, false},
		{"read only 0400", 0o400, false},
		{"group readable 0640", 0o640, true},
		{"world readable 0604", 0o604, true},
		{"everyone 0644", 0o644, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "solrock.yaml")
			require.NoError(t, os.WriteFile(path, []byte("memory:\n  window: 10\n"), 0o600))
			require.NoError(t, os.Chmod(path, tt.perm))
			logs := captureLogs(t)

			got := WarnInsecurePermissions(path)

			assert.Equal(t, tt.warn, got)
			if tt.warn {
				assert.Contains(t, logs.String(), "insecure permissions")
				assert.Contains(t, logs.String(), path)
				assert.Contains(t, logs.String(), "0600")
			} else {
				assert.NotContains(t, logs.String(), "insecure permissions")
			}
		})
	}
}

func TestWarnInsecurePermissions_NoFile(t *testing.T) {
	logs := captureLogs(t)

	assert.False(t, WarnInsecurePermissions(""))
	assert.Empty(t, logs.String())

	assert.False(t, WarnInsecurePermissions("/nonexistent/solrock.yaml"))
	assert.NotContains(t, logs.String(), "insecure permissions")
}
