// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package secrets_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/secrets"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		service string
		key     string
		wantErr bool
	}{
		{"simple", "keyring://solrock/github", "solrock", "github", false},
		{"slashes in key", "keyring://solrock/providers/openai", "solrock", "providers/openai", false},
		{"other scheme", "vault://solrock/github", "", "", true},
		{"missing key", "keyring://solrock/", "", "", true},
		{"missing service", "keyring:///github", "", "", true},
		{"scheme only", "keyring://", "", "", true},
		{"no slash", "keyring://solrock", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, key, err := secrets.ParseRef(tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, solerr.HasCode(err, solerr.CodeSecretInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.service, service)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestResolve(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Set("t-resolve", "github", "ghp_secret"))

	val, err := secrets.Resolve(ks, "keyring://t-resolve/github")
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", val)

	val, err = secrets.Resolve(ks, "ghp_literal")
	require.NoError(t, err)
	assert.Equal(t, "ghp_literal", val)

	_, err = secrets.Resolve(ks, "keyring://t-resolve/absent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolving keyring reference")

	_, err = secrets.Resolve(ks, "keyring://broken")
	assert.Error(t, err)
}

func TestResolveViper(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Set("t-viper", "anthropic", "sk-ant"))
	require.NoError(t, ks.Set("t-viper", "openai", "sk-oai"))

	v := viper.New()
	v.Set("providers.anthropic.api_key", "keyring://t-viper/anthropic")
	v.Set("providers.openai.api_key", "keyring://t-viper/openai")
	v.Set("server.listen", "127.0.0.1:5000")

	require.NoError(t, secrets.ResolveViper(v, ks))

	assert.Equal(t, "sk-ant", v.GetString("providers.anthropic.api_key"))
	assert.Equal(t, "sk-oai", v.GetString("providers.openai.api_key"))
	assert.Equal(t, "127.0.0.1:5000", v.GetString("server.listen"))
}

func TestResolveViper_ReportsEveryFailure(t *testing.T) {
	v := viper.New()
	v.Set("providers.anthropic.api_key", "keyring://t-viper-miss/anthropic")
	v.Set("providers.google.api_key", "keyring://t-viper-miss/google")

	err := secrets.ResolveViper(v, secrets.NewKeyringStore())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "providers.anthropic.api_key")
	assert.Contains(t, err.Error(), "providers.google.api_key")
}
