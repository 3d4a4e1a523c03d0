// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

//go:embed solrock.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/solrock/solrock.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", solerr.Errorf(solerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "solrock", "solrock.yaml"), nil
}

// Bootstrap writes the commented default config to path unless a file is
// already there. It reports whether a file was written.
func Bootstrap(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, solerr.Errorf(solerr.CodeConfigLoadReadFailure, "creating config directory: %w", err)
	}
	if err := os.WriteFile(path, DefaultConfigYAML, 0o600); err != nil {
		return false, solerr.Errorf(solerr.CodeConfigLoadReadFailure, "writing config %s: %w", path, err)
	}
	slog.Info("created default config", "path", path)
	return true, nil
}

// fileView is the YAML shape of a Config, with durations as strings.
type fileView struct {
	Model      string                  `yaml:"model"`
	Failover   []string                `yaml:"failover,omitempty"`
	Generation generationView          `yaml:"generation"`
	Memory     memoryView              `yaml:"memory"`
	Retry      retryView               `yaml:"retry"`
	Server     serverView              `yaml:"server"`
	Providers  map[string]providerView `yaml:"providers,omitempty"`
	Scanner    scannerView             `yaml:"scanner"`
	Log        logView                 `yaml:"log"`
}

type generationView struct {
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	RequestTimeout string  `yaml:"request_timeout"`
}

type memoryView struct {
	Window int `yaml:"window"`
}

type retryView struct {
	MaxRetries int      `yaml:"max_retries"`
	Delays     []string `yaml:"delays,flow"`
}

type serverView struct {
	Listen      string        `yaml:"listen"`
	CORSOrigins []string      `yaml:"cors_origins,flow"`
	RateLimit   rateLimitView `yaml:"rate_limit"`
}

type rateLimitView struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type providerView struct {
	APIKey   string `yaml:"api_key,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

type scannerView struct {
	Mode string `yaml:"mode"`
}

type logView struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RenderYAML renders the effective configuration. Literal API keys are
// masked; keyring references are shown as they are.
func (c *Config) RenderYAML() ([]byte, error) {
	view := fileView{
		Model:      c.Model,
		Failover:   c.Failover,
		Generation: generationView{
			Temperature:    c.Generation.Temperature,
			MaxTokens:      c.Generation.MaxTokens,
			RequestTimeout: c.Generation.RequestTimeout.String(),
		},
		Memory:     memoryView{Window: c.Memory.Window},
		Retry:      retryView{MaxRetries: c.Retry.MaxRetries},
		Server: serverView{
			Listen:      c.Server.Listen,
			CORSOrigins: c.Server.CORSOrigins,
			RateLimit: rateLimitView{
				RequestsPerSecond: c.Server.RateLimit.RequestsPerSecond,
				Burst:             c.Server.RateLimit.Burst,
			},
		},
		Scanner: scannerView{Mode: c.Scanner.Mode},
		Log:     logView{Level: c.Log.Level, Format: c.Log.Format},
	}
	for _, d := range c.Retry.Delays {
		view.Retry.Delays = append(view.Retry.Delays, d.String())
	}
	if len(c.Providers) > 0 {
		view.Providers = make(map[string]providerView, len(c.Providers))
		for name, p := range c.Providers {
			view.Providers[name] = providerView{APIKey: maskKey(p.APIKey), Endpoint: p.Endpoint}
		}
	}

	out, err := yaml.Marshal(view)
	if err != nil {
		return nil, solerr.Errorf(solerr.CodeConfigParseInvalidFormat, "rendering config: %w", err)
	}
	return out, nil
}

func maskKey(key string) string {
	switch {
	case key == "":
		return ""
	case strings.HasPrefix(key, "keyring://"):
		return key
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "****"
	}
}
