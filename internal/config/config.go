// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package config

import (
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/scanner"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// EnvPrefix namespaces every environment override, e.g. SOLROCK_MEMORY_WINDOW.
const EnvPrefix = "SOLROCK"

// Config is the top-level Solrock configuration.
type Config struct {
	// Model is the "provider/model" reference used for every completion.
	Model      string                    `mapstructure:"model"`
	Failover   []string                  `mapstructure:"failover"`
	Generation GenerationConfig          `mapstructure:"generation"`
	Memory     MemoryConfig              `mapstructure:"memory"`
	Retry      RetryConfig               `mapstructure:"retry"`
	Server     ServerConfig              `mapstructure:"server"`
	Providers  map[string]ProviderConfig `mapstructure:"providers"`
	Scanner    ScannerConfig             `mapstructure:"scanner"`
	Log        LogConfig                 `mapstructure:"log"`

	// File is the config file that was read, empty when running on
	// defaults and environment only.
	File string `mapstructure:"-"`
}

// GenerationConfig holds sampling options sent with every completion, and
// the ceiling on how long a single completion attempt may take.
type GenerationConfig struct {
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// MemoryConfig bounds per-session history.
type MemoryConfig struct {
	Window int `mapstructure:"window"`
}

// RetryConfig controls backoff on rate-limited completions.
type RetryConfig struct {
	MaxRetries int             `mapstructure:"max_retries"`
	Delays     []time.Duration `mapstructure:"delays"`
}

// ServerConfig controls the HTTP shell.
type ServerConfig struct {
	Listen      string          `mapstructure:"listen"`
	CORSOrigins []string        `mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig throttles /api requests per client IP. A zero rate
// disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// ProviderConfig holds credentials and endpoint for an LLM provider. APIKey
// may be a keyring:// reference.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// ScannerConfig selects how messages that look like they carry a secret
// are handled: off, flag, redact or block.
type ScannerConfig struct {
	Mode string `mapstructure:"mode"`
}

// LogConfig selects the slog handler and level.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// providerEnv lists the conventional credential variables honoured in
// addition to SOLROCK_PROVIDERS_<NAME>_API_KEY.
var providerEnv = map[string]string{
	"github":     "GITHUB_TOKEN",
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"google":     "GEMINI_API_KEY",
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("model", "github/openai/gpt-4.1-mini")
	v.SetDefault("generation.temperature", 0.3)
	v.SetDefault("generation.max_tokens", 2000)
	v.SetDefault("generation.request_timeout", "120s")
	v.SetDefault("memory.window", 25)
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.delays", []string{"5s", "15s", "30s"})
	v.SetDefault("server.listen", "127.0.0.1:5000")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit.requests_per_second", 0)
	v.SetDefault("server.rate_limit.burst", 10)
	v.SetDefault("scanner.mode", string(scanner.ModeFlag))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// BindEnv wires the SOLROCK_ prefix and the conventional provider
// credential variables into v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name := range providerEnv {
		_ = v.BindEnv(append([]string{"providers." + name + ".api_key"}, CredentialEnvVars(name)...)...)
	}
}

// SearchPaths returns the directories scanned for solrock.yaml when no
// explicit file is given.
func SearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "solrock"))
	}
	return paths
}

// Load reads configuration from path, or from solrock.yaml in the search
// paths when path is empty, with SOLROCK_ environment overrides on top.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, solerr.Errorf(solerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("solrock")
		v.SetConfigType("yaml")
		for _, p := range SearchPaths() {
			v.AddConfigPath(p)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, solerr.Errorf(solerr.CodeConfigParseInvalidFormat, "reading config: %w", err)
			}
			slog.Debug("no config file found, using defaults", "search_paths", SearchPaths())
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates the settings held by v. The CLI uses it
// after binding command flags onto the same viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, solerr.Errorf(solerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, solerr.Errorf(solerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// Validate checks the configuration for logical errors. Every problem is
// reported, not only the first.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateModels()...)
	errs = append(errs, c.validateGeneration()...)
	errs = append(errs, c.validateMemoryAndRetry()...)
	errs = append(errs, c.validateServer()...)
	if _, err := scanner.ParseMode(c.Scanner.Mode); err != nil {
		errs = append(errs, invalid("scanner.mode: %w", err))
	}
	errs = append(errs, c.validateLog()...)

	return errs
}

func invalid(format string, args ...any) error {
	return solerr.Errorf(solerr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func (c *Config) validateModels() []error {
	var errs []error

	check := func(field, ref string) {
		name, model, ok := strings.Cut(ref, "/")
		if !ok || name == "" || model == "" {
			errs = append(errs, invalid("%s must be in \"provider/model\" format, got %q", field, ref))
			return
		}
		if _, known := providerEnv[name]; !known {
			errs = append(errs, invalid("%s references unknown provider %q", field, name))
		}
	}

	if c.Model == "" {
		errs = append(errs, invalid("model must not be empty"))
	} else {
		check("model", c.Model)
	}
	for i, ref := range c.Failover {
		check("failover["+strconv.Itoa(i)+"]", ref)
	}
	return errs
}

func (c *Config) validateGeneration() []error {
	var errs []error
	if t := c.Generation.Temperature; t < 0 || t > 2 {
		errs = append(errs, invalid("generation.temperature must be between 0 and 2, got %g", t))
	}
	if c.Generation.MaxTokens <= 0 {
		errs = append(errs, invalid("generation.max_tokens must be greater than 0, got %d", c.Generation.MaxTokens))
	}
	if c.Generation.RequestTimeout <= 0 {
		errs = append(errs, invalid("generation.request_timeout must be positive, got %s", c.Generation.RequestTimeout))
	}
	return errs
}

func (c *Config) validateMemoryAndRetry() []error {
	var errs []error
	if c.Memory.Window <= 0 {
		errs = append(errs, invalid("memory.window must be greater than 0, got %d", c.Memory.Window))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, invalid("retry.max_retries must not be negative, got %d", c.Retry.MaxRetries))
	}
	for i, d := range c.Retry.Delays {
		if d < 0 {
			errs = append(errs, invalid("retry.delays[%d] must not be negative, got %s", i, d))
		}
		if i > 0 && d < c.Retry.Delays[i-1] {
			errs = append(errs, invalid("retry.delays must be non-decreasing, %s follows %s", d, c.Retry.Delays[i-1]))
		}
	}
	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if rl := c.Server.RateLimit; rl.RequestsPerSecond < 0 {
		errs = append(errs, invalid("server.rate_limit.requests_per_second must not be negative, got %g", rl.RequestsPerSecond))
	} else if rl.RequestsPerSecond > 0 && rl.Burst <= 0 {
		errs = append(errs, invalid("server.rate_limit.burst must be greater than 0 when a rate is set, got %d", rl.Burst))
	}

	if c.Server.Listen == "" {
		return append(errs, invalid("server.listen must not be empty"))
	}
	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		return append(errs, invalid("server.listen must be a valid host:port address, got %q: %w", c.Server.Listen, err))
	}
	port, err := strconv.Atoi(portStr)
	switch {
	case err != nil:
		errs = append(errs, invalid("server.listen port must be a number, got %q", portStr))
	case port < 1 || port > 65535:
		errs = append(errs, invalid("server.listen port must be between 1 and 65535, got %d", port))
	}
	return errs
}

func (c *Config) validateLog() []error {
	var errs []error
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, invalid("log.format must be one of [text, json], got %q", c.Log.Format))
	}
	return errs
}

// ParseLevel maps a config level name onto a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, invalid("log.level must be one of [debug, info, warn, error], got %q", level)
	}
}

// ProviderName returns the provider part of the configured model reference.
func (c *Config) ProviderName() string {
	name, _, _ := strings.Cut(c.Model, "/")
	return name
}

// CredentialEnv returns the conventional API key variable for a provider,
// empty for unknown providers.
func CredentialEnv(provider string) string {
	return providerEnv[provider]
}

// CredentialEnvVars lists every environment variable that can carry the API
// key for provider, in lookup order.
func CredentialEnvVars(provider string) []string {
	vars := []string{EnvPrefix + "_PROVIDERS_" + strings.ToUpper(provider) + "_API_KEY"}
	if env := providerEnv[provider]; env != "" {
		vars = append(vars, env)
	}
	return vars
}

// KnownProviders returns the provider names Solrock can build, sorted.
func KnownProviders() []string {
	names := make([]string, 0, len(providerEnv))
	for name := range providerEnv {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Provider returns the settings for name, zero-valued when absent.
func (c *Config) Provider(name string) ProviderConfig {
	return c.Providers[name]
}
