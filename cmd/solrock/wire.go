// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package main

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/agent"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/config"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/metrics"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider"
	anthropicprov "github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider/anthropic"
	githubprov "github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider/github"
	googleprov "github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider/google"
	openaiprov "github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider/openai"
	openrouterprov "github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider/openrouter"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/scanner"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/store"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// providerFactory builds a provider from its config section.
type providerFactory func(pc config.ProviderConfig) (provider.Provider, error)

// providerFactories maps provider names to constructors. It is a variable so
// tests can register fakes.
var providerFactories = map[string]providerFactory{
	"github": func(pc config.ProviderConfig) (provider.Provider, error) {
		p, err := githubprov.New(githubprov.Config{Token: pc.APIKey, BaseURL: pc.Endpoint})
		if err != nil {
			return nil, err
		}
		return p, nil
	},
	"openai": func(pc config.ProviderConfig) (provider.Provider, error) {
		p, err := openaiprov.New(openaiprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
		if err != nil {
			return nil, err
		}
		return p, nil
	},
	"openrouter": func(pc config.ProviderConfig) (provider.Provider, error) {
		p, err := openrouterprov.New(openrouterprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
		if err != nil {
			return nil, err
		}
		return p, nil
	},
	"anthropic": func(pc config.ProviderConfig) (provider.Provider, error) {
		p, err := anthropicprov.New(anthropicprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
		if err != nil {
			return nil, err
		}
		return p, nil
	},
	"google": func(pc config.ProviderConfig) (provider.Provider, error) {
		p, err := googleprov.New(googleprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
		if err != nil {
			return nil, err
		}
		return p, nil
	},
}

// Runtime holds the wired dialogue engine and its collaborators.
type Runtime struct {
	Engine   *agent.Engine
	Registry *provider.Registry
	Metrics  *metrics.Metrics
}

// Close stops the engine's session lanes and closes every provider.
func (r *Runtime) Close() error {
	r.Engine.Close()
	return r.Registry.Close()
}

// referencedProviders returns the providers named by the model and failover
// refs, primary first.
func referencedProviders(cfg *config.Config) []string {
	var names []string
	for _, ref := range append([]string{cfg.Model}, cfg.Failover...) {
		name, _, err := provider.ParseRef(ref)
		if err != nil || slices.Contains(names, name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// BuildRegistry constructs every provider the config references and sets
// the default model and failover chain.
func BuildRegistry(cfg *config.Config) (*provider.Registry, error) {
	reg := provider.NewRegistry()

	var errs []error
	for _, name := range referencedProviders(cfg) {
		factory, ok := providerFactories[name]
		if !ok {
			errs = append(errs, solerr.Errorf(solerr.CodeCLISetupFailure, "provider %q is not supported", name))
			continue
		}
		pc := cfg.Provider(name)
		if pc.APIKey == "" {
			errs = append(errs, solerr.Errorf(solerr.CodeCLISetupFailure,
				"no API key for provider %q: set %s, providers.%s.api_key, or run 'solrock secret set'",
				name, config.CredentialEnv(name), name))
			continue
		}
		p, err := factory(pc)
		if err != nil {
			errs = append(errs, solerr.Wrapf(err, solerr.CodeCLISetupFailure, "creating provider %q", name))
			continue
		}
		reg.Register(name, p)
		slog.Debug("provider registered", "provider", name)
	}
	if len(errs) > 0 {
		_ = reg.Close()
		return nil, solerr.Errorf(solerr.CodeCLISetupFailure, "configuring providers: %w", errors.Join(errs...))
	}

	if err := reg.SetDefault(cfg.Model); err != nil {
		_ = reg.Close()
		return nil, solerr.Wrapf(err, solerr.CodeCLISetupFailure, "setting default model %s", cfg.Model)
	}
	if len(cfg.Failover) > 0 {
		if err := reg.SetFailover(cfg.Failover); err != nil {
			_ = reg.Close()
			return nil, solerr.Wrapf(err, solerr.CodeCLISetupFailure, "setting failover chain")
		}
	}
	return reg, nil
}

// Wire builds the provider registry, session store and dialogue engine.
func Wire(cfg *config.Config, m *metrics.Metrics) (*Runtime, error) {
	reg, err := BuildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	st, err := store.NewInMemorySessionStore(cfg.Memory.Window)
	if err != nil {
		_ = reg.Close()
		return nil, solerr.Wrapf(err, solerr.CodeCLISetupFailure, "creating session store")
	}

	guard, err := scanner.NewGuard(scanner.Mode(cfg.Scanner.Mode), m)
	if err != nil {
		_ = reg.Close()
		return nil, solerr.Wrapf(err, solerr.CodeCLISetupFailure, "creating input scanner")
	}

	engCfg := agent.EngineConfig{
		Store:    st,
		Router:   reg,
		ModelRef: cfg.Model,
		Options: provider.ChatOptions{
			Temperature: cfg.Generation.Temperature,
			MaxTokens:   cfg.Generation.MaxTokens,
		},
		Retry: agent.RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			Delays:     cfg.Retry.Delays,
		},
		RequestTimeout: cfg.Generation.RequestTimeout,
		Metrics:        m,
		Hooks: &agent.EngineHooks{
			OnTransition: func(sessionID string, s agent.State) {
				slog.Debug("turn state", "session_id", sessionID, "state", string(s))
			},
		},
	}
	if guard != nil {
		engCfg.Scanner = guard
	}

	eng, err := agent.NewEngine(engCfg)
	if err != nil {
		_ = reg.Close()
		return nil, solerr.Wrapf(err, solerr.CodeCLISetupFailure, "creating dialogue engine")
	}

	slog.Info("assistant ready", "model", cfg.Model, "window", cfg.Memory.Window, "scanner", cfg.Scanner.Mode)
	return &Runtime{Engine: eng, Registry: reg, Metrics: m}, nil
}
