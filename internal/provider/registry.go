// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package provider

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// Registry manages provider registration, lookup, and routing with
// failover. It implements the Router interface.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider

	defaultRef string   // "provider/model" format
	failover   []string // ordered list of "provider/model" refs
}

var _ Router = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry under name, replacing any
// provider previously registered under the same name.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, solerr.New(
			solerr.CodeProviderNotFound,
			"provider not found: "+name,
			solerr.FieldProvider(name),
		)
	}
	return p, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SetDefault sets the "provider/model" reference used when Route is called
// with an empty or "default" reference.
func (r *Registry) SetDefault(ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRefLocked(ref); err != nil {
		return err
	}
	r.defaultRef = ref
	return nil
}

// DefaultRef returns the configured default reference.
func (r *Registry) DefaultRef() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultRef
}

// SetFailover sets the ordered failover chain of "provider/model" refs.
func (r *Registry) SetFailover(chain []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ref := range chain {
		if err := r.checkRefLocked(ref); err != nil {
			return err
		}
	}
	r.failover = slices.Clone(chain)
	return nil
}

// Route selects a provider for modelRef. The primary ref is used when its
// provider is healthy; otherwise the failover chain is walked in order.
// When no candidate is healthy the primary is returned anyway so the
// caller surfaces a real upstream error instead of a routing one.
func (r *Registry) Route(ctx context.Context, modelRef string) (Provider, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref := modelRef
	if ref == "" || ref == "default" {
		ref = r.defaultRef
	}
	if ref == "" {
		return nil, "", solerr.New(solerr.CodeProviderNotFound, "no default model configured")
	}

	provName, model, err := ParseRef(ref)
	if err != nil {
		return nil, "", err
	}
	primary, ok := r.providers[provName]
	if !ok {
		return nil, "", solerr.New(
			solerr.CodeProviderNotFound,
			"provider not found: "+provName,
			solerr.FieldProvider(provName),
		)
	}
	if primary.Available(ctx) {
		return primary, model, nil
	}

	for _, fallback := range r.failover {
		fbName, fbModel, _ := ParseRef(fallback)
		if fbName == provName {
			continue
		}
		p, ok := r.providers[fbName]
		if !ok || !p.Available(ctx) {
			continue
		}
		slog.Warn("primary provider unhealthy, using failover",
			"provider", provName,
			"failover", fbName)
		return p, fbModel, nil
	}

	slog.Warn("no healthy provider available, routing to primary", "provider", provName)
	return primary, model, nil
}

// Health returns a health snapshot for every registered provider that
// reports one.
func (r *Registry) Health() map[string]HealthMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]HealthMetrics, len(r.providers))
	for name, p := range r.providers {
		if hr, ok := p.(HealthReporter); ok {
			out[name] = hr.HealthMetrics()
		}
	}
	return out
}

// Close shuts down all registered providers.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return solerr.Join(errs...)
	}
	return nil
}

// checkRefLocked validates ref and that its provider is registered.
// Caller must hold r.mu.
func (r *Registry) checkRefLocked(ref string) error {
	provName, _, err := ParseRef(ref)
	if err != nil {
		return err
	}
	if _, ok := r.providers[provName]; !ok {
		return solerr.New(
			solerr.CodeProviderNotFound,
			"provider not registered: "+provName,
			solerr.FieldProvider(provName),
		)
	}
	return nil
}

// ParseRef splits a "provider/model" reference on the first "/". Model
// names may themselves contain slashes ("github/openai/gpt-4.1-mini").
func ParseRef(ref string) (providerName, model string, err error) {
	idx := strings.Index(ref, "/")
	if idx <= 0 || idx == len(ref)-1 {
		return "", "", solerr.Errorf(solerr.CodeProviderModelRefInvalid,
			"model %q must use provider/model format", ref)
	}
	return ref[:idx], ref[idx+1:], nil
}
