// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package provider

import (
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// Validate checks generation parameters before they reach a provider.
func (o ChatOptions) Validate() error {
	if o.Temperature < MinTemperature || o.Temperature > MaxTemperature {
		return solerr.Errorf(solerr.CodeProviderRequestInvalid,
			"temperature must be within [%.1f, %.1f], got %v", MinTemperature, MaxTemperature, o.Temperature)
	}
	if o.MaxTokens <= 0 {
		return solerr.Errorf(solerr.CodeProviderRequestInvalid,
			"max_tokens must be positive, got %d", o.MaxTokens)
	}
	return nil
}

// Validate checks that the request names a model, carries at least one
// message and has sane options.
func (r ChatRequest) Validate() error {
	if r.Model == "" {
		return solerr.New(solerr.CodeProviderRequestInvalid, "model is required")
	}
	if len(r.Messages) == 0 {
		return solerr.New(solerr.CodeProviderRequestInvalid, "at least one message is required")
	}
	for i, m := range r.Messages {
		if !m.Role.Valid() {
			return solerr.Errorf(solerr.CodeProviderRequestInvalid,
				"message %d has unsupported role %q", i, m.Role)
		}
	}
	return r.Options.Validate()
}
