// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

// Package secrets keeps provider API keys out of config files. Keys live in
// the OS keyring and config values refer to them as keyring://service/key.
package secrets

// DefaultService is the keyring service name used by the CLI.
const DefaultService = "solrock"

// Store is a named-secret backend.
type Store interface {
	// Set saves value under service/key, replacing any previous value.
	Set(service, key, value string) error
	// Get returns the value for service/key, or CodeSecretNotFound.
	Get(service, key string) (string, error)
	// Delete removes service/key, or returns CodeSecretNotFound.
	Delete(service, key string) error
	// List returns the key names stored under service, sorted.
	List(service string) ([]string, error)
}
