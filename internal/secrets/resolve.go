// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package secrets

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

const refScheme = "keyring://"

// IsRef reports whether value is a keyring:// reference.
func IsRef(value string) bool {
	return strings.HasPrefix(value, refScheme)
}

// ParseRef splits keyring://service/key. The key may itself contain slashes.
func ParseRef(ref string) (service, key string, err error) {
	if !IsRef(ref) {
		return "", "", solerr.Errorf(solerr.CodeSecretInvalidInput, "not a keyring reference: %q", ref)
	}
	service, key, ok := strings.Cut(strings.TrimPrefix(ref, refScheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", solerr.Errorf(solerr.CodeSecretInvalidInput,
			"invalid keyring reference %q: want keyring://service/key", ref)
	}
	return service, key, nil
}

// Resolve returns the secret a keyring reference points at. Any other value
// is returned unchanged.
func Resolve(store Store, value string) (string, error) {
	if !IsRef(value) {
		return value, nil
	}
	service, key, err := ParseRef(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Get(service, key)
	if err != nil {
		return "", solerr.Wrapf(err, solerr.CodeSecretResolveFailure, "resolving keyring reference %q", value)
	}
	return secret, nil
}

// ResolveViper replaces every keyring reference held by v with its secret.
// All failures are reported together, each naming the config key.
func ResolveViper(v *viper.Viper, store Store) error {
	var errs []error
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsRef(val) {
			continue
		}
		resolved, err := Resolve(store, val)
		if err != nil {
			errs = append(errs, solerr.Errorf(solerr.CodeSecretResolveFailure,
				"config key %s (%s): %w", key, val, err))
			continue
		}
		v.Set(key, resolved)
	}
	if len(errs) > 0 {
		return solerr.Errorf(solerr.CodeSecretResolveFailure, "resolving secrets: %w", errors.Join(errs...))
	}
	return nil
}
