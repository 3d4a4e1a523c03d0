// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package store

import (
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// Valid reports whether the role is a known turn role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Validate checks that the Turn has all required fields set correctly.
func (t Turn) Validate() error {
	if !t.Role.Valid() {
		return solerr.Errorf(solerr.CodeStoreInvalidInput, "turn: invalid role %q", t.Role)
	}
	if t.Timestamp.IsZero() {
		return solerr.New(solerr.CodeStoreInvalidInput, "turn: Timestamp is required")
	}
	return nil
}
