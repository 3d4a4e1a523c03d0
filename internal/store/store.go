// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package store

import "context"

// SessionStore holds the bounded turn log for every conversation session.
// Operations on different session IDs never block one another; operations on
// the same session ID are serialized.
type SessionStore interface {
	// Append adds turns in order and evicts the oldest turns once the
	// window is exceeded.
	Append(ctx context.Context, sessionID string, turns ...Turn) error
	// History returns a copy of the session's turns in insertion order.
	// Unknown sessions yield an empty slice.
	History(ctx context.Context, sessionID string) []Turn
	// Clear empties the session. Clearing an unknown session is a no-op.
	Clear(ctx context.Context, sessionID string)
	// ClearAll drops every session.
	ClearAll(ctx context.Context)

	// RecordTurns adds n completed turns to the usage counters.
	RecordTurns(sessionID string, n int)
	Stats() UsageStats

	Window() int
}
