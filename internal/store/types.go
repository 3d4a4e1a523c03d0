// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package store

import "time"

// Role identifies the sender of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// DefaultWindow is the number of turns retained per session.
const DefaultWindow = 25

// Turn is one role-tagged message in a conversation.
type Turn struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// UsageStats is a point-in-time view of the process-wide counters.
type UsageStats struct {
	ActiveSessions int
	TotalMessages  int64
	// SessionTurns maps a session ID to the number of turns it has committed.
	SessionTurns map[string]int
	// SessionIDs is sorted.
	SessionIDs []string
}
