// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// sessionLog is the turn log for a single session. Its mutex serializes
// access to one session without touching the others.
type sessionLog struct {
	mu    sync.Mutex
	turns []Turn
}

// InMemorySessionStore is a thread-safe, process-local SessionStore. Nothing
// survives a restart.
type InMemorySessionStore struct {
	window int

	mu       sync.RWMutex
	sessions map[string]*sessionLog

	statsMu      sync.Mutex
	sessionTurns map[string]int
	total        atomic.Int64
}

// Compile-time interface check.
var _ SessionStore = (*InMemorySessionStore)(nil)

// NewInMemorySessionStore creates an empty store retaining at most window
// turns per session.
func NewInMemorySessionStore(window int) (*InMemorySessionStore, error) {
	if window <= 0 {
		return nil, solerr.Errorf(solerr.CodeStoreInvalidInput,
			"session window must be positive, got %d", window)
	}
	return &InMemorySessionStore{
		window:       window,
		sessions:     make(map[string]*sessionLog),
		sessionTurns: make(map[string]int),
	}, nil
}

func (s *InMemorySessionStore) Window() int { return s.window }

// lookup returns the log for sessionID, creating it when create is set.
func (s *InMemorySessionStore) lookup(sessionID string, create bool) *sessionLog {
	s.mu.RLock()
	sl, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok || !create {
		return sl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok = s.sessions[sessionID]; ok {
		return sl
	}
	sl = &sessionLog{}
	s.sessions[sessionID] = sl
	return sl
}

func (s *InMemorySessionStore) Append(_ context.Context, sessionID string, turns ...Turn) error {
	if sessionID == "" {
		return solerr.New(solerr.CodeStoreInvalidInput, "append: session ID is required")
	}
	for _, t := range turns {
		if err := t.Validate(); err != nil {
			return solerr.With(err, solerr.FieldSessionID(sessionID))
		}
	}

	sl := s.lookup(sessionID, true)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.turns = append(sl.turns, turns...)
	if excess := len(sl.turns) - s.window; excess > 0 {
		n := copy(sl.turns, sl.turns[excess:])
		clear(sl.turns[n:])
		sl.turns = sl.turns[:n]
		slog.Debug("evicted turns from session window",
			"session_id", sessionID,
			"evicted", excess,
			"window", s.window)
	}
	return nil
}

func (s *InMemorySessionStore) History(_ context.Context, sessionID string) []Turn {
	sl := s.lookup(sessionID, false)
	if sl == nil {
		return []Turn{}
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	out := make([]Turn, len(sl.turns))
	copy(out, sl.turns)
	return out
}

func (s *InMemorySessionStore) Clear(_ context.Context, sessionID string) {
	sl := s.lookup(sessionID, false)
	if sl == nil {
		return
	}

	sl.mu.Lock()
	sl.turns = nil
	sl.mu.Unlock()
}

func (s *InMemorySessionStore) ClearAll(_ context.Context) {
	s.mu.Lock()
	s.sessions = make(map[string]*sessionLog)
	s.mu.Unlock()
}

func (s *InMemorySessionStore) RecordTurns(sessionID string, n int) {
	if n <= 0 {
		return
	}
	s.statsMu.Lock()
	s.sessionTurns[sessionID] += n
	s.statsMu.Unlock()
	s.total.Add(int64(n))
}

func (s *InMemorySessionStore) Stats() UsageStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	turns := make(map[string]int, len(s.sessionTurns))
	ids := make([]string, 0, len(s.sessionTurns))
	for id, n := range s.sessionTurns {
		turns[id] = n
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return UsageStats{
		ActiveSessions: len(turns),
		TotalMessages:  s.total.Load(),
		SessionTurns:   turns,
		SessionIDs:     ids,
	}
}
