// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package scanner

import (
	"context"
	"log/slog"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/metrics"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// Guard screens user messages before a turn runs.
type Guard struct {
	scanner *RegexScanner
	mode    Mode
	metrics *metrics.Metrics
}

// NewGuard builds a Guard over the built-in secret rules. A nil Guard is
// returned for ModeOff so callers can skip screening entirely.
func NewGuard(mode Mode, m *metrics.Metrics) (*Guard, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	if mode == ModeOff {
		return nil, nil
	}
	s, err := NewRegexScanner(SecretRules())
	if err != nil {
		return nil, err
	}
	return &Guard{scanner: s, mode: mode, metrics: m}, nil
}

// Mode reports how detections are handled.
func (g *Guard) Mode() Mode { return g.mode }

// Check scans message and applies the guard's mode. It returns the message
// to use for the turn.
func (g *Guard) Check(ctx context.Context, sessionID, message string) (string, error) {
	result, err := g.scanner.Scan(ctx, message)
	if err != nil {
		return "", err
	}
	if !result.Threat {
		return message, nil
	}

	rules := result.Rules()
	for _, r := range rules {
		g.metrics.ObserveSecret(r, string(g.mode))
	}
	slog.Warn("possible secret in message",
		"session_id", sessionID,
		"mode", string(g.mode),
		"rules", rules,
		"matches", len(result.Matches))

	out, err := ApplyMode(g.mode, message, result)
	if err != nil {
		return "", solerr.With(err, solerr.FieldSessionID(sessionID))
	}
	return out, nil
}
