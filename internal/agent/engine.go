// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/metrics"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/store"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// Generation defaults used when EngineConfig leaves Options empty.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 2000
)

// DefaultRequestTimeout caps a single completion attempt.
const DefaultRequestTimeout = 120 * time.Second

// State is a step of a single turn.
type State string

const (
	StateScreening          State = "screening"
	StateClassifying        State = "classifying"
	StateBuildingContext    State = "building_context"
	StateAwaitingCompletion State = "awaiting_completion"
	StateRetrying           State = "retrying"
	StateParsing            State = "parsing"
	StateUpdating           State = "updating"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// EngineHooks observes turn progress. Every field is optional.
type EngineHooks struct {
	OnTransition func(sessionID string, state State)
}

// InputScanner screens a user message before the turn uses it. It returns
// the message to continue with, or an error that rejects the turn.
type InputScanner interface {
	Check(ctx context.Context, sessionID, message string) (string, error)
}

// EngineConfig holds the Engine's dependencies.
type EngineConfig struct {
	Store  store.SessionStore
	Router provider.Router
	// ModelRef is "provider/model"; empty routes to the router's default.
	ModelRef string
	Options  provider.ChatOptions
	Retry    RetryPolicy
	// RequestTimeout bounds each completion attempt; a retry gets a fresh
	// deadline. Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration
	Metrics        *metrics.Metrics
	Hooks          *EngineHooks
	// Scanner is optional. When set, the screened message is what gets
	// classified, sent and remembered.
	Scanner InputScanner
	// DisableAnalysis skips the [Code Analysis] annotation on structured
	// intents.
	DisableAnalysis bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Response is the outcome of a successful turn.
type Response struct {
	SessionID string
	Intent    Intent
	Kind      ResultKind
	Result    Result
	// Fallback is set when a structured intent came back as text.
	Fallback       bool
	FallbackReason string
	Retries        int
	Usage          provider.Usage
}

// HistoryEntry is one remembered turn as shown to users.
type HistoryEntry struct {
	Role      store.Role
	Content   string
	Timestamp time.Time
}

// Truncated returns Content cut to maxChars with a trailing ellipsis.
// maxChars <= 0 leaves it whole.
func (h HistoryEntry) Truncated(maxChars int) string {
	runes := []rune(h.Content)
	if maxChars <= 0 || len(runes) <= maxChars {
		return h.Content
	}
	return string(runes[:maxChars]) + "..."
}

// Stats is the engine-wide usage summary.
type Stats struct {
	ActiveSessions int
	TotalMessages  int64
	SessionIDs     []string
}

// Engine runs dialogue turns. Turns for the same session are serialized on
// a Lane; different sessions proceed in parallel.
type Engine struct {
	store    store.SessionStore
	router   provider.Router
	modelRef string
	options  provider.ChatOptions
	retry    RetryPolicy
	timeout  time.Duration
	metrics  *metrics.Metrics
	hooks    *EngineHooks
	scanner  InputScanner
	analyze  bool
	now      func() time.Time
	lanes    *LanePool
}

// NewEngine validates cfg and returns a ready Engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, solerr.New(solerr.CodeAgentInputInvalid, "engine: session store is required")
	}
	if cfg.Router == nil {
		return nil, solerr.New(solerr.CodeAgentInputInvalid, "engine: provider router is required")
	}
	if cfg.Options.Temperature == 0 && cfg.Options.MaxTokens == 0 {
		cfg.Options.Temperature = DefaultTemperature
		cfg.Options.MaxTokens = DefaultMaxTokens
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, err
	}
	switch {
	case cfg.RequestTimeout < 0:
		return nil, solerr.Errorf(solerr.CodeAgentInputInvalid,
			"engine: request timeout must be positive, got %s", cfg.RequestTimeout)
	case cfg.RequestTimeout == 0:
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		store:    cfg.Store,
		router:   cfg.Router,
		modelRef: cfg.ModelRef,
		options:  cfg.Options,
		retry:    cfg.Retry,
		timeout:  cfg.RequestTimeout,
		metrics:  cfg.Metrics,
		hooks:    cfg.Hooks,
		scanner:  cfg.Scanner,
		analyze:  !cfg.DisableAnalysis,
		now:      cfg.Now,
		lanes:    NewLanePool(),
	}, nil
}

// Handle runs one turn: classify, build context, complete with retries,
// parse, then commit both turns to memory. Memory and stats change only
// when the whole turn succeeds. Once the completion call has been issued
// the turn finishes even if ctx is cancelled, but the caller stops waiting.
func (e *Engine) Handle(ctx context.Context, sessionID, message string) (*Response, error) {
	if err := validateTurnInput(sessionID, message); err != nil {
		return nil, err
	}

	var resp *Response
	err := e.lanes.Submit(ctx, sessionID, func(ctx context.Context) error {
		r, err := e.turn(ctx, sessionID, message)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func validateTurnInput(sessionID, message string) error {
	if strings.TrimSpace(sessionID) == "" {
		return solerr.New(solerr.CodeAgentInputInvalid, "session ID is required")
	}
	if strings.TrimSpace(message) == "" {
		return solerr.New(solerr.CodeAgentInputInvalid, "message must not be empty",
			solerr.FieldSessionID(sessionID))
	}
	return nil
}

type completion struct {
	text  string
	usage provider.Usage
}

func (e *Engine) turn(ctx context.Context, sessionID, message string) (*Response, error) {
	if e.scanner != nil {
		e.transition(sessionID, StateScreening)
		screened, err := e.scanner.Check(ctx, sessionID, message)
		if err != nil {
			return nil, e.fail(sessionID, "", err)
		}
		message = screened
	}

	// Step 1: classify.
	e.transition(sessionID, StateClassifying)
	intent := Classify(message)

	// Step 2: build the request from the remembered window plus this message.
	e.transition(sessionID, StateBuildingContext)
	req := e.buildRequest(ctx, sessionID, intent, message)

	if err := ctx.Err(); err != nil {
		return nil, e.fail(sessionID, intent, err)
	}

	// Step 3: complete. The provider call is about to be issued, so the
	// rest of the turn must not be interrupted by the caller. Each attempt
	// still has its own deadline so a stalled upstream cannot hold the lane.
	ctx = context.WithoutCancel(ctx)
	start := e.now()
	out, retries, err := Execute(ctx, e.retry, func(ctx context.Context) (completion, error) {
		e.transition(sessionID, StateAwaitingCompletion)
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		return e.complete(ctx, req)
	}, func(retry int, delay time.Duration, _ error) {
		e.transition(sessionID, StateRetrying)
		e.metrics.ObserveRetry()
		slog.Warn("rate limited, retrying completion",
			"session_id", sessionID,
			"intent", string(intent),
			"attempt", retry,
			"delay", delay)
	})
	e.metrics.ObserveCompletion(e.now().Sub(start))
	if err != nil {
		return nil, e.fail(sessionID, intent, err)
	}

	// Step 4: parse.
	e.transition(sessionID, StateParsing)
	parsed := Parse(out.text, intent)
	if parsed.Fallback {
		e.metrics.ObserveFallback(string(intent))
		slog.Warn("structured response fell back to text",
			"session_id", sessionID,
			"intent", string(intent),
			"reason", parsed.Reason)
	}

	// Step 5: commit both turns in one append so readers never see a user
	// turn without its reply.
	e.transition(sessionID, StateUpdating)
	now := e.now()
	err = e.store.Append(ctx, sessionID,
		store.Turn{ID: uuid.NewString(), Role: store.RoleUser, Content: message, Timestamp: now},
		store.Turn{ID: uuid.NewString(), Role: store.RoleAssistant, Content: out.text, Timestamp: now},
	)
	if err != nil {
		return nil, e.fail(sessionID, intent, err)
	}
	e.store.RecordTurns(sessionID, 2)

	resp := &Response{
		SessionID:      sessionID,
		Intent:         intent,
		Kind:           parsed.Result.Kind(),
		Result:         parsed.Result,
		Fallback:       parsed.Fallback,
		FallbackReason: parsed.Reason,
		Retries:        retries,
		Usage:          out.usage,
	}
	e.metrics.ObserveTurn(string(intent), string(resp.Kind))
	e.metrics.ObserveTokens(out.usage.InputTokens, out.usage.OutputTokens)
	e.transition(sessionID, StateDone)

	slog.Debug("turn complete",
		"session_id", sessionID,
		"intent", string(intent),
		"kind", string(resp.Kind),
		"retries", retries)
	return resp, nil
}

func (e *Engine) buildRequest(ctx context.Context, sessionID string, intent Intent, message string) provider.ChatRequest {
	history := e.store.History(ctx, sessionID)
	msgs := make([]provider.Message, 0, len(history)+1)
	for _, t := range history {
		msgs = append(msgs, provider.Message{Role: t.Role, Content: t.Content})
	}

	content := message
	if e.analyze && intent.Structured() {
		content = annotate(message)
	}
	msgs = append(msgs, provider.Message{Role: store.RoleUser, Content: content})

	return provider.ChatRequest{
		Messages:     msgs,
		SystemPrompt: SystemPrompt(intent),
		Options:      e.options,
	}
}

// complete routes and runs a single completion attempt. Routing happens per
// attempt so a provider that cooled down can be skipped on retry.
func (e *Engine) complete(ctx context.Context, req provider.ChatRequest) (completion, error) {
	p, model, err := e.router.Route(ctx, e.modelRef)
	if err != nil {
		return completion{}, err
	}
	req.Model = model

	text, usage, err := provider.Complete(ctx, p, req)
	if err != nil {
		return completion{}, err
	}
	return completion{text: text, usage: usage}, nil
}

func (e *Engine) fail(sessionID string, intent Intent, err error) error {
	e.transition(sessionID, StateFailed)
	e.metrics.ObserveFailure(string(solerr.CodeOf(err)))
	slog.Error("turn failed",
		"session_id", sessionID,
		"intent", string(intent),
		"error", err)
	return solerr.With(err, solerr.FieldSessionID(sessionID), solerr.FieldIntent(string(intent)))
}

func (e *Engine) transition(sessionID string, s State) {
	if e.hooks != nil && e.hooks.OnTransition != nil {
		e.hooks.OnTransition(sessionID, s)
	}
}

// ClearSession forgets a session's history. It waits for any in-flight turn
// of that session, and always succeeds. The session's lane is released once
// it has no more queued turns.
func (e *Engine) ClearSession(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	err := e.lanes.Submit(ctx, sessionID, func(ctx context.Context) error {
		e.store.Clear(ctx, sessionID)
		return nil
	})
	if err != nil {
		e.store.Clear(context.WithoutCancel(ctx), sessionID)
	}
	slog.Info("session cleared", "session_id", sessionID)
}

// ClearAll forgets every session. Usage counters are kept.
func (e *Engine) ClearAll(ctx context.Context) {
	e.store.ClearAll(ctx)
	slog.Info("all sessions cleared")
}

// History returns the remembered turns of a session, oldest first.
func (e *Engine) History(ctx context.Context, sessionID string) []HistoryEntry {
	turns := e.store.History(ctx, sessionID)
	out := make([]HistoryEntry, len(turns))
	for i, t := range turns {
		out[i] = HistoryEntry{Role: t.Role, Content: t.Content, Timestamp: t.Timestamp}
	}
	return out
}

// Stats returns usage totals across all sessions.
func (e *Engine) Stats() Stats {
	s := e.store.Stats()
	return Stats{
		ActiveSessions: s.ActiveSessions,
		TotalMessages:  s.TotalMessages,
		SessionIDs:     s.SessionIDs,
	}
}

// Window is the number of turns remembered per session.
func (e *Engine) Window() int { return e.store.Window() }

// ModelRef is the configured "provider/model" reference.
func (e *Engine) ModelRef() string { return e.modelRef }

// Close waits for in-flight turns and stops all session lanes.
func (e *Engine) Close() {
	e.lanes.Close()
}
