// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/agent"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// DefaultSessionID is used when a request names no session.
const DefaultSessionID = "default"

// DefaultMaxChars bounds each message returned by /api/memory.
const DefaultMaxChars = 200

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "chat",
		Method:      http.MethodPost,
		Path:        "/api/chat",
		Summary:     "Send a message to the assistant",
		Tags:        []string{"chat"},
	}, s.handleChat)

	huma.Register(s.api, huma.Operation{
		OperationID: "clear-memory",
		Method:      http.MethodPost,
		Path:        "/api/clear",
		Summary:     "Forget a session's history",
		Tags:        []string{"sessions"},
	}, s.handleClear)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-memory",
		Method:      http.MethodPost,
		Path:        "/api/memory",
		Summary:     "Show a session's remembered turns",
		Tags:        []string{"sessions"},
	}, s.handleMemory)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/api/stats",
		Summary:     "Usage statistics",
		Tags:        []string{"system"},
	}, s.handleStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, s.handleHealth)
}

// --- Request/Response types for huma ---

type chatInput struct {
	Body struct {
		Message   string `json:"message" doc:"User message, may contain fenced code"`
		SessionID string `json:"session_id,omitempty" doc:"Conversation to continue, defaults to \"default\""`
	}
}

type chatOutput struct {
	Body struct {
		Response  any    `json:"response" doc:"Plain text or a structured object, see type"`
		Type      string `json:"type" enum:"text,code_explanation,code_improvement" doc:"Shape of response"`
		Intent    string `json:"intent" doc:"Classified intent"`
		SessionID string `json:"session_id"`
		Fallback  bool   `json:"fallback" doc:"A structured answer could not be parsed and is returned as text"`
	}
}

type sessionInput struct {
	Body struct {
		SessionID string `json:"session_id,omitempty"`
	} `required:"false"`
}

type clearOutput struct {
	Body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
}

type memoryInput struct {
	Body struct {
		SessionID string `json:"session_id,omitempty"`
		MaxChars  int    `json:"max_chars,omitempty" minimum:"0" doc:"Truncate each message to this many characters, defaults to 200"`
	} `required:"false"`
}

// MemoryMessage is one remembered turn as returned by /api/memory.
type MemoryMessage struct {
	Role    string `json:"role" enum:"user,assistant,system"`
	Content string `json:"content"`
}

type memoryOutput struct {
	Body struct {
		SessionID    string          `json:"session_id"`
		MessageCount int             `json:"message_count"`
		Messages     []MemoryMessage `json:"messages"`
	}
}

type statsOutput struct {
	Body struct {
		ActiveSessions int      `json:"active_sessions"`
		TotalMessages  int64    `json:"total_messages"`
		SessionIDs     []string `json:"session_ids"`
	}
}

// ProviderHealth is the health summary of one provider.
type ProviderHealth struct {
	Available    bool  `json:"available"`
	FailureCount int64 `json:"failure_count"`
}

// HealthBody is the JSON body of the health endpoint response.
type HealthBody struct {
	Status           string                    `json:"status" enum:"healthy,degraded" doc:"Health status"`
	AgentInitialized bool                      `json:"agent_initialized"`
	Providers        map[string]ProviderHealth `json:"providers,omitempty"`
}

// HealthResponse wraps the health check response.
type HealthResponse struct {
	Body HealthBody
}

// --- Handlers ---

func sessionOrDefault(id string) string {
	if id = strings.TrimSpace(id); id == "" {
		return DefaultSessionID
	}
	return id
}

func (s *Server) engine() (Engine, error) {
	if s.deps.Engine == nil {
		return nil, solerr.New(solerr.CodeServerAgentUnavailable, "agent not initialized")
	}
	return s.deps.Engine, nil
}

// toHTTPError maps err onto a problem response carrying only user-safe text.
func toHTTPError(op string, err error) error {
	status := solerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", "error", err, "code", string(solerr.CodeOf(err)))
	} else {
		slog.Warn(op+" rejected", "error", err, "code", string(solerr.CodeOf(err)))
	}
	return huma.NewError(status, solerr.UserMessage(err))
}

func (s *Server) handleChat(ctx context.Context, input *chatInput) (*chatOutput, error) {
	eng, err := s.engine()
	if err != nil {
		return nil, toHTTPError("chat", err)
	}

	sessionID := sessionOrDefault(input.Body.SessionID)
	resp, err := eng.Handle(ctx, sessionID, input.Body.Message)
	if err != nil {
		return nil, toHTTPError("chat", err)
	}

	out := &chatOutput{}
	out.Body.Response = responseBody(resp.Result)
	out.Body.Type = string(resp.Kind)
	out.Body.Intent = string(resp.Intent)
	out.Body.SessionID = resp.SessionID
	out.Body.Fallback = resp.Fallback
	return out, nil
}

// responseBody flattens text results to a bare string.
func responseBody(r agent.Result) any {
	if t, ok := r.(agent.TextResult); ok {
		return t.Body
	}
	return r
}

func (s *Server) handleClear(ctx context.Context, input *sessionInput) (*clearOutput, error) {
	eng, err := s.engine()
	if err != nil {
		return nil, toHTTPError("clear", err)
	}

	sessionID := sessionOrDefault(input.Body.SessionID)
	eng.ClearSession(ctx, sessionID)

	out := &clearOutput{}
	out.Body.Success = true
	out.Body.Message = fmt.Sprintf("Memory cleared for session %s", sessionID)
	return out, nil
}

func (s *Server) handleMemory(ctx context.Context, input *memoryInput) (*memoryOutput, error) {
	eng, err := s.engine()
	if err != nil {
		return nil, toHTTPError("memory", err)
	}

	sessionID := sessionOrDefault(input.Body.SessionID)
	maxChars := input.Body.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	history := eng.History(ctx, sessionID)
	out := &memoryOutput{}
	out.Body.SessionID = sessionID
	out.Body.MessageCount = len(history)
	out.Body.Messages = make([]MemoryMessage, len(history))
	for i, h := range history {
		out.Body.Messages[i] = MemoryMessage{Role: string(h.Role), Content: h.Truncated(maxChars)}
	}
	return out, nil
}

func (s *Server) handleStats(_ context.Context, _ *struct{}) (*statsOutput, error) {
	eng, err := s.engine()
	if err != nil {
		return nil, toHTTPError("stats", err)
	}

	st := eng.Stats()
	out := &statsOutput{}
	out.Body.ActiveSessions = st.ActiveSessions
	out.Body.TotalMessages = st.TotalMessages
	out.Body.SessionIDs = st.SessionIDs
	if out.Body.SessionIDs == nil {
		out.Body.SessionIDs = []string{}
	}
	return out, nil
}

// handleHealth reports degraded when the engine is missing or every
// registered provider is cooling down.
func (s *Server) handleHealth(_ context.Context, _ *struct{}) (*HealthResponse, error) {
	body := HealthBody{
		Status:           "healthy",
		AgentInitialized: s.deps.Engine != nil,
	}
	if !body.AgentInitialized {
		body.Status = "degraded"
	}

	if s.deps.Health != nil {
		health := s.deps.Health.Health()
		if len(health) > 0 {
			body.Providers = make(map[string]ProviderHealth, len(health))
			anyAvailable := false
			for name, h := range health {
				body.Providers[name] = ProviderHealth{Available: h.Available, FailureCount: h.FailureCount}
				anyAvailable = anyAvailable || h.Available
			}
			if !anyAvailable {
				body.Status = "degraded"
			}
		}
	}
	return &HealthResponse{Body: body}, nil
}
