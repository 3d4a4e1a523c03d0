// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/agent"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/store"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// fakeAssistant records messages and replies with a canned response.
type fakeAssistant struct {
	messages []string
	sessions []string
	cleared  []string
	history  []agent.HistoryEntry
	resp     *agent.Response
	err      error
}

func (f *fakeAssistant) Handle(_ context.Context, sessionID, message string) (*agent.Response, error) {
	f.messages = append(f.messages, message)
	f.sessions = append(f.sessions, sessionID)
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &agent.Response{
		SessionID: sessionID,
		Intent:    agent.IntentGeneral,
		Kind:      agent.KindText,
		Result:    agent.TextResult{Body: "echo: " + message},
	}, nil
}

func (f *fakeAssistant) ClearSession(_ context.Context, sessionID string) {
	f.cleared = append(f.cleared, sessionID)
	f.history = nil
}

func (f *fakeAssistant) History(_ context.Context, _ string) []agent.HistoryEntry {
	return f.history
}

func (f *fakeAssistant) Stats() agent.Stats {
	return agent.Stats{ActiveSessions: 2, TotalMessages: 7, SessionIDs: []string{"a", "b"}}
}

func runREPL(t *testing.T, eng assistant, input string) (string, *slog.LevelVar) {
	t.Helper()
	out := new(bytes.Buffer)
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	r := newREPL(eng, strings.NewReader(input), out, "cli-session", level)
	require.NoError(t, r.run(context.Background()))
	return out.String(), level
}

func TestREPL_SendsMessages(t *testing.T) {
	eng := &fakeAssistant{}
	out, _ := runREPL(t, eng, "hello\n\n   \nwhat is a slice?\n/quit\n")

	assert.Equal(t, []string{"hello", "what is a slice?"}, eng.messages)
	assert.Equal(t, []string{"cli-session", "cli-session"}, eng.sessions)
	assert.Contains(t, out, "Ready!")
	assert.Contains(t, out, "echo: hello")
	assert.Contains(t, out, "Processing...")
	assert.Contains(t, out, "Goodbye! Happy coding!")
}

func TestREPL_EOFEndsSession(t *testing.T) {
	eng := &fakeAssistant{}
	out, _ := runREPL(t, eng, "hello")
	assert.Equal(t, []string{"hello"}, eng.messages)
	assert.NotContains(t, out, "Goodbye")
}

func TestREPL_Commands(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
		check func(t *testing.T, eng *fakeAssistant)
	}{
		{
			name:  "clear",
			input: "/clear\n/quit\n",
			want:  []string{"Memory cleared! Starting fresh conversation."},
			check: func(t *testing.T, eng *fakeAssistant) {
				assert.Equal(t, []string{"cli-session"}, eng.cleared)
			},
		},
		{
			name:  "commands are case insensitive",
			input: "/CLEAR\n/Exit\n",
			want:  []string{"Memory cleared!", "Goodbye!"},
		},
		{
			name:  "empty memory",
			input: "/memory\n/quit\n",
			want:  []string{"No conversation history in this session."},
		},
		{
			name:  "stats",
			input: "/stats\n/quit\n",
			want:  []string{"Session Statistics:", "Active sessions: 2", "Total messages: 7", "Session IDs: a, b"},
		},
		{
			name:  "help",
			input: "/help\n/quit\n",
			want:  []string{"Help:", "/memory"},
		},
		{
			name:  "code mode",
			input: "/code\nfunc add(a, b int) int {\n  return a + b\n}\nEND\n/quit\n",
			want:  []string{"type END on a new line to finish"},
			check: func(t *testing.T, eng *fakeAssistant) {
				require.Len(t, eng.messages, 1)
				assert.Equal(t, "func add(a, b int) int {\n  return a + b\n}", eng.messages[0])
			},
		},
		{
			name:  "empty code mode",
			input: "/code\nEND\n/quit\n",
			want:  []string{"No code entered. Try again."},
			check: func(t *testing.T, eng *fakeAssistant) {
				assert.Empty(t, eng.messages)
			},
		},
		{
			name:  "fenced block spans lines",
			input: "```go\nx := 1\n```\n/quit\n",
			want:  []string{"Multi-line code detected."},
			check: func(t *testing.T, eng *fakeAssistant) {
				require.Len(t, eng.messages, 1)
				assert.Equal(t, "```go\nx := 1\n```", eng.messages[0])
			},
		},
		{
			name:  "single line fenced block is sent as is",
			input: "explain ```x := 1```\n/quit\n",
			check: func(t *testing.T, eng *fakeAssistant) {
				assert.Equal(t, []string{"explain ```x := 1```"}, eng.messages)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeAssistant{}
			out, _ := runREPL(t, eng, tt.input)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			if tt.check != nil {
				tt.check(t, eng)
			}
		})
	}
}

func TestREPL_Memory(t *testing.T) {
	eng := &fakeAssistant{history: []agent.HistoryEntry{
		{Role: store.RoleUser, Content: "what is a channel?"},
		{Role: store.RoleAssistant, Content: strings.Repeat("x", 250)},
	}}
	out, _ := runREPL(t, eng, "/memory\n/quit\n")

	assert.Contains(t, out, "Conversation History (2 messages):")
	assert.Contains(t, out, "1. User:")
	assert.Contains(t, out, "2. Assistant:")
	assert.Contains(t, out, strings.Repeat("x", 200)+"...")
	assert.NotContains(t, out, strings.Repeat("x", 201))
}

func TestREPL_DebugToggle(t *testing.T) {
	eng := &fakeAssistant{}
	out, level := runREPL(t, eng, "/debug\n/quit\n")
	assert.Contains(t, out, "Debug mode: ON")
	assert.Equal(t, slog.LevelDebug, level.Level())

	out, level = runREPL(t, eng, "/debug\n/debug\n/quit\n")
	assert.Contains(t, out, "Debug mode: OFF")
	assert.Equal(t, slog.LevelWarn, level.Level())
}

func TestREPL_ErrorShowsUserMessage(t *testing.T) {
	err := solerr.New(solerr.CodeProviderRateLimitExhausted, "openai: 429 after 3 retries")
	eng := &fakeAssistant{err: err}

	out, _ := runREPL(t, eng, "hello\n/quit\n")
	assert.Contains(t, out, solerr.UserMessage(err))
	assert.NotContains(t, out, "after 3 retries")

	out, _ = runREPL(t, eng, "/debug\nhello\n/quit\n")
	assert.Contains(t, out, "after 3 retries")
}

func TestOneShot(t *testing.T) {
	eng := &fakeAssistant{resp: &agent.Response{
		Intent: agent.IntentExplain,
		Kind:   agent.KindExplanation,
		Result: agent.ExplanationResult{
			Language:            "go",
			Summary:             "Adds two ints.",
			DetailedExplanation: "Returns a + b.",
			KeyConcepts:         []string{"functions", "ints"},
		},
	}}
	out := new(bytes.Buffer)

	require.NoError(t, oneShot(context.Background(), eng, out, nil, "s1", "explain func add(a, b int) int { return a + b; }"))
	assert.Equal(t, []string{"s1"}, eng.sessions)
	assert.Contains(t, out.String(), "Code Explanation")
	assert.Contains(t, out.String(), "Language: go")
	assert.Contains(t, out.String(), "Summary: Adds two ints.")
	assert.Contains(t, out.String(), "Key Concepts: functions, ints")
}

func TestOneShot_Error(t *testing.T) {
	eng := &fakeAssistant{err: solerr.New(solerr.CodeAgentInputInvalid, "empty message")}
	err := oneShot(context.Background(), eng, new(bytes.Buffer), nil, "s1", "")
	require.Error(t, err)
	assert.True(t, solerr.HasCode(err, solerr.CodeAgentInputInvalid))
	assert.Equal(t, solerr.UserMessage(eng.err), err.Error())
}

func TestOneShot_HidesProviderDetails(t *testing.T) {
	upstream := stderrors.New(`POST https://models.github.ai/inference/chat/completions: 401 {"message":"Bad credentials token ghp_secretish"}`)
	eng := &fakeAssistant{err: provider.ClassifyStatus("github", 401, upstream)}

	out := new(bytes.Buffer)
	err := oneShot(context.Background(), eng, out, nil, "s1", "hello")
	require.Error(t, err)

	assert.Equal(t, solerr.CodeProviderAuthFailure, solerr.CodeOf(err))
	assert.Equal(t, solerr.UserMessage(eng.err), err.Error())
	for _, leak := range []string{"ghp_secretish", "Bad credentials", "models.github.ai"} {
		assert.NotContains(t, err.Error(), leak)
		assert.NotContains(t, fmt.Sprintf("%+v", err), leak)
		assert.NotContains(t, out.String(), leak)
	}

	// With a details writer (--verbose) the raw chain is shown there.
	details := new(bytes.Buffer)
	err = oneShot(context.Background(), eng, out, details, "s1", "hello")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "ghp_secretish")
	assert.Contains(t, details.String(), "Bad credentials")
}

func TestREPL_DebugOffRestoresStartingLevel(t *testing.T) {
	out := new(bytes.Buffer)
	level := new(slog.LevelVar)
	level.Set(quietLevel)
	r := newREPL(&fakeAssistant{}, strings.NewReader("/debug\n/debug\n/quit\n"), out, "cli-session", level)
	require.NoError(t, r.run(context.Background()))

	assert.Equal(t, quietLevel, level.Level())
}

func TestRenderResponse(t *testing.T) {
	tests := []struct {
		name string
		resp *agent.Response
		want []string
	}{
		{
			name: "improvement",
			resp: &agent.Response{Result: agent.ImprovementResult{
				Suggestions:  []string{"use a map"},
				ImprovedCode: "m := map[string]int{}",
				Explanation:  "faster lookups",
			}},
			want: []string{"Code Improvement Suggestions", "Issues Found:", "(none)", "1. use a map", "m := map[string]int{}", "Explanation: faster lookups"},
		},
		{
			name: "fallback text",
			resp: &agent.Response{
				Result:         agent.TextResult{Body: "raw answer"},
				Fallback:       true,
				FallbackReason: "invalid JSON",
				Retries:        2,
			},
			want: []string{"raw answer", "structured answer unavailable: invalid JSON", "succeeded after 2 retries"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := new(bytes.Buffer)
			renderResponse(out, tt.resp)
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}
}
