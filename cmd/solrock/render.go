// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/agent"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/store"
)

// --- lipgloss styles ---

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	codeStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

const banner = `Solrock - code assistant

Commands:
  /clear   Clear conversation memory
  /memory  View conversation history
  /stats   Show session statistics
  /code    Enter multi-line code mode (type END on a new line to finish)
  /debug   Toggle debug logging
  /help    Show this help message
  /quit    Exit

Paste code directly, or wrap it in triple backticks.`

func renderBanner(w io.Writer) {
	_, _ = fmt.Fprintln(w, titleStyle.Render(banner))
}

func renderHelp(w io.Writer) {
	_, _ = fmt.Fprintln(w, headingStyle.Render("Help:"))
	for _, line := range []string{
		"/clear   Clear conversation memory",
		"/memory  View conversation history",
		"/stats   Show session statistics",
		"/code    Enter multi-line code mode",
		"/debug   Toggle debug logging",
		"/help    Show this help message",
		"/quit    Exit",
	} {
		_, _ = fmt.Fprintln(w, "  "+line)
	}
}

// renderResponse prints a turn result in the shape of its kind.
func renderResponse(w io.Writer, resp *agent.Response) {
	var b strings.Builder

	switch r := resp.Result.(type) {
	case agent.ExplanationResult:
		b.WriteString(headingStyle.Render("Code Explanation") + "\n")
		fmt.Fprintf(&b, "  Language: %s\n", r.Language)
		if r.Summary != "" {
			fmt.Fprintf(&b, "  Summary: %s\n", r.Summary)
		}
		fmt.Fprintf(&b, "\n  Detailed Explanation:\n%s\n", indent(r.DetailedExplanation, "  "))
		fmt.Fprintf(&b, "\n  Key Concepts: %s\n", strings.Join(r.KeyConcepts, ", "))

	case agent.ImprovementResult:
		b.WriteString(headingStyle.Render("Code Improvement Suggestions") + "\n")
		b.WriteString("\n  Issues Found:\n")
		writeNumbered(&b, r.OriginalIssues)
		b.WriteString("\n  Suggestions:\n")
		writeNumbered(&b, r.Suggestions)
		b.WriteString("\n  Improved Code:\n")
		b.WriteString(codeStyle.Render(r.ImprovedCode) + "\n")
		fmt.Fprintf(&b, "\n  Explanation: %s\n", r.Explanation)

	case agent.TextResult:
		b.WriteString(headingStyle.Render("Answer") + "\n")
		b.WriteString(r.Body + "\n")
		if resp.Fallback {
			b.WriteString(dimStyle.Render("(structured answer unavailable: "+resp.FallbackReason+")") + "\n")
		}
	}

	if resp.Retries > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("(succeeded after %d retries)", resp.Retries)) + "\n")
	}
	_, _ = fmt.Fprint(w, b.String())
}

func writeNumbered(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("    (none)\n")
		return
	}
	for i, item := range items {
		fmt.Fprintf(b, "    %d. %s\n", i+1, item)
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// memoryMaxChars bounds each remembered turn shown by /memory.
const memoryMaxChars = 200

func renderMemory(w io.Writer, history []agent.HistoryEntry) {
	if len(history) == 0 {
		_, _ = fmt.Fprintln(w, dimStyle.Render("No conversation history in this session."))
		return
	}
	_, _ = fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Conversation History (%d messages):", len(history))))
	for i, h := range history {
		role := "User"
		if h.Role == store.RoleAssistant {
			role = "Assistant"
		}
		_, _ = fmt.Fprintf(w, "\n%d. %s:\n%s\n", i+1, role, indent(h.Truncated(memoryMaxChars), "   "))
	}
}

func renderStats(w io.Writer, s agent.Stats) {
	_, _ = fmt.Fprintln(w, headingStyle.Render("Session Statistics:"))
	_, _ = fmt.Fprintf(w, "  Active sessions: %d\n", s.ActiveSessions)
	_, _ = fmt.Fprintf(w, "  Total messages: %d\n", s.TotalMessages)
	if len(s.SessionIDs) > 0 {
		_, _ = fmt.Fprintf(w, "  Session IDs: %s\n", strings.Join(s.SessionIDs, ", "))
	}
}
