// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package agent

import (
	"fmt"
	"regexp"
	"strings"
)

// CodeAnalysis is a cheap structural summary of a snippet, attached to
// explain and improve prompts so the model has line and symbol counts.
type CodeAnalysis struct {
	Language  string
	Lines     int
	Functions int
	Classes   int
	Hints     []string
}

var (
	functionDecl = regexp.MustCompile(`\bdef\s+\w+|function\s+\w+|fn\s+\w+`)
	classDecl    = regexp.MustCompile(`\bclass\s+\w+`)
)

// languageRules are checked in order; the first match wins.
var languageRules = []struct {
	name    string
	markers []string
}{
	{"Python", []string{"def ", "import ", "class "}},
	{"JavaScript", []string{"function", "const ", "let ", "=>"}},
	{"Java", []string{"public class", "private ", "void "}},
	{"C/C++", []string{"#include", "int main"}},
}

// Analyze runs the static heuristics over code.
func Analyze(code string) CodeAnalysis {
	a := CodeAnalysis{
		Language:  "unknown",
		Lines:     len(strings.Split(strings.TrimSpace(code), "\n")),
		Functions: len(functionDecl.FindAllStringIndex(code, -1)),
		Classes:   len(classDecl.FindAllStringIndex(code, -1)),
	}

rules:
	for _, rule := range languageRules {
		for _, m := range rule.markers {
			if strings.Contains(code, m) {
				a.Language = rule.name
				break rules
			}
		}
	}

	if a.Lines > 50 {
		a.Hints = append(a.Hints, "Large code block (>50 lines)")
	}
	if strings.Count(code, "for ")+strings.Count(code, "while ") > 3 {
		a.Hints = append(a.Hints, "Multiple loops detected")
	}
	if strings.Count(code, "if ") > 5 {
		a.Hints = append(a.Hints, "High branching complexity")
	}
	return a
}

func (a CodeAnalysis) String() string {
	hints := "Simple structure"
	if len(a.Hints) > 0 {
		hints = strings.Join(a.Hints, ", ")
	}
	return fmt.Sprintf("Code Analysis:\n- Language: %s\n- Lines: %d\n- Functions: %d\n- Classes: %d\n- Complexity hints: %s",
		a.Language, a.Lines, a.Functions, a.Classes, hints)
}

// shouldAnalyze reports whether a message is long enough and code-like
// enough to be worth annotating.
func shouldAnalyze(message string) bool {
	if len(message) <= 20 {
		return false
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "def ") ||
		strings.Contains(lower, "function") ||
		strings.Contains(lower, "class ") ||
		HasCode(message)
}

// annotate appends the analysis block to message when it applies.
func annotate(message string) string {
	if !shouldAnalyze(message) {
		return message
	}
	return message + "\n\n[Code Analysis]:\n" + Analyze(message).String()
}
