// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package agent

import (
	"regexp"
	"strings"
)

// Intent is the routing decision for a message. Values double as wire names.
type Intent string

const (
	IntentGeneral Intent = "general_question"
	IntentExplain Intent = "code_explanation"
	IntentImprove Intent = "code_improvement"
)

func (i Intent) String() string { return string(i) }

// Valid reports whether i is one of the three known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentGeneral, IntentExplain, IntentImprove:
		return true
	}
	return false
}

// Structured reports whether the intent expects a JSON result.
func (i Intent) Structured() bool {
	return i == IntentExplain || i == IntentImprove
}

var (
	// fencedBlock matches a fenced code block, including an unterminated
	// trailing fence.
	fencedBlock = regexp.MustCompile("(?s)```.*?(```|$)")

	explainVerbs = regexp.MustCompile(`(?i)\b(explain\w*|what\s+does|how\s+does|walk\s+me\s+through|what\s+is\s+this\s+code)\b`)
	improveVerbs = regexp.MustCompile(`(?i)\b(improv\w*|optimi[sz]\w*|refactor\w*|fix\w*|better|clean\s+up|speed\s+up|review\w*)\b`)

	// codeMarkers match constructs that only show up in source code.
	codeMarkers = []*regexp.Regexp{
		regexp.MustCompile(`\bdef\s+\w+\s*\(`),
		regexp.MustCompile(`\bfunc\s*(\([^)]*\)\s*)?\w*\s*\(`),
		regexp.MustCompile(`\bfunction\s*\w*\s*\(`),
		regexp.MustCompile(`\bclass\s+\w+\s*[:({]`),
		regexp.MustCompile(`=>`),
		regexp.MustCompile(`#include`),
		regexp.MustCompile(`\bpublic\s+static\b`),
		regexp.MustCompile(`(?s)\{.*;.*\}`),
	}
)

// HasCode reports whether message contains something that looks like code.
func HasCode(message string) bool {
	if strings.Contains(message, "```") {
		return true
	}
	for _, re := range codeMarkers {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}

// Classify routes a message to an intent. It is pure and total: anything
// that does not clearly ask to explain or improve code is General. Verbs
// inside fenced blocks are ignored so code identifiers cannot steer routing.
func Classify(message string) Intent {
	if strings.TrimSpace(message) == "" || !HasCode(message) {
		return IntentGeneral
	}

	prose := fencedBlock.ReplaceAllString(message, " ")
	explain := explainVerbs.MatchString(prose)
	improve := improveVerbs.MatchString(prose)

	switch {
	case explain && !improve:
		return IntentExplain
	case improve && !explain:
		return IntentImprove
	default:
		return IntentGeneral
	}
}
