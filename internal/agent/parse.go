// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResultKind names the populated variant of a Result. Values double as
// wire names.
type ResultKind string

const (
	KindText        ResultKind = "text"
	KindExplanation ResultKind = "code_explanation"
	KindImprovement ResultKind = "code_improvement"
)

// Result is exactly one of TextResult, ExplanationResult or
// ImprovementResult.
type Result interface {
	Kind() ResultKind
	isResult()
}

// TextResult is free-form text.
type TextResult struct {
	Body string `json:"body"`
}

// ExplanationResult is a structured code explanation.
type ExplanationResult struct {
	Language            string   `json:"language"`
	Summary             string   `json:"summary,omitempty"`
	DetailedExplanation string   `json:"detailed_explanation"`
	KeyConcepts         []string `json:"key_concepts"`
}

// ImprovementResult is a structured code review with a rewritten version.
type ImprovementResult struct {
	OriginalIssues []string `json:"original_issues"`
	Suggestions    []string `json:"suggestions"`
	ImprovedCode   string   `json:"improved_code"`
	Explanation    string   `json:"explanation"`
}

func (TextResult) Kind() ResultKind        { return KindText }
func (ExplanationResult) Kind() ResultKind { return KindExplanation }
func (ImprovementResult) Kind() ResultKind { return KindImprovement }

func (TextResult) isResult()        {}
func (ExplanationResult) isResult() {}
func (ImprovementResult) isResult() {}

// ExpectedKind returns the result kind an intent produces when parsing
// succeeds.
func ExpectedKind(intent Intent) ResultKind {
	switch intent {
	case IntentExplain:
		return KindExplanation
	case IntentImprove:
		return KindImprovement
	default:
		return KindText
	}
}

// ParseOutcome is the parser's verdict. Fallback is set when a structured
// intent had to be downgraded to text; Reason says why.
type ParseOutcome struct {
	Result   Result
	Fallback bool
	Reason   string
}

// Parse converts raw completion text into the result shape expected for
// intent. It never fails: any problem with a structured response yields a
// TextResult holding raw with Fallback set.
func Parse(raw string, intent Intent) ParseOutcome {
	if !intent.Structured() {
		return ParseOutcome{Result: TextResult{Body: raw}}
	}

	candidate, ok := firstJSONObject(raw)
	if !ok {
		return fallback(raw, "no JSON object found in response")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return fallback(raw, "decoding JSON object: "+err.Error())
	}

	var (
		result Result
		err    error
	)
	switch intent {
	case IntentExplain:
		result, err = decodeExplanation(fields)
	case IntentImprove:
		result, err = decodeImprovement(fields)
	}
	if err != nil {
		return fallback(raw, err.Error())
	}
	return ParseOutcome{Result: result}
}

func fallback(raw, reason string) ParseOutcome {
	return ParseOutcome{
		Result:   TextResult{Body: raw},
		Fallback: true,
		Reason:   reason,
	}
}

func decodeExplanation(fields map[string]json.RawMessage) (ExplanationResult, error) {
	var (
		r   ExplanationResult
		err error
	)
	if r.Language, err = requireString(fields, "language", true); err != nil {
		return r, err
	}
	if r.DetailedExplanation, err = requireString(fields, "detailed_explanation", false); err != nil {
		return r, err
	}
	if r.KeyConcepts, err = requireStrings(fields, "key_concepts", 1); err != nil {
		return r, err
	}
	if _, present := fields["summary"]; present {
		if r.Summary, err = requireString(fields, "summary", false); err != nil {
			return r, err
		}
	}
	return r, nil
}

func decodeImprovement(fields map[string]json.RawMessage) (ImprovementResult, error) {
	var (
		r   ImprovementResult
		err error
	)
	if r.OriginalIssues, err = requireStrings(fields, "original_issues", 0); err != nil {
		return r, err
	}
	if r.Suggestions, err = requireStrings(fields, "suggestions", 0); err != nil {
		return r, err
	}
	if r.ImprovedCode, err = requireString(fields, "improved_code", false); err != nil {
		return r, err
	}
	if r.Explanation, err = requireString(fields, "explanation", false); err != nil {
		return r, err
	}
	return r, nil
}

func requireString(fields map[string]json.RawMessage, key string, nonEmpty bool) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	var s string
	if !isJSONString(raw) || json.Unmarshal(raw, &s) != nil {
		return "", fmt.Errorf("field %q must be a string", key)
	}
	if nonEmpty && strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("field %q must not be empty", key)
	}
	return s, nil
}

func requireStrings(fields map[string]json.RawMessage, key string, minLen int) ([]string, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil || items == nil {
		return nil, fmt.Errorf("field %q must be a list of strings", key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if !isJSONString(item) || json.Unmarshal(item, &s) != nil {
			return nil, fmt.Errorf("field %q must be a list of strings", key)
		}
		out = append(out, s)
	}
	if len(out) < minLen {
		return nil, fmt.Errorf("field %q needs at least %d entries", key, minLen)
	}
	return out, nil
}

// isJSONString rejects null, which json.Unmarshal would accept into a
// string as a no-op.
func isJSONString(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return len(s) > 0 && s[0] == '"'
}

// firstJSONObject returns the first balanced {...} span in s that is valid
// JSON. Braces inside JSON strings are skipped, so prose, code fences and
// embedded code do not confuse the scan.
func firstJSONObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end, ok := matchBrace(s, start); ok {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at start.
func matchBrace(s string, start int) (int, bool) {
	var (
		depth   int
		inStr   bool
		escaped bool
	)
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
