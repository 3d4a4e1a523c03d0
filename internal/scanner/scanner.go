// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

// Package scanner detects credentials pasted into user messages. Code
// snippets often carry API keys, tokens and connection strings that should
// not be forwarded to a model provider or kept in session memory.
package scanner

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// Severity indicates how critical a detection is.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Valid reports whether the severity is a known severity level.
func (s Severity) Valid() bool {
	return s == SeverityHigh || s == SeverityMedium
}

// Rule defines a detection pattern.
type Rule struct {
	Name     string
	Pattern  *regexp.Regexp
	Severity Severity
}

// Match describes a single pattern match. Location and Length are byte
// offsets into ScanResult.Content.
type Match struct {
	Rule     string
	Location int
	Length   int
	Severity Severity
}

// ScanResult holds the outcome of a scan.
type ScanResult struct {
	Threat  bool
	Matches []Match
	// Content is the normalized input the match offsets refer to.
	Content string
}

// Rules returns the distinct rule names that matched, in match order.
func (r ScanResult) Rules() []string {
	var names []string
	for _, m := range r.Matches {
		if !slices.Contains(names, m.Rule) {
			names = append(names, m.Rule)
		}
	}
	return names
}

// DefaultMaxContentLength bounds the content RegexScanner inspects (1MB).
// Larger content is reported as a single content_too_large match.
const DefaultMaxContentLength = 1 << 20

// RegexScanner matches content against compiled rules.
type RegexScanner struct {
	rules            []Rule
	maxContentLength int
}

// NewRegexScanner creates a scanner with the given rules.
func NewRegexScanner(rules []Rule) (*RegexScanner, error) {
	for i, r := range rules {
		if r.Pattern == nil {
			return nil, solerr.Errorf(solerr.CodeScannerRuleInvalid, "rule %d (%s) has nil pattern", i, r.Name)
		}
		if r.Name == "" {
			return nil, solerr.Errorf(solerr.CodeScannerRuleInvalid, "rule %d has empty name", i)
		}
		if !r.Severity.Valid() {
			return nil, solerr.Errorf(solerr.CodeScannerRuleInvalid, "rule %d (%s) has invalid severity %q", i, r.Name, r.Severity)
		}
	}
	return &RegexScanner{rules: rules, maxContentLength: DefaultMaxContentLength}, nil
}

// invisibleCharReplacer strips zero-width and other invisible characters
// that could split a token so no pattern matches it.
var invisibleCharReplacer = strings.NewReplacer(
	"\u200b", "", // zero-width space
	"\u200c", "", // zero-width non-joiner
	"\u200d", "", // zero-width joiner
	"\ufeff", "", // zero-width no-break space / BOM
	"\u00ad", "", // soft hyphen
	"\u034f", "", // combining grapheme joiner
	"\u2060", "", // word joiner
	"\u2061", "", // invisible function application
	"\u2062", "", // invisible times
	"\u2063", "", // invisible separator
	"\u2064", "", // invisible plus
)

// normalize strips invisible characters and applies NFKC so fullwidth and
// other compatibility forms match the ASCII patterns.
func normalize(s string) string {
	return norm.NFKC.String(invisibleCharReplacer.Replace(s))
}

// Scan checks content against every rule.
func (s *RegexScanner) Scan(_ context.Context, content string) (ScanResult, error) {
	content = normalize(content)

	if len(content) > s.maxContentLength {
		return ScanResult{Threat: true, Content: content, Matches: []Match{{
			Rule:     "content_too_large",
			Length:   len(content),
			Severity: SeverityHigh,
		}}}, nil
	}

	result := ScanResult{Content: content}
	for _, rule := range s.rules {
		for _, loc := range rule.Pattern.FindAllStringIndex(content, -1) {
			result.Threat = true
			result.Matches = append(result.Matches, Match{
				Rule:     rule.Name,
				Location: loc[0],
				Length:   loc[1] - loc[0],
				Severity: rule.Severity,
			})
		}
	}
	return result, nil
}

// Mode defines how a detection is handled.
type Mode string

const (
	ModeOff    Mode = "off"
	ModeFlag   Mode = "flag"
	ModeRedact Mode = "redact"
	ModeBlock  Mode = "block"
)

// Modes lists every accepted mode.
var Modes = []Mode{ModeOff, ModeFlag, ModeRedact, ModeBlock}

// ParseMode parses a mode string (case-insensitive).
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Modes, m) {
		return m, nil
	}
	return "", solerr.Errorf(solerr.CodeConfigValidateInvalidValue, "invalid scanner mode: %q", s)
}

// ApplyMode applies mode to a scan of content. Flag returns content
// unchanged, redact returns the normalized content with every match
// replaced, and block returns CodeScannerInputBlocked.
func ApplyMode(mode Mode, content string, result ScanResult) (string, error) {
	if !result.Threat {
		return content, nil
	}

	switch mode {
	case ModeOff, ModeFlag:
		return content, nil
	case ModeRedact:
		return redact(result.Content, result.Matches), nil
	case ModeBlock:
		return "", solerr.New(solerr.CodeScannerInputBlocked,
			"message blocked: it appears to contain a secret",
			solerr.Field("matches", len(result.Matches)),
			solerr.Field("rules", strings.Join(result.Rules(), ",")),
		)
	default:
		return "", solerr.Errorf(solerr.CodeConfigValidateInvalidValue, "unknown scanner mode %q", mode)
	}
}

// redact replaces matched regions with [REDACTED:<rule>]. Overlapping
// matches are merged and keep the first rule name.
func redact(content string, matches []Match) string {
	sorted := slices.DeleteFunc(slices.Clone(matches), func(m Match) bool {
		return m.Location < 0 || m.Length < 0 || m.Location > len(content)
	})
	if len(sorted) == 0 {
		return content
	}
	slices.SortStableFunc(sorted, func(a, b Match) int { return a.Location - b.Location })

	type span struct {
		start, end int
		rule       string
	}
	spans := []span{{sorted[0].Location, sorted[0].Location + sorted[0].Length, sorted[0].Rule}}
	for _, m := range sorted[1:] {
		last := &spans[len(spans)-1]
		end := m.Location + m.Length
		if m.Location <= last.end {
			last.end = max(last.end, end)
			continue
		}
		spans = append(spans, span{m.Location, end, m.Rule})
	}

	var b strings.Builder
	b.Grow(len(content))
	pos := 0
	for _, s := range spans {
		b.WriteString(content[pos:s.start])
		b.WriteString("[REDACTED:" + s.rule + "]")
		pos = min(s.end, len(content))
	}
	b.WriteString(content[pos:])
	return b.String()
}
