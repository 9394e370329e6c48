package persona

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
)

// MissPattern is a historical record of a recurring shot deviation,
// consumed read-only for response personalization.
type MissPattern struct {
	Direction       string
	Club            string
	Frequency       int
	Confidence      float64
	PressureContext string
	LastOccurrence  time.Time
}

// PatternConfidenceFloor filters which miss patterns are worth
// mentioning; MaxPatternsReferenced bounds how many are.
const (
	PatternConfidenceFloor = 0.6
	MaxPatternsReferenced  = 2
)

// Options control one Format call.
type Options struct {
	// SensitiveInput forces the medical disclaimer even when the
	// response text itself is clean — set when the user's preceding
	// input mentioned pain or similar.
	SensitiveInput bool
	// IncludePatterns appends a summary of relevant miss patterns.
	IncludePatterns bool
}

// FormattedResponse is the final text plus flags describing what the
// formatter did to it.
type FormattedResponse struct {
	Text               string
	DisclaimerAdded    bool
	DisclaimerType     DisclaimerType
	ViolatedRule       string
	PatternsReferenced int
}

// Formatter applies the persona guardrails and voice rules. Safe for
// concurrent use; all state is read-only after construction.
type Formatter struct {
	rules  *compiledRules
	logger *slog.Logger
}

// NewFormatter compiles the embedded rule tables. It fails only when
// rules.yaml is malformed, which is a build problem, not a runtime one.
func NewFormatter(logger *slog.Logger) (*Formatter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rules, err := loadRules()
	if err != nil {
		return nil, err
	}
	return &Formatter{rules: rules, logger: logger}, nil
}

var (
	multiSpaceRe   = regexp.MustCompile(`[ \t]+`)
	spacePunctRe   = regexp.MustCompile(`\s+([.,!?;:])`)
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
)

// Format runs rawResponse through the full persona pass: markdown
// flattening, guardrail checks, filler stripping, word substitution,
// guarantee softening, optional miss-pattern summary, and at most one
// disclaimer. Output is deterministic for identical input and options.
func (f *Formatter) Format(rawResponse string, relevantPatterns []MissPattern, opts Options) FormattedResponse {
	text := FlattenMarkdown(rawResponse)

	// Guardrails run against the pre-substitution text so that the
	// language being softened still selects its disclaimer.
	guard := f.rules.check(text)
	if opts.SensitiveInput {
		guard = GuardrailResult{
			NeedsDisclaimer: true,
			Type:            DisclaimerMedical,
			ViolatedRule:    "sensitive_input",
		}
	}

	for _, re := range f.rules.fillers {
		text = re.ReplaceAllString(text, "")
	}
	for _, r := range f.rules.replacements {
		text = r.pattern.ReplaceAllString(text, r.replace)
	}
	for _, s := range f.rules.softenings {
		text = s.pattern.ReplaceAllString(text, s.replace)
	}
	text = tidy(text)

	out := FormattedResponse{
		DisclaimerAdded: guard.NeedsDisclaimer,
		DisclaimerType:  guard.Type,
		ViolatedRule:    guard.ViolatedRule,
	}

	if opts.IncludePatterns {
		if summary, n := patternSummary(relevantPatterns); n > 0 {
			text += "\n\n" + summary
			out.PatternsReferenced = n
		}
	}

	if guard.NeedsDisclaimer {
		text += "\n\n" + disclaimers[guard.Type]
		f.logger.Debug("disclaimer appended",
			"type", guard.Type, "rule", guard.ViolatedRule)
	}

	out.Text = text
	return out
}

// tidy collapses the whitespace damage left by stripping and empty
// substitutions.
func tidy(s string) string {
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = spacePunctRe.ReplaceAllString(s, "$1")
	s = multiNewlineRe.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// patternSummary renders the top relevant miss patterns as a short
// bulleted block. Patterns below the confidence floor are skipped; at
// most MaxPatternsReferenced are included, highest confidence first.
func patternSummary(patterns []MissPattern) (string, int) {
	var kept []MissPattern
	for _, p := range patterns {
		if p.Confidence >= PatternConfidenceFloor {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "", 0
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})
	if len(kept) > MaxPatternsReferenced {
		kept = kept[:MaxPatternsReferenced]
	}

	var sb strings.Builder
	sb.WriteString("Worth remembering from your recent rounds:\n")
	for _, p := range kept {
		fmt.Fprintf(&sb, "- You %s miss %s", frequencyWord(p.Frequency), p.Direction)
		if p.Club != "" {
			fmt.Fprintf(&sb, " with your %s", p.Club)
		}
		if p.PressureContext != "" {
			fmt.Fprintf(&sb, " %s", p.PressureContext)
		}
		fmt.Fprintf(&sb, " (%.0f%% confidence)\n", p.Confidence*100)
	}
	return strings.TrimRight(sb.String(), "\n"), len(kept)
}

// frequencyWord maps an occurrence count to a qualitative word.
func frequencyWord(n int) string {
	switch {
	case n >= 8:
		return "almost always"
	case n >= 5:
		return "often"
	case n >= 3:
		return "sometimes"
	default:
		return "occasionally"
	}
}
