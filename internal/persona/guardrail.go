// Package persona enforces the assistant's voice and safety rules on
// generated text. Every response shown to the user passes through
// [Formatter.Format]: guardrail pattern checks select at most one
// mandated disclaimer, filler language is stripped, formal wording is
// naturalized, absolute guarantees are softened, and relevant historical
// miss patterns can be appended. The rule tables live in rules.yaml,
// embedded at build time and compiled once.
package persona

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// DisclaimerType identifies which mandated disclaimer block applies.
type DisclaimerType string

const (
	DisclaimerMedical   DisclaimerType = "medical"
	DisclaimerCoaching  DisclaimerType = "coaching"
	DisclaimerBetting   DisclaimerType = "betting"
	DisclaimerGuarantee DisclaimerType = "guarantee"
)

// disclaimers holds the mandated disclaimer text per type.
var disclaimers = map[DisclaimerType]string{
	DisclaimerMedical:   "I'm not a medical professional — if this keeps bothering you, please see a doctor or physio before playing on.",
	DisclaimerCoaching:  "For swing changes, a teaching professional can check this in person; treat this as a starting point.",
	DisclaimerBetting:   "I can't help with wagering, but I'm happy to talk through how to play the hole.",
	DisclaimerGuarantee: "No shot is ever a sure thing — conditions and feel change day to day.",
}

// GuardrailResult reports the outcome of the pattern checks for one
// response. It is produced and consumed within a single Format call.
type GuardrailResult struct {
	NeedsDisclaimer bool
	Type            DisclaimerType
	ViolatedRule    string
}

// guardrailRule is one compiled (patterns → disclaimer) table row.
type guardrailRule struct {
	name       string
	disclaimer DisclaimerType
	patterns   []*regexp.Regexp
}

type rewrite struct {
	pattern *regexp.Regexp
	replace string
}

// ruleSet mirrors the rules.yaml document.
type ruleSet struct {
	Guardrails []struct {
		Name       string   `yaml:"name"`
		Disclaimer string   `yaml:"disclaimer"`
		Patterns   []string `yaml:"patterns"`
	} `yaml:"guardrails"`
	Fillers      []string `yaml:"fillers"`
	Replacements []struct {
		Match   string `yaml:"match"`
		Replace string `yaml:"replace"`
	} `yaml:"replacements"`
	Softenings []struct {
		Match   string `yaml:"match"`
		Replace string `yaml:"replace"`
	} `yaml:"softenings"`
}

// compiledRules is the parsed and compiled form of rules.yaml.
type compiledRules struct {
	guardrails   []guardrailRule
	fillers      []*regexp.Regexp
	replacements []rewrite
	softenings   []rewrite
}

func loadRules() (*compiledRules, error) {
	var rs ruleSet
	if err := yaml.Unmarshal(rulesYAML, &rs); err != nil {
		return nil, fmt.Errorf("parse rules.yaml: %w", err)
	}

	out := &compiledRules{}

	for _, g := range rs.Guardrails {
		rule := guardrailRule{name: g.Name, disclaimer: DisclaimerType(g.Disclaimer)}
		if _, ok := disclaimers[rule.disclaimer]; !ok {
			return nil, fmt.Errorf("guardrail %q references unknown disclaimer %q", g.Name, g.Disclaimer)
		}
		for _, p := range g.Patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return nil, fmt.Errorf("guardrail %q pattern %q: %w", g.Name, p, err)
			}
			rule.patterns = append(rule.patterns, re)
		}
		out.guardrails = append(out.guardrails, rule)
	}

	for _, p := range rs.Fillers {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("filler pattern %q: %w", p, err)
		}
		out.fillers = append(out.fillers, re)
	}

	for _, r := range rs.Replacements {
		out.replacements = append(out.replacements, rewrite{
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(r.Match) + `\b`),
			replace: r.Replace,
		})
	}

	for _, s := range rs.Softenings {
		out.softenings = append(out.softenings, rewrite{
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(s.Match) + `\b`),
			replace: s.Replace,
		})
	}

	return out, nil
}

// check runs the ordered guardrail rules against text. Detection is
// order-independent but disclaimer selection is first-match-priority.
func (r *compiledRules) check(text string) GuardrailResult {
	for _, rule := range r.guardrails {
		for _, p := range rule.patterns {
			if p.MatchString(text) {
				return GuardrailResult{
					NeedsDisclaimer: true,
					Type:            rule.disclaimer,
					ViolatedRule:    rule.name,
				}
			}
		}
	}
	return GuardrailResult{}
}
