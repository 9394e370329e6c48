// Package normalize rewrites raw utterances into the canonical form the
// classifier sees: domain abbreviations expanded, spoken numbers
// converted to digits, profanity masked, whitespace collapsed. The rule
// tables are data-driven (rules.yaml, embedded at build time) and
// compiled once at startup. Normalize is pure and idempotent.
package normalize

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// profanityMask replaces each masked word. Fixed length regardless of
// the original word so nothing about it leaks into logs or prompts.
const profanityMask = "****"

type ruleSet struct {
	Abbreviations []struct {
		Match   string `yaml:"match"`
		Replace string `yaml:"replace"`
	} `yaml:"abbreviations"`
	Profanity []string `yaml:"profanity"`
}

type rewriteRule struct {
	pattern *regexp.Regexp
	replace string
}

var (
	abbrevRules []rewriteRule
	profanityRe *regexp.Regexp
	spaceRe     = regexp.MustCompile(`\s+`)
)

func init() {
	var rs ruleSet
	if err := yaml.Unmarshal(rulesYAML, &rs); err != nil {
		panic(fmt.Sprintf("normalize: bad embedded rules.yaml: %v", err))
	}

	for _, a := range rs.Abbreviations {
		abbrevRules = append(abbrevRules, rewriteRule{
			pattern: compileWord(a.Match),
			replace: a.Replace,
		})
	}

	if len(rs.Profanity) > 0 {
		quoted := make([]string, len(rs.Profanity))
		for i, w := range rs.Profanity {
			quoted[i] = regexp.QuoteMeta(w)
		}
		profanityRe = regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	}
}

// compileWord builds a case-insensitive whole-word pattern. Boundary
// assertions are only valid next to word characters, so they are added
// conditionally ("w/" ends on a non-word rune).
func compileWord(phrase string) *regexp.Regexp {
	expr := regexp.QuoteMeta(phrase)
	runes := []rune(phrase)
	if isWordRune(runes[0]) {
		expr = `\b` + expr
	}
	if isWordRune(runes[len(runes)-1]) {
		expr += `\b`
	}
	return regexp.MustCompile(`(?i)` + expr)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Normalize rewrites raw input into canonical form. It is pure and
// idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	for _, rule := range abbrevRules {
		s = rule.pattern.ReplaceAllString(s, rule.replace)
	}

	s = convertSpokenNumbers(s)

	if profanityRe != nil {
		s = profanityRe.ReplaceAllString(s, profanityMask)
	}

	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

var numberUnits = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18,
	"nineteen": 19,
}

var numberTens = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// convertSpokenNumbers rewrites runs of spoken-number words into digits:
// "one hundred and fifty five yards" becomes "155 yards". Hyphenated
// forms like "fifty-five" are handled by splitting on the hyphen.
func convertSpokenNumbers(s string) string {
	words := strings.Fields(s)
	var out []string

	for i := 0; i < len(words); {
		value, consumed, trailing := parseNumberRun(words[i:])
		if consumed == 0 {
			out = append(out, words[i])
			i++
			continue
		}
		out = append(out, strconv.Itoa(value)+trailing)
		i += consumed
	}

	return strings.Join(out, " ")
}

// parseNumberRun consumes the longest spoken-number prefix of words and
// returns its value, how many words were consumed, and any punctuation
// attached to the last consumed word. consumed is 0 when words does not
// start a number.
func parseNumberRun(words []string) (value, consumed int, trailing string) {
	total := 0
	matched := 0

	for i := 0; i < len(words); i++ {
		word, punct := splitTrailingPunct(strings.ToLower(words[i]))

		switch {
		case word == "a" && i+1 < len(words) && strings.HasPrefix(strings.ToLower(words[i+1]), "hundred"):
			// "a hundred" — the "a" contributes 1.
			if punct != "" || matched > 0 {
				return total, matched, ""
			}
			total = 1

		case word == "hundred":
			if total == 0 {
				total = 1
			}
			total *= 100

		case word == "and":
			// Only glue "and" between hundreds and a following number word.
			if matched == 0 || total < 100 || punct != "" || i+1 >= len(words) || !isNumberWord(words[i+1]) {
				return total, matched, ""
			}
			matched = i + 1
			continue

		case isNumberWord(word):
			v := hyphenatedValue(word)
			if v >= 20 && total >= 1 && total <= 9 {
				// "one fifty" is spoken shorthand for 150.
				total = total*100 + v
			} else {
				total += v
			}

		default:
			return total, matched, ""
		}

		matched = i + 1
		if punct != "" {
			return total, matched, punct
		}
	}

	return total, matched, ""
}

func splitTrailingPunct(w string) (word, punct string) {
	trimmed := strings.TrimRightFunc(w, func(r rune) bool {
		return unicode.IsPunct(r)
	})
	return trimmed, w[len(trimmed):]
}

func isNumberWord(w string) bool {
	word, _ := splitTrailingPunct(strings.ToLower(w))
	if _, ok := numberUnits[word]; ok {
		return true
	}
	if _, ok := numberTens[word]; ok {
		return true
	}
	if tens, units, found := strings.Cut(word, "-"); found {
		_, okT := numberTens[tens]
		_, okU := numberUnits[units]
		return okT && okU
	}
	return false
}

func hyphenatedValue(word string) int {
	if v, ok := numberUnits[word]; ok {
		return v
	}
	if v, ok := numberTens[word]; ok {
		return v
	}
	if tens, units, found := strings.Cut(word, "-"); found {
		return numberTens[tens] + numberUnits[units]
	}
	return 0
}
