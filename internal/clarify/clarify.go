// Package clarify generates disambiguation suggestions for
// low-confidence classifications. Candidates come from a fixed table of
// lexical cues matched against the normalized input; a borderline parse
// (confidence at or above the inclusion floor) is front-loaded so the
// model's best guess still leads the list.
package clarify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fairwaylabs/caddie/internal/intent"
)

// InclusionFloor is the minimum confidence at which a parsed intent is
// guaranteed a slot among the suggestions even though overall confidence
// triggered clarification.
const InclusionFloor = 0.30

// cue maps lexical markers to a candidate intent. Cues are evaluated in
// order; earlier rows rank higher.
type cue struct {
	words  []string
	intent intent.Type
}

// cueTable is the fixed relevance table. Physical-state words before
// equipment words before scoring words, matching how often each theme
// shows up in mid-round speech.
var cueTable = []cue{
	{words: []string{"hurt", "hurts", "pain", "sore", "ache", "twinge"}, intent: intent.TypeReportPain},
	{words: []string{"tired", "exhausted", "fatigue", "legs", "drained", "gassed"}, intent: intent.TypeReportFatigue},
	{words: []string{"club", "iron", "wedge", "wood", "driver", "putter", "hybrid"}, intent: intent.TypeClubRecommendation},
	{words: []string{"long", "short", "distance", "carry", "yards"}, intent: intent.TypeAdjustClubDistance},
	{words: []string{"score", "bogey", "birdie", "par", "eagle", "double"}, intent: intent.TypeRecordScore},
	{words: []string{"shot", "hit", "missed", "sliced", "hooked", "chunked", "thinned"}, intent: intent.TypeRecordShot},
	{words: []string{"wind", "rain", "weather", "cold", "gusty"}, intent: intent.TypeCheckWeather},
	{words: []string{"hole", "tee", "layup", "strategy", "play"}, intent: intent.TypeHoleStrategy},
	{words: []string{"stats", "summary", "history", "patterns", "trend"}, intent: intent.TypeRoundSummary},
}

// labels are the human-readable suggestion labels shown to the user.
var labels = map[intent.Type]string{
	intent.TypeRecordShot:         "Log a shot",
	intent.TypeRecordScore:        "Record a score",
	intent.TypeClubRecommendation: "Get a club recommendation",
	intent.TypeAdjustClubDistance: "Adjust a club distance",
	intent.TypeStartRound:         "Start a round",
	intent.TypeEndRound:           "Finish the round",
	intent.TypeAdvanceHole:        "Move to the next hole",
	intent.TypeHoleStrategy:       "Talk through this hole",
	intent.TypeCheckWeather:       "Check the conditions",
	intent.TypeReportFatigue:      "Note how you're feeling",
	intent.TypeReportPain:         "Flag some pain",
	intent.TypeRoundSummary:       "See your round summary",
	intent.TypeMissPatterns:       "Review your miss patterns",
	intent.TypeScoreQuery:         "Check your score",
	intent.TypeGeneralChat:        "Just chat",
}

// defaultSuggestions fill in when no cue matches at all; a clarification
// must always offer at least one option.
var defaultSuggestions = []intent.Type{
	intent.TypeRecordShot,
	intent.TypeClubRecommendation,
	intent.TypeRoundSummary,
}

// Generator implements intent.Clarifier.
type Generator struct {
	logger *slog.Logger
}

// NewGenerator creates a clarification generator.
func NewGenerator(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{logger: logger}
}

// Generate produces the clarification message and 1-3 ranked
// suggestions for the given normalized input. parsed, when non-nil and
// at or above InclusionFloor, is front-loaded into the suggestions.
func (g *Generator) Generate(originalInput string, parsed *intent.ParsedIntent) (string, []intent.Suggestion) {
	var types []intent.Type
	seen := make(map[intent.Type]bool)

	add := func(t intent.Type) {
		if !seen[t] && len(types) < intent.MaxSuggestions {
			seen[t] = true
			types = append(types, t)
		}
	}

	if parsed != nil && parsed.Confidence >= InclusionFloor {
		add(parsed.Type)
	}

	lowered := strings.ToLower(originalInput)
	for _, c := range cueTable {
		for _, w := range c.words {
			if containsWord(lowered, w) {
				add(c.intent)
				break
			}
		}
	}

	if len(types) == 0 {
		for _, t := range defaultSuggestions {
			add(t)
		}
	}

	suggestions := make([]intent.Suggestion, len(types))
	for i, t := range types {
		suggestions[i] = intent.Suggestion{Type: t, Label: labels[t]}
	}

	g.logger.Debug("clarification generated",
		"input_len", len(originalInput), "suggestions", len(suggestions))

	message := fmt.Sprintf("I'm not sure what you meant by %q — did you mean one of these?", originalInput)
	return message, suggestions
}

// containsWord reports whether text contains w as a whole word.
func containsWord(text, w string) bool {
	for rest := text; ; {
		idx := strings.Index(rest, w)
		if idx == -1 {
			return false
		}
		beforeOK := idx == 0 || !isAlnum(rest[idx-1])
		afterIdx := idx + len(w)
		afterOK := afterIdx >= len(rest) || !isAlnum(rest[afterIdx])
		if beforeOK && afterOK {
			return true
		}
		rest = rest[idx+1:]
	}
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
