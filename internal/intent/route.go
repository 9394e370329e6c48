package intent

import "fmt"

// Confidence thresholds for the decision tiers. Each threshold is the
// inclusive lower bound of its tier: 0.75 routes, 0.50 confirms.
const (
	ThresholdRoute   = 0.75
	ThresholdConfirm = 0.50
)

// TierFor maps a confidence score to its outcome tier.
func TierFor(confidence float64) ResultKind {
	switch {
	case confidence >= ThresholdRoute:
		return KindRoute
	case confidence >= ThresholdConfirm:
		return KindConfirm
	default:
		return KindClarify
	}
}

// Clarifier produces a disambiguation message and candidate intents for
// low-confidence input. Implemented by the clarify package.
type Clarifier interface {
	// Generate returns the clarification message and 1-3 suggestions.
	// parsed is non-nil when a low-confidence parse exists.
	Generate(originalInput string, parsed *ParsedIntent) (string, []Suggestion)
}

// Route applies the confidence tiers to a parsed intent and builds the
// final result. normalized is the normalized user input, used for
// clarification wording.
func Route(parsed ParsedIntent, normalized string, clarifier Clarifier) Result {
	switch TierFor(parsed.Confidence) {
	case KindRoute:
		target, ok := TargetFor(parsed.Type, parsed.Entities)
		if !ok {
			// Every valid type has a routing entry; reaching this means
			// the table and the type list drifted apart.
			return NewError("classification failed", true)
		}
		return NewRoute(parsed, target)

	case KindConfirm:
		return NewConfirm(parsed, confirmMessage(parsed))

	default:
		message, suggestions := clarifier.Generate(normalized, &parsed)
		result, err := NewClarify(normalized, message, suggestions, &parsed)
		if err != nil {
			return NewError("classification failed", true)
		}
		return result
	}
}

// confirmMessage builds a yes/no question naming the most salient
// extracted entity so the user can catch a misread.
func confirmMessage(parsed ParsedIntent) string {
	action := confirmActions[parsed.Type]
	if action == "" {
		action = "do that"
	}
	if salient := SalientEntity(parsed.Entities); salient != "" {
		return fmt.Sprintf("Just to check — you want me to %s with %s?", action, salient)
	}
	return fmt.Sprintf("Just to check — you want me to %s?", action)
}

// confirmActions phrases each intent as the action being confirmed.
var confirmActions = map[Type]string{
	TypeRecordShot:         "log that shot",
	TypeRecordScore:        "record that score",
	TypeClubRecommendation: "suggest a club",
	TypeAdjustClubDistance: "adjust your club distances",
	TypeStartRound:         "start a new round",
	TypeEndRound:           "finish this round",
	TypeAdvanceHole:        "move to the next hole",
	TypeHoleStrategy:       "talk through this hole",
	TypeCheckWeather:       "check the conditions",
	TypeReportFatigue:      "note how you're feeling",
	TypeReportPain:         "note that you're hurting",
	TypeRoundSummary:       "pull up your round summary",
	TypeMissPatterns:       "look at your miss patterns",
	TypeScoreQuery:         "check your score",
	TypeGeneralChat:        "chat",
}

// SalientEntity returns the most salient extracted entity as a short
// phrase, or "" when nothing stands out. Clubs outrank yardages, which
// outrank hole numbers.
func SalientEntity(e Entities) string {
	switch {
	case e.Club != nil:
		return "your " + e.Club.Name
	case e.Yardage != nil:
		return fmt.Sprintf("%d yards", *e.Yardage)
	case e.HoleNumber != nil:
		return fmt.Sprintf("hole %d", *e.HoleNumber)
	default:
		return ""
	}
}
