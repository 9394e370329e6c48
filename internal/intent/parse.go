package intent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// wireReply is the JSON shape the classification prompt asks the model
// to produce. Numeric fields are float64 pointers because models emit
// "7.0" as readily as "7", and absence must be distinguishable from zero.
type wireReply struct {
	IntentType string       `json:"intent_type"`
	Confidence *float64     `json:"confidence"`
	Entities   wireEntities `json:"entities"`
	UserGoal   string       `json:"user_goal"`
}

type wireEntities struct {
	Club         string   `json:"club"`
	Yardage      *float64 `json:"yardage"`
	Lie          string   `json:"lie"`
	Wind         string   `json:"wind"`
	Fatigue      *float64 `json:"fatigue"`
	Pain         *bool    `json:"pain"`
	ScoreContext string   `json:"score_context"`
	HoleNumber   *float64 `json:"hole_number"`
}

// ParseReply parses a raw model reply into a validated ParsedIntent.
// Required fields (a known intent_type, a numeric confidence in [0,1])
// fail the parse; entity-shape problems are recovered by clamping or
// dropping during Entities construction and never fail it.
func ParseReply(raw string) (ParsedIntent, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return ParsedIntent{}, fmt.Errorf("no JSON object in model reply")
	}

	var wire wireReply
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return ParsedIntent{}, fmt.Errorf("decode model reply: %w", err)
	}
	if wire.Confidence == nil {
		return ParsedIntent{}, fmt.Errorf("model reply missing confidence")
	}

	ents := NewEntities(
		wire.Entities.Club,
		floatToInt(wire.Entities.Yardage),
		wire.Entities.Lie,
		wire.Entities.Wind,
		floatToInt(wire.Entities.Fatigue),
		wire.Entities.Pain != nil && *wire.Entities.Pain,
		wire.Entities.ScoreContext,
		floatToInt(wire.Entities.HoleNumber),
	)

	return NewParsedIntent(Type(wire.IntentType), *wire.Confidence, ents, wire.UserGoal)
}

// extractJSON pulls the outermost JSON object out of a reply that may be
// wrapped in markdown code fences or surrounded by prose.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if fenced, ok := strings.CutPrefix(s, "```json"); ok {
		s = fenced
	} else if fenced, ok := strings.CutPrefix(s, "```"); ok {
		s = fenced
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func floatToInt(f *float64) *int {
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}
