// Package intent implements LLM-backed intent classification for the
// caddie assistant. It turns a free-form utterance plus session context
// into a ClassificationResult: a direct navigation route, a confirmation
// prompt, a clarification request, or an error.
package intent

import (
	"fmt"
	"regexp"
	"strings"
)

// Type is the user's inferred goal category.
type Type string

const (
	TypeRecordShot         Type = "record_shot"
	TypeRecordScore        Type = "record_score"
	TypeClubRecommendation Type = "club_recommendation"
	TypeAdjustClubDistance Type = "adjust_club_distance"
	TypeStartRound         Type = "start_round"
	TypeEndRound           Type = "end_round"
	TypeAdvanceHole        Type = "advance_hole"
	TypeHoleStrategy       Type = "hole_strategy"
	TypeCheckWeather       Type = "check_weather"
	TypeReportFatigue      Type = "report_fatigue"
	TypeReportPain         Type = "report_pain"
	TypeRoundSummary       Type = "round_summary"
	TypeMissPatterns       Type = "miss_patterns"
	TypeScoreQuery         Type = "score_query"
	TypeGeneralChat        Type = "general_chat"
)

// AllTypes lists every known intent type, in the order presented to the
// model in the classification prompt.
var AllTypes = []Type{
	TypeRecordShot,
	TypeRecordScore,
	TypeClubRecommendation,
	TypeAdjustClubDistance,
	TypeStartRound,
	TypeEndRound,
	TypeAdvanceHole,
	TypeHoleStrategy,
	TypeCheckWeather,
	TypeReportFatigue,
	TypeReportPain,
	TypeRoundSummary,
	TypeMissPatterns,
	TypeScoreQuery,
	TypeGeneralChat,
}

// Valid reports whether t is a known intent type.
func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Module identifies which app module owns a routing destination.
type Module string

const (
	// ModuleRound covers live round tracking: shots, scores, holes.
	ModuleRound Module = "round"
	// ModuleCaddie covers recommendations and hole strategy.
	ModuleCaddie Module = "caddie"
	// ModuleStats covers history, summaries, and miss patterns.
	ModuleStats Module = "stats"
	// ModuleSettings covers equipment adjustment and profile.
	ModuleSettings Module = "settings"
)

// RoutingTarget is the destination a high-confidence intent dispatches to.
// Constructed here, consumed by the navigation collaborator.
type RoutingTarget struct {
	Module     Module            `json:"module"`
	Screen     string            `json:"screen"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// routingTable maps each intent type to its module and screen. Parameters
// are filled in from extracted entities at routing time.
var routingTable = map[Type]RoutingTarget{
	TypeRecordShot:         {Module: ModuleRound, Screen: "shot-entry"},
	TypeRecordScore:        {Module: ModuleRound, Screen: "scorecard"},
	TypeClubRecommendation: {Module: ModuleCaddie, Screen: "club-recommendation"},
	TypeAdjustClubDistance: {Module: ModuleSettings, Screen: "club-distances"},
	TypeStartRound:         {Module: ModuleRound, Screen: "round-setup"},
	TypeEndRound:           {Module: ModuleRound, Screen: "round-summary"},
	TypeAdvanceHole:        {Module: ModuleRound, Screen: "hole-view"},
	TypeHoleStrategy:       {Module: ModuleCaddie, Screen: "hole-strategy"},
	TypeCheckWeather:       {Module: ModuleCaddie, Screen: "conditions"},
	TypeReportFatigue:      {Module: ModuleRound, Screen: "readiness"},
	TypeReportPain:         {Module: ModuleRound, Screen: "readiness"},
	TypeRoundSummary:       {Module: ModuleStats, Screen: "round-history"},
	TypeMissPatterns:       {Module: ModuleStats, Screen: "miss-patterns"},
	TypeScoreQuery:         {Module: ModuleRound, Screen: "scorecard"},
	TypeGeneralChat:        {Module: ModuleCaddie, Screen: "chat"},
}

// TargetFor returns the routing target for an intent type with parameters
// derived from the extracted entities. The second return is false for
// unknown types.
func TargetFor(t Type, ents Entities) (RoutingTarget, bool) {
	base, ok := routingTable[t]
	if !ok {
		return RoutingTarget{}, false
	}
	params := make(map[string]string)
	if ents.Club != nil {
		params["club"] = ents.Club.Name
	}
	if ents.Yardage != nil {
		params["yardage"] = fmt.Sprintf("%d", *ents.Yardage)
	}
	if ents.HoleNumber != nil {
		params["hole"] = fmt.Sprintf("%d", *ents.HoleNumber)
	}
	if ents.Lie != "" {
		params["lie"] = ents.Lie
	}
	if len(params) > 0 {
		base.Parameters = params
	}
	return base, true
}

// ClubRef identifies a club mentioned by the user, with the name in
// canonical display form (e.g. "7-Iron").
type ClubRef struct {
	Name string `json:"name"`
}

// Entities holds the optional entities extracted from an utterance.
// Out-of-range numeric values are clamped or dropped at construction;
// entity-shape problems never fail a classification.
type Entities struct {
	Club         *ClubRef `json:"club,omitempty"`
	Yardage      *int     `json:"yardage,omitempty"`
	Lie          string   `json:"lie,omitempty"`
	Wind         string   `json:"wind,omitempty"`
	Fatigue      *int     `json:"fatigue,omitempty"`
	Pain         bool     `json:"pain,omitempty"`
	ScoreContext string   `json:"score_context,omitempty"`
	HoleNumber   *int     `json:"hole_number,omitempty"`
}

const (
	fatigueMin = 1
	fatigueMax = 10
	holeMin    = 1
	holeMax    = 18
)

// NewEntities builds Entities from raw extracted values, applying the
// tolerant validation rules: fatigue clamps into [1,10], hole numbers
// outside [1,18] become absent, non-positive yardage becomes absent, and
// club names are canonicalized.
func NewEntities(club string, yardage *int, lie, wind string, fatigue *int, pain bool, scoreContext string, hole *int) Entities {
	e := Entities{
		Lie:          strings.TrimSpace(strings.ToLower(lie)),
		Wind:         strings.TrimSpace(wind),
		Pain:         pain,
		ScoreContext: strings.TrimSpace(scoreContext),
	}

	if name := CanonicalClub(club); name != "" {
		e.Club = &ClubRef{Name: name}
	}
	if yardage != nil && *yardage > 0 {
		v := *yardage
		e.Yardage = &v
	}
	if fatigue != nil {
		v := *fatigue
		if v < fatigueMin {
			v = fatigueMin
		}
		if v > fatigueMax {
			v = fatigueMax
		}
		e.Fatigue = &v
	}
	if hole != nil && *hole >= holeMin && *hole <= holeMax {
		v := *hole
		e.HoleNumber = &v
	}
	return e
}

// numberedClubRe matches "7 iron", "7-iron", "7i", "3 wood", "3w", "5h".
var numberedClubRe = regexp.MustCompile(`^([1-9])[\s-]?(iron|wood|hybrid|i|w|h)$`)

// namedClubs maps spoken club names to canonical display names.
var namedClubs = map[string]string{
	"driver":         "Driver",
	"putter":         "Putter",
	"pitching wedge": "Pitching Wedge",
	"pw":             "Pitching Wedge",
	"gap wedge":      "Gap Wedge",
	"gw":             "Gap Wedge",
	"sand wedge":     "Sand Wedge",
	"sw":             "Sand Wedge",
	"lob wedge":      "Lob Wedge",
	"lw":             "Lob Wedge",
}

// CanonicalClub converts a club reference to canonical display form:
// "7i", "7 iron" and "7-iron" all become "7-Iron". Returns "" when the
// input is empty or unrecognizable.
func CanonicalClub(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if name, ok := namedClubs[s]; ok {
		return name
	}
	if m := numberedClubRe.FindStringSubmatch(s); m != nil {
		kind := ""
		switch m[2] {
		case "iron", "i":
			kind = "Iron"
		case "wood", "w":
			kind = "Wood"
		case "hybrid", "h":
			kind = "Hybrid"
		}
		return m[1] + "-" + kind
	}
	// Unknown shape: title-case the words so "seven iron" still displays
	// reasonably rather than being dropped.
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ParsedIntent is the validated result of parsing a model reply.
type ParsedIntent struct {
	Type       Type
	Confidence float64
	Entities   Entities
	UserGoal   string
}

// NewParsedIntent validates and constructs a ParsedIntent. Unlike entity
// values, an out-of-range confidence is a hard failure: it means the
// model reply cannot be trusted at all.
func NewParsedIntent(t Type, confidence float64, ents Entities, userGoal string) (ParsedIntent, error) {
	if !t.Valid() {
		return ParsedIntent{}, fmt.Errorf("unknown intent type %q", t)
	}
	if confidence < 0 || confidence > 1 {
		return ParsedIntent{}, fmt.Errorf("confidence %v outside [0,1]", confidence)
	}
	return ParsedIntent{
		Type:       t,
		Confidence: confidence,
		Entities:   ents,
		UserGoal:   strings.TrimSpace(userGoal),
	}, nil
}
