package intent

import (
	"fmt"
	"strings"
)

// ResultKind discriminates the ClassificationResult union. Consumers
// switch on Kind; exactly one variant's fields are populated.
type ResultKind int

const (
	// KindRoute dispatches directly to a navigation target.
	KindRoute ResultKind = iota

	// KindConfirm asks the user a yes/no question before acting.
	KindConfirm

	// KindClarify asks the user to pick from suggested intents.
	KindClarify

	// KindError reports a failure the user can usually retry.
	KindError
)

func (k ResultKind) String() string {
	switch k {
	case KindRoute:
		return "route"
	case KindConfirm:
		return "confirm"
	case KindClarify:
		return "clarify"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Suggestion is one candidate intent offered during clarification.
type Suggestion struct {
	Type  Type   `json:"type"`
	Label string `json:"label"`
}

// Result is the outcome of one classification call. It is a tagged
// union in the style of a stream event: Kind selects which fields are
// meaningful, and results are never mutated after construction.
type Result struct {
	Kind ResultKind

	// Intent is set for KindRoute and KindConfirm, and for KindClarify
	// when a low-confidence parse existed.
	Intent *ParsedIntent

	// Target is set for KindRoute.
	Target *RoutingTarget

	// Message is the user-facing text for Confirm, Clarify, and Error.
	Message string

	// OriginalInput and Suggestions are set for KindClarify.
	OriginalInput string
	Suggestions   []Suggestion

	// Recoverable marks errors the user can retry (network, timeout,
	// malformed model reply).
	Recoverable bool
}

// MaxSuggestions bounds how many intents a clarification may offer.
const MaxSuggestions = 3

// NewRoute constructs a Route result.
func NewRoute(parsed ParsedIntent, target RoutingTarget) Result {
	p := parsed
	t := target
	return Result{Kind: KindRoute, Intent: &p, Target: &t}
}

// NewConfirm constructs a Confirm result.
func NewConfirm(parsed ParsedIntent, message string) Result {
	p := parsed
	return Result{Kind: KindConfirm, Intent: &p, Message: message}
}

// NewClarify constructs a Clarify result. A clarification with no
// suggestions, more than MaxSuggestions, or a blank message is a
// programming error and fails construction.
func NewClarify(originalInput, message string, suggestions []Suggestion, parsed *ParsedIntent) (Result, error) {
	if strings.TrimSpace(message) == "" {
		return Result{}, fmt.Errorf("clarification message is blank")
	}
	if len(suggestions) == 0 || len(suggestions) > MaxSuggestions {
		return Result{}, fmt.Errorf("clarification needs 1-%d suggestions, got %d", MaxSuggestions, len(suggestions))
	}
	out := make([]Suggestion, len(suggestions))
	copy(out, suggestions)
	return Result{
		Kind:          KindClarify,
		Intent:        parsed,
		Message:       message,
		OriginalInput: originalInput,
		Suggestions:   out,
	}, nil
}

// NewError constructs an Error result.
func NewError(message string, recoverable bool) Result {
	return Result{Kind: KindError, Message: message, Recoverable: recoverable}
}
