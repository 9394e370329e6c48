package prompts

import (
	"fmt"
	"strings"
)

// classifierSystemTemplate is the system prompt for intent
// classification. The single format verb is the newline-joined list of
// valid intent types.
const classifierSystemTemplate = `You are the intent classifier for a golf caddie assistant on a phone.
The user is mid-round, possibly speaking. Classify their utterance into
exactly one intent and extract any entities mentioned.

Valid intent types:
%s

Return JSON only, in this shape:

{"intent_type": "record_shot", "confidence": 0.92,
 "entities": {"club": "7 iron", "yardage": 150, "lie": "fairway",
              "wind": "into, 10 mph", "fatigue": 6, "pain": false,
              "score_context": "bogey", "hole_number": 7},
 "user_goal": "log the approach shot they just hit"}

Rules:
- confidence is your certainty in the intent, between 0 and 1.
- Omit entity fields that were not mentioned. Never invent values.
- A session context block may precede the utterance; use it to resolve
  follow-ups ("same club", "what about now").
- If the utterance is small talk with no golf action, use general_chat.`

// ClassifierSystem returns the system prompt for classification calls,
// interpolated with the list of valid intent type names.
func ClassifierSystem(intentTypes []string) string {
	return fmt.Sprintf(classifierSystemTemplate, "- "+strings.Join(intentTypes, "\n- "))
}
