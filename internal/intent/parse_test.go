package intent

import "testing"

func TestParseReply(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		parsed, err := ParseReply(`{
			"intent_type": "adjust_club_distance",
			"confidence": 0.85,
			"entities": {"club": "7-iron"},
			"user_goal": "recalibrate 7-iron distance"
		}`)
		if err != nil {
			t.Fatalf("ParseReply: %v", err)
		}
		if parsed.Type != TypeAdjustClubDistance {
			t.Errorf("Type = %q, want %q", parsed.Type, TypeAdjustClubDistance)
		}
		if parsed.Confidence != 0.85 {
			t.Errorf("Confidence = %v, want 0.85", parsed.Confidence)
		}
		if parsed.Entities.Club == nil || parsed.Entities.Club.Name != "7-Iron" {
			t.Errorf("Club = %+v, want 7-Iron", parsed.Entities.Club)
		}
	})

	t.Run("fenced JSON", func(t *testing.T) {
		raw := "```json\n{\"intent_type\": \"record_shot\", \"confidence\": 0.9, \"entities\": {}}\n```"
		parsed, err := ParseReply(raw)
		if err != nil {
			t.Fatalf("ParseReply: %v", err)
		}
		if parsed.Type != TypeRecordShot {
			t.Errorf("Type = %q, want %q", parsed.Type, TypeRecordShot)
		}
	})

	t.Run("JSON surrounded by prose", func(t *testing.T) {
		raw := `Sure! Here is the classification: {"intent_type": "check_weather", "confidence": 0.8, "entities": {}} Hope that helps.`
		parsed, err := ParseReply(raw)
		if err != nil {
			t.Fatalf("ParseReply: %v", err)
		}
		if parsed.Type != TypeCheckWeather {
			t.Errorf("Type = %q, want %q", parsed.Type, TypeCheckWeather)
		}
	})

	t.Run("float entities truncate to int", func(t *testing.T) {
		parsed, err := ParseReply(`{"intent_type": "club_recommendation", "confidence": 0.8,
			"entities": {"yardage": 150.0, "hole_number": 7.0, "fatigue": 6.4}}`)
		if err != nil {
			t.Fatalf("ParseReply: %v", err)
		}
		if parsed.Entities.Yardage == nil || *parsed.Entities.Yardage != 150 {
			t.Errorf("Yardage = %v, want 150", parsed.Entities.Yardage)
		}
		if parsed.Entities.HoleNumber == nil || *parsed.Entities.HoleNumber != 7 {
			t.Errorf("HoleNumber = %v, want 7", parsed.Entities.HoleNumber)
		}
		if parsed.Entities.Fatigue == nil || *parsed.Entities.Fatigue != 6 {
			t.Errorf("Fatigue = %v, want 6", parsed.Entities.Fatigue)
		}
	})

	t.Run("out-of-range entities recovered", func(t *testing.T) {
		parsed, err := ParseReply(`{"intent_type": "report_fatigue", "confidence": 0.8,
			"entities": {"fatigue": 14, "hole_number": 22, "yardage": -40}}`)
		if err != nil {
			t.Fatalf("ParseReply: %v", err)
		}
		if parsed.Entities.Fatigue == nil || *parsed.Entities.Fatigue != 10 {
			t.Errorf("Fatigue = %v, want clamped 10", parsed.Entities.Fatigue)
		}
		if parsed.Entities.HoleNumber != nil {
			t.Errorf("HoleNumber = %d, want absent", *parsed.Entities.HoleNumber)
		}
		if parsed.Entities.Yardage != nil {
			t.Errorf("Yardage = %d, want absent", *parsed.Entities.Yardage)
		}
	})

	t.Run("hard failures", func(t *testing.T) {
		tests := []struct {
			name string
			raw  string
		}{
			{"empty reply", ""},
			{"no JSON object", "I could not classify that."},
			{"truncated JSON", `{"intent_type": "record_shot", "confi`},
			{"missing confidence", `{"intent_type": "record_shot", "entities": {}}`},
			{"unknown intent type", `{"intent_type": "order_pizza", "confidence": 0.9, "entities": {}}`},
			{"confidence out of range", `{"intent_type": "record_shot", "confidence": 1.4, "entities": {}}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := ParseReply(tt.raw); err == nil {
					t.Errorf("ParseReply(%q) succeeded, want error", tt.raw)
				}
			})
		}
	})
}
