package intent

import "testing"

func intPtr(n int) *int { return &n }

func TestNewEntitiesClamping(t *testing.T) {
	tests := []struct {
		name        string
		fatigue     *int
		wantFatigue *int
	}{
		{"below range clamps up", intPtr(0), intPtr(1)},
		{"above range clamps down", intPtr(11), intPtr(10)},
		{"negative clamps up", intPtr(-3), intPtr(1)},
		{"in range unchanged", intPtr(7), intPtr(7)},
		{"absent stays absent", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEntities("", nil, "", "", tt.fatigue, false, "", nil)
			switch {
			case tt.wantFatigue == nil:
				if e.Fatigue != nil {
					t.Errorf("Fatigue = %d, want absent", *e.Fatigue)
				}
			case e.Fatigue == nil:
				t.Errorf("Fatigue absent, want %d", *tt.wantFatigue)
			case *e.Fatigue != *tt.wantFatigue:
				t.Errorf("Fatigue = %d, want %d", *e.Fatigue, *tt.wantFatigue)
			}
		})
	}
}

func TestNewEntitiesDropsInvalid(t *testing.T) {
	t.Run("non-positive yardage dropped", func(t *testing.T) {
		for _, y := range []int{0, -5} {
			e := NewEntities("", intPtr(y), "", "", nil, false, "", nil)
			if e.Yardage != nil {
				t.Errorf("yardage %d: Yardage = %d, want absent", y, *e.Yardage)
			}
		}
	})

	t.Run("hole outside course dropped", func(t *testing.T) {
		for _, h := range []int{0, 19, -1} {
			e := NewEntities("", nil, "", "", nil, false, "", intPtr(h))
			if e.HoleNumber != nil {
				t.Errorf("hole %d: HoleNumber = %d, want absent", h, *e.HoleNumber)
			}
		}
	})

	t.Run("valid values kept", func(t *testing.T) {
		e := NewEntities("7i", intPtr(150), "Rough", "into", nil, true, "bogey", intPtr(18))
		if e.Club == nil || e.Club.Name != "7-Iron" {
			t.Errorf("Club = %+v, want 7-Iron", e.Club)
		}
		if e.Yardage == nil || *e.Yardage != 150 {
			t.Errorf("Yardage = %v, want 150", e.Yardage)
		}
		if e.Lie != "rough" {
			t.Errorf("Lie = %q, want lowercased %q", e.Lie, "rough")
		}
		if e.HoleNumber == nil || *e.HoleNumber != 18 {
			t.Errorf("HoleNumber = %v, want 18", e.HoleNumber)
		}
		if !e.Pain {
			t.Error("Pain = false, want true")
		}
	})
}

func TestCanonicalClub(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"7i", "7-Iron"},
		{"7 iron", "7-Iron"},
		{"7-iron", "7-Iron"},
		{"7-Iron", "7-Iron"},
		{"3w", "3-Wood"},
		{"3 wood", "3-Wood"},
		{"4h", "4-Hybrid"},
		{"driver", "Driver"},
		{"pw", "Pitching Wedge"},
		{"sand wedge", "Sand Wedge"},
		{"", ""},
		{"   ", ""},
		{"seven iron", "Seven Iron"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := CanonicalClub(tt.input)
			if got != tt.want {
				t.Errorf("CanonicalClub(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewParsedIntentValidation(t *testing.T) {
	tests := []struct {
		name       string
		typ        Type
		confidence float64
		wantErr    bool
	}{
		{"valid", TypeRecordShot, 0.85, false},
		{"zero confidence", TypeGeneralChat, 0, false},
		{"full confidence", TypeGeneralChat, 1, false},
		{"unknown type", Type("order_pizza"), 0.9, true},
		{"confidence above one", TypeRecordShot, 1.2, true},
		{"negative confidence", TypeRecordShot, -0.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParsedIntent(tt.typ, tt.confidence, Entities{}, "")
			if (err != nil) != tt.wantErr {
				t.Errorf("NewParsedIntent(%q, %v) error = %v, wantErr %v", tt.typ, tt.confidence, err, tt.wantErr)
			}
		})
	}
}

func TestTargetFor(t *testing.T) {
	t.Run("every type has a target", func(t *testing.T) {
		for _, typ := range AllTypes {
			if _, ok := TargetFor(typ, Entities{}); !ok {
				t.Errorf("TargetFor(%q) not found", typ)
			}
		}
	})

	t.Run("distance adjustment goes to settings", func(t *testing.T) {
		target, ok := TargetFor(TypeAdjustClubDistance, Entities{Club: &ClubRef{Name: "7-Iron"}})
		if !ok {
			t.Fatal("TargetFor(adjust_club_distance) not found")
		}
		if target.Module != ModuleSettings {
			t.Errorf("Module = %q, want %q", target.Module, ModuleSettings)
		}
		if target.Screen != "club-distances" {
			t.Errorf("Screen = %q, want %q", target.Screen, "club-distances")
		}
		if got := target.Parameters["club"]; got != "7-Iron" {
			t.Errorf("Parameters[club] = %q, want %q", got, "7-Iron")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, ok := TargetFor(Type("bogus"), Entities{}); ok {
			t.Error("TargetFor(bogus) = ok, want not found")
		}
	})
}
