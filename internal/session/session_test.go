package session

import (
	"fmt"
	"testing"
)

func TestAppendTurnEviction(t *testing.T) {
	s := NewStore()

	// 12 exchanges = 24 turns; only the last MaxHistoryTurns survive.
	for i := 1; i <= 12; i++ {
		s.AppendTurn(fmt.Sprintf("user %d", i), fmt.Sprintf("assistant %d", i))
	}

	history := s.Snapshot().History
	if len(history) != MaxHistoryTurns {
		t.Fatalf("history length = %d, want %d", len(history), MaxHistoryTurns)
	}

	// Oldest surviving turn is from exchange 8 (user side).
	if got := history[0].Content; got != "user 8" {
		t.Errorf("oldest turn = %q, want %q", got, "user 8")
	}
	if got := history[len(history)-1].Content; got != "assistant 12" {
		t.Errorf("newest turn = %q, want %q", got, "assistant 12")
	}
}

func TestAppendTurnOrder(t *testing.T) {
	s := NewStore()
	s.AppendTurn("hello", "hi there")

	history := s.Snapshot().History
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Role != RoleUser || history[1].Role != RoleAssistant {
		t.Errorf("roles = %q, %q, want user then assistant", history[0].Role, history[1].Role)
	}
}

func TestUpdateHoleBounds(t *testing.T) {
	s := NewStore()

	for _, n := range []int{1, 9, 18} {
		if err := s.UpdateHole(n); err != nil {
			t.Errorf("UpdateHole(%d) = %v, want nil", n, err)
		}
	}
	for _, n := range []int{0, 19, -1} {
		if err := s.UpdateHole(n); err == nil {
			t.Errorf("UpdateHole(%d) succeeded, want error", n)
		}
	}

	// The last valid hole survives the rejected updates.
	snap := s.Snapshot()
	if snap.Hole == nil || *snap.Hole != 18 {
		t.Errorf("Hole = %v, want 18", snap.Hole)
	}
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.UpdateRound(Round{ID: "r1", Course: "Pebble"})
	_ = s.UpdateHole(4)
	s.RecordShot(Shot{Club: "7-Iron"})
	s.RecordRecommendation("take one more club")
	s.AppendTurn("u", "a")

	s.Clear()

	snap := s.Snapshot()
	if !snap.Empty() {
		t.Errorf("after Clear, snapshot = %+v, want empty", snap)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := NewStore()
	s.UpdateRound(Round{ID: "r1", Course: "Pebble"})
	_ = s.UpdateHole(4)
	s.RecordShot(Shot{Club: "7-Iron", Lie: "rough"})
	s.AppendTurn("first", "reply")

	snap := s.Snapshot()

	// Mutating the snapshot must not leak back into the store.
	snap.Round.Course = "changed"
	*snap.Hole = 17
	snap.LastShot.Club = "Driver"
	snap.History[0].Content = "tampered"

	fresh := s.Snapshot()
	if fresh.Round.Course != "Pebble" {
		t.Errorf("Round.Course = %q, want %q", fresh.Round.Course, "Pebble")
	}
	if *fresh.Hole != 4 {
		t.Errorf("Hole = %d, want 4", *fresh.Hole)
	}
	if fresh.LastShot.Club != "7-Iron" {
		t.Errorf("LastShot.Club = %q, want %q", fresh.LastShot.Club, "7-Iron")
	}
	if fresh.History[0].Content != "first" {
		t.Errorf("History[0] = %q, want %q", fresh.History[0].Content, "first")
	}
}

func TestEmpty(t *testing.T) {
	var nilCtx *Context
	if !nilCtx.Empty() {
		t.Error("nil context not reported empty")
	}

	s := NewStore()
	snap := s.Snapshot()
	if !snap.Empty() {
		t.Error("fresh store snapshot not reported empty")
	}

	s.RecordRecommendation("anything")
	snap = s.Snapshot()
	if snap.Empty() {
		t.Error("snapshot with recommendation reported empty")
	}
}
