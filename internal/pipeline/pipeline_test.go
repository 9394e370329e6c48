package pipeline

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fairwaylabs/caddie/internal/clarify"
	"github.com/fairwaylabs/caddie/internal/events"
	"github.com/fairwaylabs/caddie/internal/intent"
	"github.com/fairwaylabs/caddie/internal/llm"
	"github.com/fairwaylabs/caddie/internal/persona"
	"github.com/fairwaylabs/caddie/internal/session"
	"github.com/fairwaylabs/caddie/internal/store"
)

// scriptClient returns queued replies in order, optionally delaying each
// call. Safe for concurrent use.
type scriptClient struct {
	mu      sync.Mutex
	replies []string
	delay   time.Duration
	calls   int
}

func (s *scriptClient) Classify(ctx context.Context, req llm.ClassifyRequest) (*llm.Reply, error) {
	s.mu.Lock()
	s.calls++
	var content string
	if len(s.replies) > 0 {
		content = s.replies[0]
		if len(s.replies) > 1 {
			s.replies = s.replies[1:]
		}
	}
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &llm.Reply{Content: content, Model: "script"}, nil
}

func (s *scriptClient) Ping(ctx context.Context) error { return nil }

// fakeRounds is an in-memory RoundStore.
type fakeRounds struct {
	mu       sync.Mutex
	rounds   []store.Round
	shots    []store.Shot
	patterns []persona.MissPattern
	ended    []string
}

func (f *fakeRounds) CreateRound(course string) (store.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := store.Round{ID: "round-1", Course: course, StartedAt: time.Now()}
	f.rounds = append(f.rounds, r)
	return r, nil
}

func (f *fakeRounds) EndRound(roundID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, roundID)
	return nil
}

func (f *fakeRounds) AddShot(roundID string, hole int, shot store.Shot) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	shot.RoundID = roundID
	shot.Hole = hole
	f.shots = append(f.shots, shot)
	return "shot-1", nil
}

func (f *fakeRounds) MissPatterns() ([]persona.MissPattern, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.patterns, nil
}

func newTestPipeline(t *testing.T, client llm.Client, rounds RoundStore) (*Pipeline, *session.Store) {
	t.Helper()
	formatter, err := persona.NewFormatter(nil)
	if err != nil {
		t.Fatalf("NewFormatter: %v", err)
	}
	sess := session.NewStore()
	classifier := intent.NewClassifier(client, clarify.NewGenerator(nil), nil)
	return New(nil, classifier, formatter, sess, rounds, events.New()), sess
}

func reply(intentType string, confidence float64, entities string) string {
	if entities == "" {
		entities = "{}"
	}
	return `{"intent_type": "` + intentType + `", "confidence": ` +
		strconv.FormatFloat(confidence, 'f', -1, 64) + `, "entities": ` + entities + `}`
}

func TestSubmitRouteAppendsTurn(t *testing.T) {
	client := &scriptClient{replies: []string{reply("start_round", 0.85, "")}}
	rounds := &fakeRounds{}
	p, sess := newTestPipeline(t, client, rounds)

	resp, err := p.Submit(context.Background(), "let's start a round")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.Kind != "route" {
		t.Fatalf("Kind = %q, want route", resp.Kind)
	}
	if resp.Target == nil || resp.Target.Module != intent.ModuleRound {
		t.Errorf("Target = %+v, want round module", resp.Target)
	}
	if resp.RequestID == "" {
		t.Error("RequestID is empty")
	}

	snap := sess.Snapshot()
	if snap.Round == nil || snap.Round.ID != "round-1" {
		t.Errorf("session round = %+v, want round-1", snap.Round)
	}
	if snap.Hole == nil || *snap.Hole != 1 {
		t.Errorf("session hole = %v, want 1", snap.Hole)
	}
	if len(snap.History) != 2 {
		t.Errorf("history = %d turns, want 2", len(snap.History))
	}
}

func TestSubmitClarify(t *testing.T) {
	client := &scriptClient{replies: []string{reply("general_chat", 0.35, "")}}
	p, sess := newTestPipeline(t, client, nil)

	resp, err := p.Submit(context.Background(), "it's happening again")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.Kind != "clarify" {
		t.Fatalf("Kind = %q, want clarify", resp.Kind)
	}
	if n := len(resp.Suggestions); n < 1 || n > intent.MaxSuggestions {
		t.Errorf("suggestions = %d, want 1-%d", n, intent.MaxSuggestions)
	}

	// The clarify exchange still lands in history.
	if got := len(sess.Snapshot().History); got != 2 {
		t.Errorf("history = %d turns, want 2", got)
	}
}

func TestSubmitEmptyInputNoModelCall(t *testing.T) {
	client := &scriptClient{}
	p, _ := newTestPipeline(t, client, nil)

	resp, err := p.Submit(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.Kind != "error" {
		t.Fatalf("Kind = %q, want error", resp.Kind)
	}
	if !strings.Contains(resp.Text, intent.MsgEmptyInput) {
		t.Errorf("Text = %q, want the empty-input message", resp.Text)
	}
	if client.calls != 0 {
		t.Errorf("model calls = %d, want 0", client.calls)
	}
}

func TestSubmitLatestInputWins(t *testing.T) {
	client := &scriptClient{
		replies: []string{reply("check_weather", 0.85, "")},
		delay:   150 * time.Millisecond,
	}
	p, sess := newTestPipeline(t, client, nil)

	firstErr := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), "first input")
		firstErr <- err
	}()

	// Let the first turn reach the model call, then supersede it.
	time.Sleep(30 * time.Millisecond)
	resp, err := p.Submit(context.Background(), "second input")
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if resp.Kind != "route" {
		t.Errorf("second Kind = %q, want route", resp.Kind)
	}

	select {
	case err := <-firstErr:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("first Submit error = %v, want ErrSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first Submit never returned")
	}

	// Only the winning turn reached the session.
	history := sess.Snapshot().History
	if len(history) != 2 {
		t.Fatalf("history = %d turns, want 2", len(history))
	}
	if history[0].Content != "second input" {
		t.Errorf("history[0] = %q, want the superseding input", history[0].Content)
	}
}

func TestSubmitActionWithoutRound(t *testing.T) {
	client := &scriptClient{replies: []string{reply("record_shot", 0.85, `{"club": "7i"}`)}}
	p, _ := newTestPipeline(t, client, nil)

	resp, err := p.Submit(context.Background(), "log my 7 iron")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.Kind != "error" {
		t.Fatalf("Kind = %q, want error for shot without a round", resp.Kind)
	}
	if !resp.Recoverable {
		t.Error("no-round error not marked recoverable")
	}
}

func TestSelectSuggestion(t *testing.T) {
	p, sess := newTestPipeline(t, &scriptClient{}, &fakeRounds{})

	resp, err := p.SelectSuggestion(context.Background(), intent.TypeStartRound)
	if err != nil {
		t.Fatalf("SelectSuggestion: %v", err)
	}
	if resp.Kind != "route" {
		t.Fatalf("Kind = %q, want route", resp.Kind)
	}
	if snap := sess.Snapshot(); snap.Round == nil {
		t.Error("suggestion route did not start a round")
	}

	if _, err := p.SelectSuggestion(context.Background(), intent.Type("bogus")); err == nil {
		t.Error("SelectSuggestion(bogus) succeeded, want error")
	}
}

func TestRouteIncludesMissPatterns(t *testing.T) {
	client := &scriptClient{replies: []string{reply("club_recommendation", 0.85, `{"yardage": 150}`)}}
	rounds := &fakeRounds{patterns: []persona.MissPattern{
		{Direction: "left", Club: "Driver", Frequency: 8, Confidence: 0.8},
	}}
	p, _ := newTestPipeline(t, client, rounds)

	resp, err := p.Submit(context.Background(), "what club from 150")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !strings.Contains(resp.Text, "7-Iron") {
		t.Errorf("Text = %q, want a club for 150 yards", resp.Text)
	}
	if !strings.Contains(resp.Text, "miss left with your Driver") {
		t.Errorf("Text = %q, want the miss pattern referenced", resp.Text)
	}
}
