// Package session holds the rolling state of the current round and
// conversation. The Store is created at round start, mutated turn by
// turn by the pipeline, and cleared at round end. It is an explicit,
// constructor-injected object — never ambient state. Mutations are
// serialized (single writer); Snapshot returns a deep copy safe for
// concurrent reads.
package session

import (
	"errors"
	"sync"
	"time"
)

// MaxHistoryTurns caps the conversation history. Appending beyond the
// cap evicts the oldest turns first.
const MaxHistoryTurns = 10

// ErrNoActiveRound is returned by mutations that require round context.
var ErrNoActiveRound = errors.New("no active round")

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one conversation turn. Immutable once appended.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Round references the active round by ID; durable round data lives in
// the round store, not here.
type Round struct {
	ID        string    `json:"id"`
	Course    string    `json:"course"`
	StartedAt time.Time `json:"started_at"`
}

// Shot captures the last recorded shot for follow-up context.
type Shot struct {
	Club          string `json:"club"`
	Lie           string `json:"lie"`
	MissDirection string `json:"miss_direction,omitempty"`
	Pressure      bool   `json:"pressure,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// Context is a point-in-time snapshot of session state.
type Context struct {
	Round              *Round
	Hole               *int
	LastShot           *Shot
	LastRecommendation string
	History            []Turn
}

// Empty reports whether the snapshot carries no renderable state.
func (c *Context) Empty() bool {
	return c == nil ||
		(c.Round == nil && c.Hole == nil && c.LastShot == nil &&
			c.LastRecommendation == "" && len(c.History) == 0)
}

// Store owns the mutable session state for one active round.
type Store struct {
	mu  sync.RWMutex
	ctx Context
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{}
}

// AppendTurn records one user/assistant exchange, evicting the oldest
// turns once the history exceeds MaxHistoryTurns.
func (s *Store) AppendTurn(user, assistant string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx.History = append(s.ctx.History,
		Turn{Role: RoleUser, Content: user, Timestamp: now},
		Turn{Role: RoleAssistant, Content: assistant, Timestamp: now},
	)
	if n := len(s.ctx.History); n > MaxHistoryTurns {
		s.ctx.History = s.ctx.History[n-MaxHistoryTurns:]
	}
}

// UpdateRound sets the active round reference.
func (s *Store) UpdateRound(r Round) {
	s.mu.Lock()
	defer s.mu.Unlock()
	round := r
	s.ctx.Round = &round
}

// UpdateHole sets the current hole. Holes outside [1,18] are rejected.
func (s *Store) UpdateHole(n int) error {
	if n < 1 || n > 18 {
		return errors.New("hole number outside 1-18")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	hole := n
	s.ctx.Hole = &hole
	return nil
}

// RecordShot stores the most recent shot.
func (s *Store) RecordShot(shot Shot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh := shot
	s.ctx.LastShot = &sh
}

// RecordRecommendation stores the most recent system recommendation.
func (s *Store) RecordRecommendation(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx.LastRecommendation = text
}

// Clear resets the session to empty. Called at round end or on an
// explicit reset.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = Context{}
}

// Snapshot returns a deep copy of the current session context.
func (s *Store) Snapshot() Context {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Context{LastRecommendation: s.ctx.LastRecommendation}
	if s.ctx.Round != nil {
		r := *s.ctx.Round
		out.Round = &r
	}
	if s.ctx.Hole != nil {
		h := *s.ctx.Hole
		out.Hole = &h
	}
	if s.ctx.LastShot != nil {
		sh := *s.ctx.LastShot
		out.LastShot = &sh
	}
	if len(s.ctx.History) > 0 {
		out.History = make([]Turn, len(s.ctx.History))
		copy(out.History, s.ctx.History)
	}
	return out
}
