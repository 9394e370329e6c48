// Package web exposes the pipeline over HTTP for the mobile client:
// chat submission, session summary and reset, a live event stream over
// WebSocket, and a health check.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/fairwaylabs/caddie/internal/events"
	"github.com/fairwaylabs/caddie/internal/inject"
	"github.com/fairwaylabs/caddie/internal/intent"
	"github.com/fairwaylabs/caddie/internal/pipeline"
	"github.com/fairwaylabs/caddie/internal/session"
)

// Server handles the HTTP API.
type Server struct {
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	session  *session.Store
	bus      *events.Bus
	upgrader websocket.Upgrader
}

// NewServer creates the API server.
func NewServer(logger *slog.Logger, p *pipeline.Pipeline, sess *session.Store, bus *events.Bus) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:   logger,
		pipeline: p,
		session:  sess,
		bus:      bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes adds all API routes to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/session", s.handleSessionGet)
	mux.HandleFunc("DELETE /api/session", s.handleSessionClear)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// chatRequest is one submitted turn. Either Input (free text) or
// Suggestion (an intent type the user tapped from a clarification) is
// set.
type chatRequest struct {
	Input      string `json:"input"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	var (
		resp *pipeline.Response
		err  error
	)
	if req.Suggestion != "" {
		resp, err = s.pipeline.SelectSuggestion(r.Context(), intent.Type(req.Suggestion))
	} else {
		resp, err = s.pipeline.Submit(r.Context(), req.Input)
	}

	switch {
	case errors.Is(err, pipeline.ErrSuperseded):
		// Newer input won; this response would be stale.
		http.Error(w, "superseded by newer input", http.StatusConflict)
		return
	case err != nil:
		s.logger.Error("chat request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"summary": inject.BuildSummary(&snap),
		"active":  !snap.Empty(),
		"turns":   len(snap.History),
	})
}

func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	s.session.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents streams bus events to the client over WebSocket until
// the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := s.bus.Subscribe(64)
	defer s.bus.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
