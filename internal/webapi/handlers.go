// Package webapi exposes the battle over HTTP: JSON endpoints for state and
// a server-sent event stream for a running battle.
package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/spboyer/codearena/internal/arena"
	"github.com/spboyer/codearena/internal/persona"
)

// Version is set at build time or defaults to dev.
var Version = "0.1.0-dev"

// maxSnippetBytes bounds the battle request body.
const maxSnippetBytes = 1 << 20

// Handlers holds the HTTP handler methods for the web API.
type Handlers struct {
	runner   *arena.Runner
	sessions *SessionStore
	render   *Renderer
}

// NewHandlers creates a new Handlers.
func NewHandlers(runner *arena.Runner, sessions *SessionStore) *Handlers {
	return &Handlers{
		runner:   runner,
		sessions: sessions,
		render:   NewRenderer(),
	}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// HandlePersonas lists the personas in display order.
func (h *Handlers) HandlePersonas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, persona.All())
}

// HandleState returns the caller's session snapshot.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Resolve(w, r)
	writeJSON(w, http.StatusOK, h.render.State(sess.Snapshot()))
}

// HandleClear resets the caller's session and returns the idle snapshot.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Resolve(w, r)
	writeJSON(w, http.StatusOK, h.render.State(h.runner.Clear(sess)))
}

// HandleBattle runs a battle and streams its progress as server-sent events:
// "transcript" after every critique, one "consensus", then "done". An empty
// snippet starts nothing and returns 204. Bodies must be application/json so
// cross-origin callers cannot skip the CORS preflight.
func (h *Handlers) HandleBattle(w http.ResponseWriter, r *http.Request) {
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
		return
	}

	var req BattleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSnippetBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := h.sessions.Resolve(w, r)
	if req.Snippet == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := &eventStream{w: w, flusher: flusher}

	snap, err := h.runner.Start(r.Context(), sess, req.Snippet, func(ev arena.ProgressEvent) {
		switch ev.EventType {
		case arena.EventCritique:
			stream.send("transcript", TranscriptEvent{RunID: ev.RunID, Transcript: h.render.Messages(ev.Transcript)})
		case arena.EventConsensus:
			stream.send("consensus", ConsensusEvent{RunID: ev.RunID, Consensus: *ev.Consensus})
		}
	})

	done := DoneEvent{StateResponse: h.render.State(snap)}
	if err != nil && !errors.Is(err, arena.ErrEmptySnippet) {
		done.Error = err.Error()
	}
	stream.send("done", done)
}

// RegisterRoutes registers all web API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, runner *arena.Runner, sessions *SessionStore) {
	h := NewHandlers(runner, sessions)
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("GET /api/personas", h.HandlePersonas)
	mux.HandleFunc("GET /api/state", h.HandleState)
	mux.HandleFunc("POST /api/battle", h.HandleBattle)
	mux.HandleFunc("POST /api/clear", h.HandleClear)
}

// CORSMiddleware wraps a handler with CORS headers.
// If allowedOrigins is empty, no CORS header is set (same-origin only).
// Otherwise, the request Origin is checked against the allowed list.
func CORSMiddleware(next http.Handler, allowedOrigins ...string) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if len(allowedOrigins) > 0 && origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			// the session lives in a cookie
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// eventStream writes server-sent events. Write failures mean the client went
// away; the run stops through the request context.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *eventStream) send(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode stream event", "event", event, "error", err)
		return
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		slog.Debug("stream write failed", "event", event, "error", err)
		return
	}
	s.flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg, Code: code})
}
