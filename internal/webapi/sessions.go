package webapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spboyer/codearena/internal/arena"
	"github.com/spboyer/codearena/internal/models"
)

// CookieName holds the session id.
const CookieName = "arena_session"

// ErrSessionNotFound is returned when no session has the given id.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps one arena.Session per browser, keyed by cookie.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*arena.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store whose idle sessions expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*arena.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the session with the given id.
func (s *SessionStore) Get(id string) (*arena.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Create adds a new idle session and returns its id.
func (s *SessionStore) Create() (string, *arena.Session) {
	id := uuid.NewString()
	sess := arena.NewSession()

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	return id, sess
}

// Resolve returns the caller's session, creating one and setting the cookie
// when the request carries no known session id.
func (s *SessionStore) Resolve(w http.ResponseWriter, r *http.Request) *arena.Session {
	if c, err := r.Cookie(CookieName); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			if sess, gerr := s.Get(c.Value); gerr == nil {
				return sess
			}
		}
	}

	id, sess := s.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Debug("session created", "session", id)
	return sess
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the ttl. Running sessions are
// kept. It returns how many were removed.
func (s *SessionStore) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.Snapshot().State == models.StateRunning {
			continue
		}
		if sess.LastActive().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is done.
func (s *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				slog.Info("expired idle sessions", "count", n, "remaining", s.Len())
			}
		}
	}
}
