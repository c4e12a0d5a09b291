package webapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spboyer/codearena/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_GetUnknown(t *testing.T) {
	store := NewSessionStore(time.Minute)
	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_ResolveReusesCookie(t *testing.T) {
	store := NewSessionStore(time.Minute)

	rec := httptest.NewRecorder()
	first := store.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := sessionCookie(t, rec)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	second := store.Resolve(rec, req)

	assert.Same(t, first, second)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_ResolveRejectsForgedCookie(t *testing.T) {
	store := NewSessionStore(time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-uuid"})
	rec := httptest.NewRecorder()
	store.Resolve(rec, req)

	c := sessionCookie(t, rec)
	assert.NotEqual(t, "not-a-uuid", c.Value)
}

func TestSessionStore_Sweep(t *testing.T) {
	store := NewSessionStore(time.Minute)
	store.Create()
	_, running := store.Create()
	_, ok := running.Begin("x")
	require.True(t, ok)
	require.Equal(t, models.StateRunning, running.Snapshot().State)

	assert.Zero(t, store.Sweep())

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_RunSweeperStops(t *testing.T) {
	store := NewSessionStore(time.Nanosecond)
	store.Create()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.RunSweeper(ctx, time.Millisecond) }()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
