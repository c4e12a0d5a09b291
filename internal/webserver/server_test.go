package webserver

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spboyer/codearena/internal/arena"
	"github.com/spboyer/codearena/internal/models"
	"github.com/spboyer/codearena/internal/webapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func testRunner() *arena.Runner {
	return arena.NewRunner(arena.NewMockCritic(arena.NewRand(1)), arena.MockSynthesizer{}, arena.WithPacing(0))
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	srv, err := New(Config{
		NoBrowser: true,
		Runner:    testRunner(),
	})
	require.NoError(t, err)
	return srv.Handler()
}

func TestNewRequiresRunner(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body webapi.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestPageServesIndexHTML(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<!doctype html>")
	assert.Contains(t, body, "INITIATE BATTLE")
}

func TestPageFallbackForUnknownPaths(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/some/where", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<!doctype html>")
}

func TestStaticAssetsAreCompressed(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(plain), "/api/battle")
}

func TestBattleStreamIsNotCompressed(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/battle", strings.NewReader(`{"snippet":"x = 1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Contains(t, rec.Body.String(), "event: done")
}

func TestURL(t *testing.T) {
	srv, err := New(Config{Host: "0.0.0.0", Port: 8080, Runner: testRunner()})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", srv.URL())

	srv, err = New(Config{Host: "10.0.0.5", Port: 9000, Runner: testRunner()})
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:9000", srv.URL())
}

func TestListenAndServeShutsDown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	srv, err := New(Config{Port: port, NoBrowser: true, Runner: testRunner()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/health", port))
		if err != nil {
			return false
		}
		resp.Body.Close() //nolint:errcheck
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	http.DefaultClient.CloseIdleConnections()
}

// stallingCritic blocks until its request context ends.
type stallingCritic struct {
	started chan struct{}
}

func (c *stallingCritic) Critique(ctx context.Context, p models.Persona, snippet string) string {
	close(c.started)
	<-ctx.Done()
	return "System Error: " + ctx.Err().Error()
}

func TestListenAndServeCancelsInFlightBattle(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	critic := &stallingCritic{started: make(chan struct{})}
	runner := arena.NewRunner(critic, arena.MockSynthesizer{}, arena.WithPacing(0))
	srv, err := New(Config{Port: port, NoBrowser: true, Runner: runner})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	client := &http.Client{Transport: &http.Transport{}}
	defer client.CloseIdleConnections()

	streamed := make(chan string, 1)
	go func() {
		var body []byte
		defer func() { streamed <- string(body) }()
		for range 100 {
			resp, err := client.Post(fmt.Sprintf("http://127.0.0.1:%d/api/battle", port),
				"application/json", strings.NewReader(`{"snippet":"x = 1"}`))
			if err != nil {
				time.Sleep(20 * time.Millisecond)
				continue
			}
			body, _ = io.ReadAll(resp.Body)
			resp.Body.Close() //nolint:errcheck
			return
		}
	}()

	select {
	case <-critic.started:
	case <-time.After(3 * time.Second):
		t.Fatal("battle never reached the backend")
	}

	start := time.Now()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(4 * time.Second):
		t.Fatal("shutdown waited on the stalled battle")
	}
	assert.Less(t, time.Since(start), 4*time.Second)

	select {
	case body := <-streamed:
		assert.Contains(t, body, "event: done")
	case <-time.After(3 * time.Second):
		t.Fatal("stream never finished")
	}
}
