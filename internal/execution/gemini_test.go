package execution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeminiServer(t *testing.T, status int, reply string, capture *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		if capture != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGeminiEngine_Execute(t *testing.T) {
	var body map[string]any
	server := newGeminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"Cache the length outside the loop.\n"}]}}]}`, &body)

	engine, err := NewGeminiEngine(context.Background(), GeminiConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	require.NoError(t, engine.Initialize(context.Background()))

	resp, err := engine.Execute(context.Background(), &ExecutionRequest{
		Messages:    NewExchange("You are Flash.", "for i in range(len(xs)): pass"),
		MaxTokens:   150,
		Temperature: Temperature(0.6),
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "Cache the length outside the loop.", resp.FinalOutput)
	assert.Equal(t, DefaultGeminiModel, resp.ModelID)

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "You are Flash.")
	assert.Contains(t, string(raw), "for i in range(len(xs)): pass")

	gen, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 150, gen["maxOutputTokens"], 0)
	assert.InDelta(t, 0.6, gen["temperature"], 1e-6)
	thinking, ok := gen["thinkingConfig"].(map[string]any)
	require.True(t, ok, "a capped request disables thinking")
	assert.InDelta(t, 0, thinking["thinkingBudget"], 0)

	require.NoError(t, engine.Shutdown(context.Background()))
}

func TestGeminiEngine_UncappedKeepsThinking(t *testing.T) {
	var body map[string]any
	server := newGeminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}`, &body)

	engine, err := NewGeminiEngine(context.Background(), GeminiConfig{APIKey: "k", BaseURL: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	_, err = engine.Execute(context.Background(), &ExecutionRequest{Messages: NewExchange("s", "u")})
	require.NoError(t, err)

	gen, _ := body["generationConfig"].(map[string]any)
	assert.NotContains(t, gen, "thinkingConfig")
}

func TestGeminiEngine_EmptyReply(t *testing.T) {
	server := newGeminiServer(t, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"  "}]}}]}`, nil)

	engine, err := NewGeminiEngine(context.Background(), GeminiConfig{APIKey: "k", BaseURL: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	_, err = engine.Execute(context.Background(), &ExecutionRequest{Messages: NewExchange("s", "u")})
	require.EqualError(t, err, "no content returned")
}

func TestGeminiEngine_HTTPError(t *testing.T) {
	server := newGeminiServer(t, http.StatusTooManyRequests,
		`{"error":{"code":429,"message":"quota exhausted","status":"RESOURCE_EXHAUSTED"}}`, nil)

	engine, err := NewGeminiEngine(context.Background(), GeminiConfig{APIKey: "k", BaseURL: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	_, err = engine.Execute(context.Background(), &ExecutionRequest{Messages: NewExchange("s", "u")})
	require.ErrorContains(t, err, "GenAI generate failed")
}

func TestGeminiEngine_RequiresKey(t *testing.T) {
	_, err := NewGeminiEngine(context.Background(), GeminiConfig{})
	require.Error(t, err)
}
