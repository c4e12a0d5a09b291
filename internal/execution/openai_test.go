package execution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "llama-3.3-70b-versatile",
  "choices": [
    {"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  Use parameterized queries.  "}}
  ]
}`

func TestOpenAIEngine_Execute(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionJSON))
	}))
	defer server.Close()

	engine := NewOpenAIEngine(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   DefaultGroqModel,
	})
	require.NoError(t, engine.Initialize(context.Background()))

	resp, err := engine.Execute(context.Background(), &ExecutionRequest{
		Messages:    NewExchange("You are Sentinel.", "query = 'SELECT * FROM t WHERE id=' + id"),
		MaxTokens:   150,
		Temperature: Temperature(0.6),
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "Use parameterized queries.", resp.FinalOutput)
	assert.Equal(t, DefaultGroqModel, resp.ModelID)

	assert.Equal(t, DefaultGroqModel, body["model"])
	assert.InDelta(t, 150, body["max_tokens"], 0)
	assert.InDelta(t, 0.6, body["temperature"], 1e-9)

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	second := msgs[1].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "You are Sentinel.", first["content"])
	assert.Equal(t, "user", second["role"])

	require.NoError(t, engine.Shutdown(context.Background()))
}

func TestOpenAIEngine_OmitsUnsetSettings(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionJSON))
	}))
	defer server.Close()

	engine := NewOpenAIEngine(OpenAIConfig{APIKey: "k", BaseURL: server.URL, Model: "m"})
	_, err := engine.Execute(context.Background(), &ExecutionRequest{
		Messages: NewExchange("s", "u"),
		ModelID:  "override",
	})
	require.NoError(t, err)
	assert.Equal(t, "override", body["model"])
	assert.NotContains(t, body, "max_tokens")
	assert.NotContains(t, body, "temperature")
}

func TestOpenAIEngine_HTTPError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	engine := NewOpenAIEngine(OpenAIConfig{APIKey: "bad", BaseURL: server.URL, Model: "m"})
	_, err := engine.Execute(context.Background(), &ExecutionRequest{Messages: NewExchange("s", "u")})
	require.ErrorContains(t, err, "chat completion failed")
	assert.Equal(t, 1, calls, "retries are disabled")
}

func TestOpenAIEngine_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer server.Close()

	engine := NewOpenAIEngine(OpenAIConfig{APIKey: "k", BaseURL: server.URL, Model: "m"})
	_, err := engine.Execute(context.Background(), &ExecutionRequest{Messages: NewExchange("s", "u")})
	require.EqualError(t, err, "no completion returned")
}

func TestOpenAIEngine_RequiresModel(t *testing.T) {
	engine := NewOpenAIEngine(OpenAIConfig{APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	_, err := engine.Execute(context.Background(), &ExecutionRequest{Messages: NewExchange("s", "u")})
	require.EqualError(t, err, "model is required")

	_, err = engine.Execute(context.Background(), nil)
	require.Error(t, err)
}
