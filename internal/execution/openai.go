package execution

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAI-compatible endpoints and their default models.
const (
	GroqBaseURL        = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
	OpenAIBaseURL      = "https://api.openai.com/v1"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for an OpenAI-compatible engine.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string

	// HTTPClient overrides the transport; nil uses the SDK default.
	HTTPClient *http.Client
}

// OpenAIEngine talks to any OpenAI-compatible chat completions endpoint
// (Groq, OpenAI).
type OpenAIEngine struct {
	client         openai.Client
	defaultModelID string
	baseURL        string
}

// NewOpenAIEngine creates an engine for the given endpoint. Retries are
// disabled; a failed call surfaces immediately.
func NewOpenAIEngine(cfg OpenAIConfig) *OpenAIEngine {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAIEngine{
		client:         openai.NewClient(opts...),
		defaultModelID: cfg.Model,
		baseURL:        cfg.BaseURL,
	}
}

func (e *OpenAIEngine) Initialize(ctx context.Context) error {
	return ctx.Err()
}

// Execute sends the exchange as a single chat completion.
func (e *OpenAIEngine) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil req was passed to OpenAIEngine.Execute")
	}

	modelID := e.defaultModelID
	if req.ModelID != "" {
		modelID = req.ModelID
	}
	if modelID == "" {
		return nil, fmt.Errorf("model is required")
	}

	params := openai.ChatCompletionNewParams{
		Model:    modelID,
		Messages: toOpenAIMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	start := time.Now()
	slog.Debug("chat completion request", "model", modelID, "base_url", e.baseURL, "messages", len(req.Messages))

	completion, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}

	output := strings.TrimSpace(completion.Choices[0].Message.Content)
	slog.Debug("chat completion done", "model", modelID, "duration", time.Since(start), "response_len", len(output))

	return &ExecutionResponse{
		FinalOutput: output,
		ModelID:     modelID,
		DurationMs:  time.Since(start).Milliseconds(),
		Success:     true,
	}, nil
}

func (e *OpenAIEngine) Shutdown(ctx context.Context) error {
	return nil
}

func toOpenAIMessages(msgs []ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
