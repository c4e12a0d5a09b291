package execution

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig holds configuration for the Gemini engine.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string

	HTTPClient *http.Client
}

// GeminiEngine generates text with Google's Gemini API.
type GeminiEngine struct {
	client         *genai.Client
	defaultModelID string
}

// NewGeminiEngine creates a Gemini engine.
func NewGeminiEngine(ctx context.Context, cfg GeminiConfig) (*GeminiEngine, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiEngine{
		client:         client,
		defaultModelID: model,
	}, nil
}

func (e *GeminiEngine) Initialize(ctx context.Context) error {
	return ctx.Err()
}

// Execute maps the system framing to a system instruction and the user
// content to the prompt.
func (e *GeminiEngine) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil req was passed to GeminiEngine.Execute")
	}

	modelID := e.defaultModelID
	if req.ModelID != "" {
		modelID = req.ModelID
	}

	system, user := systemAndUser(req.Messages)

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
		// thinking tokens count against the cap; a short budget would be spent before any text
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)}
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}

	start := time.Now()
	slog.Debug("gemini request", "model", modelID, "system_len", len(system), "user_len", len(user))

	result, err := e.client.Models.GenerateContent(ctx, modelID, genai.Text(user), config)
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	output := strings.TrimSpace(result.Text())
	if output == "" {
		return nil, fmt.Errorf("no content returned")
	}

	return &ExecutionResponse{
		FinalOutput: output,
		ModelID:     modelID,
		DurationMs:  time.Since(start).Milliseconds(),
		Success:     true,
	}, nil
}

func (e *GeminiEngine) Shutdown(ctx context.Context) error {
	return nil
}
