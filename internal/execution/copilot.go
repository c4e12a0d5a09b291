package execution

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	copilot "github.com/github/copilot-sdk/go"
	"github.com/spboyer/codearena/internal/utils"
)

// CopilotEngine integrates with GitHub Copilot SDK
type CopilotEngine struct {
	defaultModelID string

	client copilotClient

	startOnce sync.Once
	startErr  error

	workspaceMu sync.Mutex
	workspace   string // scratch directory sessions run in, removed at Shutdown
}

// CopilotEngineBuilder builds a CopilotEngine with options
type CopilotEngineBuilder struct {
	engine *CopilotEngine
}

type CopilotEngineBuilderOptions struct {
	NewCopilotClient func(clientOptions *copilot.ClientOptions) copilotClient
}

// NewCopilotEngineBuilder creates a builder for CopilotEngine
//   - defaultModelID - used if no model ID is specified in the request. Can be blank, which means the copilot
//     CLI will choose its own fallback model.
func NewCopilotEngineBuilder(defaultModelID string, options *CopilotEngineBuilderOptions) *CopilotEngineBuilder {
	var client copilotClient

	copilotOptions := &copilot.ClientOptions{
		LogLevel:  "error",
		AutoStart: copilot.Bool(false),
	}

	if options == nil || options.NewCopilotClient == nil {
		client = newCopilotClient(copilotOptions)
	} else {
		client = options.NewCopilotClient(copilotOptions)
	}

	return &CopilotEngineBuilder{
		engine: &CopilotEngine{
			defaultModelID: defaultModelID,
			client:         client,
		},
	}
}

func (b *CopilotEngineBuilder) Build() *CopilotEngine {
	return b.engine
}

// Initialize sets up the Copilot client
func (e *CopilotEngine) Initialize(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Execute runs one exchange in a fresh Copilot session. The SDK takes a
// single prompt, so the system framing is prepended to the user content and
// MaxTokens/Temperature are not forwarded.
func (e *CopilotEngine) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil req was passed to CopilotEngine.Execute")
	}

	e.startOnce.Do(func() {
		// copilot's autostart misbehaves when triggered from separate goroutines
		e.startErr = e.client.Start(ctx)
	})

	if e.startErr != nil {
		return nil, fmt.Errorf("copilot failed to start: %w", e.startErr)
	}

	modelID := e.defaultModelID
	if req.ModelID != "" {
		modelID = req.ModelID
	}

	workspaceDir, err := e.ensureWorkspace()
	if err != nil {
		return nil, err
	}

	start := time.Now()

	session, err := e.client.CreateSession(ctx, &copilot.SessionConfig{
		Model:               modelID,
		OnPermissionRequest: denyAllTools,
		WorkingDirectory:    workspaceDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	eventsCollector := NewSessionEventsCollector()

	unsubscribe := session.On(eventsCollector.On)
	defer unsubscribe()

	unsubscribe = session.On(utils.SessionToSlog)
	defer unsubscribe()

	_, err = session.SendAndWait(ctx, copilot.MessageOptions{
		Prompt: flattenPrompt(req.Messages),
	})

	var errMsg string
	if err != nil {
		// errors raised inside the conversation also come back here; keep them
		// on the response so callers see one shape for every failure
		errMsg = err.Error()
	} else if collected := eventsCollector.ErrorMessage(); collected != "" {
		errMsg = collected
	}

	return &ExecutionResponse{
		FinalOutput: strings.TrimSpace(joinStrings(eventsCollector.OutputParts())),
		ModelID:     modelID,
		DurationMs:  time.Since(start).Milliseconds(),
		ErrorMsg:    errMsg,
		Success:     errMsg == "",
	}, nil
}

// Shutdown cleans up resources
func (e *CopilotEngine) Shutdown(ctx context.Context) error {
	if err := e.client.Stop(); err != nil {
		// Log but continue cleanup
		slog.Info("failed to stop client", "error", err)
	}

	e.workspaceMu.Lock()
	ws := e.workspace
	e.workspace = ""
	e.workspaceMu.Unlock()

	if ws != "" {
		if err := os.RemoveAll(ws); err != nil {
			slog.Warn("failed to cleanup stale workspace", "path", ws, "error", err)
		}
	}

	return nil
}

func (e *CopilotEngine) ensureWorkspace() (string, error) {
	e.workspaceMu.Lock()
	defer e.workspaceMu.Unlock()

	if e.workspace != "" {
		return e.workspace, nil
	}

	dir, err := os.MkdirTemp("", "codearena-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp workspace: %w", err)
	}
	e.workspace = dir
	return dir, nil
}

func flattenPrompt(msgs []ChatMessage) string {
	system, user := systemAndUser(msgs)
	if system == "" {
		return user
	}
	return system + "\n\n" + user
}

func joinStrings(parts []string) string {
	var builder strings.Builder
	for _, p := range parts {
		builder.WriteString(p)
	}
	return builder.String()
}

// denyAllTools refuses every tool call. Critiques need no tools.
func denyAllTools(request copilot.PermissionRequest, invocation copilot.PermissionInvocation) (copilot.PermissionRequestResult, error) {
	return copilot.PermissionRequestResult{Kind: copilot.PermissionRequestResultKindDeniedByRules}, nil
}
