package execution

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockEngine is a scriptable offline engine for tests and demos
type MockEngine struct {
	modelID string

	// Respond produces the reply for a request. When nil the engine echoes
	// the user content.
	Respond func(req *ExecutionRequest) (string, error)

	mu       sync.Mutex
	requests []ExecutionRequest
}

// NewMockEngine creates a new mock engine
func NewMockEngine(modelID string) *MockEngine {
	return &MockEngine{
		modelID: modelID,
	}
}

func (m *MockEngine) Initialize(ctx context.Context) error {
	return nil
}

func (m *MockEngine) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil req was passed to MockEngine.Execute")
	}
	start := time.Now()

	m.mu.Lock()
	m.requests = append(m.requests, *req)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var output string
	if m.Respond != nil {
		out, err := m.Respond(req)
		if err != nil {
			return nil, err
		}
		output = out
	} else {
		_, user := systemAndUser(req.Messages)
		output = fmt.Sprintf("Mock response for: %s", user)
	}

	modelID := m.modelID
	if req.ModelID != "" {
		modelID = req.ModelID
	}

	return &ExecutionResponse{
		FinalOutput: output,
		ModelID:     modelID,
		DurationMs:  time.Since(start).Milliseconds(),
		Success:     true,
	}, nil
}

// Requests returns a copy of every request the engine has received.
func (m *MockEngine) Requests() []ExecutionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ExecutionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockEngine) Shutdown(ctx context.Context) error {
	return nil
}
