package execution

import (
	"context"
	"strings"
)

// Engine is the interface to a text-generation backend
type Engine interface {
	// Initialize sets up the engine
	Initialize(ctx context.Context) error

	// Execute sends one role-tagged exchange and waits for the reply
	Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResponse, error)

	// Shutdown cleans up resources
	Shutdown(ctx context.Context) error
}

// Role tags a message in an exchange.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// ChatMessage is a single role-tagged message.
type ChatMessage struct {
	Role    Role
	Content string
}

// ExecutionRequest represents a generation request
type ExecutionRequest struct {
	Messages []ChatMessage

	// MaxTokens caps the response length. Zero leaves the backend default.
	MaxTokens int

	// Temperature is the randomness setting. Nil leaves the backend default.
	Temperature *float64

	// ModelID overrides the engine's default model when set.
	ModelID string
}

// ExecutionResponse represents the result of an execution
type ExecutionResponse struct {
	FinalOutput string
	ModelID     string
	DurationMs  int64
	ErrorMsg    string
	Success     bool
}

// NewExchange builds the two-part exchange used for critiques and rewrites:
// a system framing followed by the user content.
func NewExchange(instruction, content string) []ChatMessage {
	return []ChatMessage{
		{Role: RoleSystem, Content: instruction},
		{Role: RoleUser, Content: content},
	}
}

// Temperature returns a pointer suitable for ExecutionRequest.Temperature.
func Temperature(t float64) *float64 {
	return &t
}

// systemAndUser splits an exchange into its joined system text and joined
// user text.
func systemAndUser(msgs []ChatMessage) (system string, user string) {
	var sys, usr []string
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			sys = append(sys, m.Content)
		default:
			usr = append(usr, m.Content)
		}
	}
	return strings.Join(sys, "\n\n"), strings.Join(usr, "\n\n")
}
