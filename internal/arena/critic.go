package arena

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spboyer/codearena/internal/execution"
	"github.com/spboyer/codearena/internal/models"
	"github.com/spboyer/codearena/internal/persona"
)

// CritiqueErrorPrefix starts the text shown in place of a critique that
// could not be produced.
const CritiqueErrorPrefix = "System Error: "

// Default generation settings for critiques.
const (
	DefaultCritiqueMaxTokens   = 150
	DefaultCritiqueTemperature = 0.6
)

// Critic produces one short critique of a snippet from a persona's point of
// view. Implementations never fail: faults are returned as critique text.
type Critic interface {
	Critique(ctx context.Context, p models.Persona, snippet string) string
}

// RemoteCritic asks a generation backend for the critique.
type RemoteCritic struct {
	engine      execution.Engine
	maxTokens   int
	temperature float64
}

// NewRemoteCritic creates a critic backed by engine. Non-positive maxTokens
// falls back to DefaultCritiqueMaxTokens.
func NewRemoteCritic(engine execution.Engine, maxTokens int, temperature float64) *RemoteCritic {
	if maxTokens <= 0 {
		maxTokens = DefaultCritiqueMaxTokens
	}
	return &RemoteCritic{
		engine:      engine,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (c *RemoteCritic) Critique(ctx context.Context, p models.Persona, snippet string) string {
	instruction, err := persona.Instruction(p.Name)
	if err != nil {
		return critiqueFault(p, err)
	}

	resp, err := c.engine.Execute(ctx, &execution.ExecutionRequest{
		Messages:    execution.NewExchange(instruction, snippet),
		MaxTokens:   c.maxTokens,
		Temperature: execution.Temperature(c.temperature),
	})
	if err != nil {
		return critiqueFault(p, err)
	}
	if !resp.Success {
		return critiqueFault(p, errors.New(resp.ErrorMsg))
	}
	return resp.FinalOutput
}

func critiqueFault(p models.Persona, err error) string {
	slog.Warn("critique failed", "persona", p.Name, "error", err)
	return CritiqueErrorPrefix + err.Error()
}

// MockCritic picks a canned line for the persona and ignores the snippet.
type MockCritic struct {
	rng Rand
}

// NewMockCritic creates an offline critic drawing from rng.
func NewMockCritic(rng Rand) *MockCritic {
	return &MockCritic{rng: rng}
}

func (c *MockCritic) Critique(ctx context.Context, p models.Persona, snippet string) string {
	pool, err := persona.Canned(p.Name)
	if err != nil {
		return critiqueFault(p, err)
	}
	return pool[c.rng.IntN(len(pool))]
}
