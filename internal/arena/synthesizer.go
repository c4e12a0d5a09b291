package arena

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spboyer/codearena/internal/execution"
	"github.com/spboyer/codearena/internal/models"
	"github.com/spboyer/codearena/internal/persona"
)

// ConsensusErrorPrefix starts the text shown in place of a rewrite that
// could not be produced. It reads as a comment in most languages.
const ConsensusErrorPrefix = "# Error generating consensus: "

// DefaultConsensusTemperature keeps rewrites close to the input.
const DefaultConsensusTemperature = 0.2

// Synthesizer produces the single rewritten snippet after the critiques.
// Implementations never fail: faults are returned as the rewrite text.
type Synthesizer interface {
	Synthesize(ctx context.Context, snippet string, transcript models.Transcript) models.ConsensusResult
}

// RemoteSynthesizer asks a generation backend for the rewrite.
type RemoteSynthesizer struct {
	engine           execution.Engine
	maxTokens        int
	temperature      float64
	includeCritiques bool
}

// RemoteSynthesizerOption configures a RemoteSynthesizer.
type RemoteSynthesizerOption func(*RemoteSynthesizer)

// WithConsensusMaxTokens caps the rewrite length. Zero means no cap.
func WithConsensusMaxTokens(n int) RemoteSynthesizerOption {
	return func(s *RemoteSynthesizer) { s.maxTokens = n }
}

// WithConsensusTemperature overrides DefaultConsensusTemperature.
func WithConsensusTemperature(t float64) RemoteSynthesizerOption {
	return func(s *RemoteSynthesizer) { s.temperature = t }
}

// WithCritiques sends the critique texts along with the snippet.
func WithCritiques(include bool) RemoteSynthesizerOption {
	return func(s *RemoteSynthesizer) { s.includeCritiques = include }
}

// NewRemoteSynthesizer creates a synthesizer backed by engine.
func NewRemoteSynthesizer(engine execution.Engine, opts ...RemoteSynthesizerOption) *RemoteSynthesizer {
	s := &RemoteSynthesizer{
		engine:      engine,
		temperature: DefaultConsensusTemperature,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *RemoteSynthesizer) Synthesize(ctx context.Context, snippet string, transcript models.Transcript) models.ConsensusResult {
	result := models.ConsensusResult{Source: snippet}

	resp, err := s.engine.Execute(ctx, &execution.ExecutionRequest{
		Messages:    execution.NewExchange(persona.JudgeInstruction, s.prompt(snippet, transcript)),
		MaxTokens:   s.maxTokens,
		Temperature: execution.Temperature(s.temperature),
	})
	switch {
	case err != nil:
		result.Rewritten = consensusFault(err)
	case !resp.Success:
		result.Rewritten = consensusFault(errors.New(resp.ErrorMsg))
	default:
		result.Rewritten = resp.FinalOutput
	}
	return result
}

func (s *RemoteSynthesizer) prompt(snippet string, transcript models.Transcript) string {
	var b strings.Builder
	b.WriteString("Fix this code:\n\n")
	b.WriteString(snippet)

	if s.includeCritiques && len(transcript) > 0 {
		b.WriteString("\n\nReviewer notes:\n")
		for _, m := range transcript {
			fmt.Fprintf(&b, "- %s: %s\n", m.Persona, m.Content)
		}
	}
	return b.String()
}

func consensusFault(err error) string {
	slog.Warn("consensus failed", "error", err)
	return ConsensusErrorPrefix + err.Error()
}

// mockRewrite is the illustrative verdict returned offline.
const mockRewrite = `# Security (Sentinel): secrets come from the environment, inputs are validated
# Performance (Flash): repeated scans replaced with a single dictionary lookup
# Style (Sage): descriptive names and a docstring

import os


def find_user(users, user_id):
    """Return the user with the given id, or None."""
    if not isinstance(user_id, int):
        raise ValueError("user_id must be an integer")

    api_key = os.environ["API_KEY"]  # never hardcode credentials
    by_id = {user.id: user for user in users}
    return by_id.get(user_id)
`

// MockSynthesizer returns a fixed rewrite naming the three focus areas. It
// ignores the snippet content.
type MockSynthesizer struct{}

func (MockSynthesizer) Synthesize(ctx context.Context, snippet string, transcript models.Transcript) models.ConsensusResult {
	return models.ConsensusResult{
		Source:    snippet,
		Rewritten: mockRewrite,
		Issues: &models.IssueSummary{
			Critical: []string{
				"Security: unvalidated input reaches the core logic",
				"Security: credentials are hardcoded in source",
			},
			Suggestions: []string{
				"Performance: replace nested scans with a keyed lookup",
				"Style: use descriptive names and add docstrings",
			},
		},
	}
}
