package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spboyer/codearena/internal/arena"
	"github.com/spboyer/codearena/internal/execution"
	"github.com/spboyer/codearena/internal/projectconfig"
	"github.com/spboyer/codearena/internal/session"
)

// battleStack is a runner together with what must be released after it.
type battleStack struct {
	Runner *arena.Runner

	engine   execution.Engine
	eventLog session.Logger
}

// Close shuts the engine down and closes the event log.
func (b *battleStack) Close(ctx context.Context) {
	if b.engine != nil {
		if err := b.engine.Shutdown(ctx); err != nil {
			slog.Warn("backend shutdown failed", "error", err)
		}
	}
	if b.eventLog != nil {
		if err := b.eventLog.Close(); err != nil {
			slog.Warn("closing battle log failed", "error", err)
		}
	}
}

// newEngine builds the generation backend selected by cfg.Backend.
func newEngine(ctx context.Context, cfg projectconfig.BackendConfig) (execution.Engine, error) {
	var hc *http.Client
	if cfg.Timeout > 0 {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	switch cfg.Provider {
	case projectconfig.ProviderGroq, projectconfig.ProviderOpenAI:
		baseURL, model := execution.GroqBaseURL, execution.DefaultGroqModel
		if cfg.Provider == projectconfig.ProviderOpenAI {
			baseURL, model = execution.OpenAIBaseURL, execution.DefaultOpenAIModel
		}
		if cfg.BaseURL != "" {
			baseURL = cfg.BaseURL
		}
		if cfg.Model != "" {
			model = cfg.Model
		}
		return execution.NewOpenAIEngine(execution.OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    baseURL,
			Model:      model,
			HTTPClient: hc,
		}), nil
	case projectconfig.ProviderGemini:
		engine, err := execution.NewGeminiEngine(ctx, execution.GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			HTTPClient: hc,
		})
		if err != nil {
			return nil, err
		}
		return engine, nil
	case projectconfig.ProviderCopilot:
		return execution.NewCopilotEngineBuilder(cfg.Model, nil).Build(), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

// newBattleStack wires critic, synthesizer, random source and event log from
// cfg. The backend is only built when a remote strategy needs it.
func newBattleStack(ctx context.Context, cfg *projectconfig.Config, extra ...arena.RunnerOption) (*battleStack, error) {
	stack := &battleStack{}

	if cfg.NeedsBackend() {
		engine, err := newEngine(ctx, cfg.Backend)
		if err != nil {
			return nil, fmt.Errorf("creating %s backend: %w", cfg.Backend.Provider, err)
		}
		if err := engine.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("initializing %s backend: %w", cfg.Backend.Provider, err)
		}
		stack.engine = engine
	}

	eventLog, err := session.Open(cfg.Logging.SessionLog, cfg.Logging.Dir)
	if err != nil {
		stack.Close(ctx)
		return nil, err
	}
	stack.eventLog = eventLog

	rng := arena.NewRand(cfg.Battle.Seed)

	var critic arena.Critic
	if cfg.Critique.Strategy == projectconfig.StrategyMock {
		critic = arena.NewMockCritic(rng)
	} else {
		critic = arena.NewRemoteCritic(stack.engine, cfg.Critique.MaxTokens, cfg.Critique.Temperature)
	}

	var synth arena.Synthesizer
	if cfg.Consensus.Strategy == projectconfig.StrategyMock {
		synth = arena.MockSynthesizer{}
	} else {
		synth = arena.NewRemoteSynthesizer(stack.engine,
			arena.WithConsensusMaxTokens(cfg.Consensus.MaxTokens),
			arena.WithConsensusTemperature(cfg.Consensus.Temperature),
			arena.WithCritiques(cfg.Consensus.IncludeCritiques),
		)
	}

	opts := []arena.RunnerOption{
		arena.WithRounds(cfg.Battle.Rounds),
		arena.WithShuffle(cfg.Battle.Shuffle),
		arena.WithPacing(cfg.Battle.Pacing),
		arena.WithRand(rng),
		arena.WithStrategy(strategyLabel(cfg)),
		arena.WithEventLog(eventLog),
	}
	stack.Runner = arena.NewRunner(critic, synth, append(opts, extra...)...)
	return stack, nil
}

func strategyLabel(cfg *projectconfig.Config) string {
	if cfg.Critique.Strategy == cfg.Consensus.Strategy {
		return string(cfg.Critique.Strategy)
	}
	return fmt.Sprintf("critique=%s,consensus=%s", cfg.Critique.Strategy, cfg.Consensus.Strategy)
}
