package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/spboyer/codearena/internal/arena"
	"github.com/spboyer/codearena/internal/models"
	"github.com/spboyer/codearena/internal/persona"
)

// Notification methods sent while battle.run is in progress.
const (
	NotifyCritique  = "battle.critique"
	NotifyConsensus = "battle.consensus"
)

// BattleRunParams are the parameters of battle.run.
type BattleRunParams struct {
	Snippet string `json:"snippet"`
}

// CritiqueNotification carries one new critique.
type CritiqueNotification struct {
	RunID   string         `json:"runId"`
	Message models.Message `json:"message"`
}

// ConsensusNotification carries the rewrite.
type ConsensusNotification struct {
	RunID     string                 `json:"runId"`
	Consensus models.ConsensusResult `json:"consensus"`
}

type handlers struct {
	runner *arena.Runner
}

// RegisterHandlers registers the battle, persona and session methods.
func RegisterHandlers(registry *MethodRegistry, runner *arena.Runner) {
	h := &handlers{runner: runner}
	registry.Register("personas.list", h.handlePersonasList)
	registry.Register("battle.run", h.handleBattleRun)
	registry.Register("session.state", h.handleSessionState)
	registry.Register("session.clear", h.handleSessionClear)
}

func (h *handlers) handlePersonasList(_ context.Context, _ *Conn, _ json.RawMessage) (any, *Error) {
	return persona.All(), nil
}

// handleBattleRun runs a battle in the connection's session. An empty
// snippet leaves the session untouched and returns it as is.
func (h *handlers) handleBattleRun(ctx context.Context, conn *Conn, params json.RawMessage) (any, *Error) {
	var p BattleRunParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, ErrInvalidParams(err.Error())
	}

	snap, err := h.runner.Start(ctx, conn.Session, p.Snippet, func(ev arena.ProgressEvent) {
		var nerr error
		switch ev.EventType {
		case arena.EventCritique:
			nerr = conn.Notify(NotifyCritique, CritiqueNotification{RunID: ev.RunID, Message: *ev.Message})
		case arena.EventConsensus:
			nerr = conn.Notify(NotifyConsensus, ConsensusNotification{RunID: ev.RunID, Consensus: *ev.Consensus})
		}
		if nerr != nil {
			slog.Debug("notification failed", "event", ev.EventType, "error", nerr)
		}
	})
	switch {
	case errors.Is(err, arena.ErrEmptySnippet):
		return snap, nil
	case err != nil:
		return nil, ErrBattleStopped(err.Error())
	}
	return snap, nil
}

func (h *handlers) handleSessionState(_ context.Context, conn *Conn, _ json.RawMessage) (any, *Error) {
	return conn.Session.Snapshot(), nil
}

func (h *handlers) handleSessionClear(_ context.Context, conn *Conn, _ json.RawMessage) (any, *Error) {
	return h.runner.Clear(conn.Session), nil
}
