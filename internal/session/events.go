package session

import "time"

// EventType identifies the kind of battle event.
type EventType string

const (
	EventBattleStart    EventType = "battle_start"
	EventCritique       EventType = "critique"
	EventConsensus      EventType = "consensus"
	EventBattleComplete EventType = "battle_complete"
	EventCleared        EventType = "cleared"
	EventError          EventType = "error"
)

// Event is a single timestamped entry in a battle log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

// BattleStartData returns event data for a battle start.
func BattleStartData(runID, strategy string, rounds, personas, snippetLen int) map[string]any {
	return map[string]any{
		"run_id":      runID,
		"strategy":    strategy,
		"rounds":      rounds,
		"personas":    personas,
		"snippet_len": snippetLen,
	}
}

// CritiqueData returns event data for one appended critique.
func CritiqueData(runID, persona string, seq, round int, content string, durationMs int64) map[string]any {
	return map[string]any{
		"run_id":      runID,
		"persona":     persona,
		"seq":         seq,
		"round":       round,
		"content":     content,
		"duration_ms": durationMs,
	}
}

// ConsensusData returns event data for a finished rewrite.
func ConsensusData(runID string, rewrittenLen int, durationMs int64) map[string]any {
	return map[string]any{
		"run_id":        runID,
		"rewritten_len": rewrittenLen,
		"duration_ms":   durationMs,
	}
}

// BattleCompleteData returns event data for a battle end.
func BattleCompleteData(runID string, messages int, durationMs int64) map[string]any {
	return map[string]any{
		"run_id":      runID,
		"messages":    messages,
		"duration_ms": durationMs,
	}
}

// ErrorData returns event data for an error.
func ErrorData(message string, details map[string]any) map[string]any {
	d := map[string]any{
		"message": message,
	}
	for k, v := range details {
		d[k] = v
	}
	return d
}
