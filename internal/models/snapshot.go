package models

// State is the lifecycle state of a review session.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateComplete State = "complete"
)

// Snapshot is a read-only copy of a session, handed to presentation.
type Snapshot struct {
	RunID      string           `json:"runId,omitempty"`
	State      State            `json:"state"`
	Input      string           `json:"input"`
	Transcript Transcript       `json:"transcript"`
	Consensus  *ConsensusResult `json:"consensus,omitempty"`
}
