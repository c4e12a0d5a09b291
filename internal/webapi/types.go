package webapi

import "github.com/spboyer/codearena/internal/models"

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// BattleRequest starts a battle.
type BattleRequest struct {
	Snippet string `json:"snippet"`
}

// MessageView is a transcript message with its display attributes and the
// critique rendered to HTML.
type MessageView struct {
	models.Message
	Icon  string `json:"icon"`
	Style string `json:"style"`
	HTML  string `json:"html"`
}

// StateResponse is the session snapshot sent to the page.
type StateResponse struct {
	RunID      string                  `json:"runId,omitempty"`
	State      models.State            `json:"state"`
	Input      string                  `json:"input"`
	Transcript []MessageView           `json:"transcript"`
	Consensus  *models.ConsensusResult `json:"consensus,omitempty"`
}

// TranscriptEvent is the payload of a "transcript" stream event. It always
// carries the full transcript so far.
type TranscriptEvent struct {
	RunID      string        `json:"runId"`
	Transcript []MessageView `json:"transcript"`
}

// ConsensusEvent is the payload of a "consensus" stream event.
type ConsensusEvent struct {
	RunID     string                 `json:"runId"`
	Consensus models.ConsensusResult `json:"consensus"`
}

// DoneEvent is the payload of the final "done" stream event.
type DoneEvent struct {
	StateResponse
	// Error is set when the run was cleared, replaced or cancelled.
	Error string `json:"error,omitempty"`
}
