package arena

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spboyer/codearena/internal/models"
)

// Run identifies one started battle. Updates carrying a Run that is no
// longer current are ignored by the Session.
type Run struct {
	ID         string
	generation uint64
}

// Session holds the review state of one user: the last input, the current
// transcript and the consensus of the most recent run.
//
// States move idle -> running -> complete. Clear returns to idle from any
// state. Every Begin and Clear starts a new generation, so an in-flight run
// that has been cleared or replaced cannot write into the session anymore.
type Session struct {
	mu sync.Mutex

	generation uint64
	runID      string
	state      models.State
	input      string
	transcript models.Transcript
	consensus  *models.ConsensusResult
	touched    time.Time
}

// NewSession creates an idle session.
func NewSession() *Session {
	return &Session{
		state:   models.StateIdle,
		touched: time.Now(),
	}
}

// Begin starts a new run for snippet, discarding the previous transcript and
// consensus. It reports false and changes nothing when snippet is empty.
func (s *Session) Begin(snippet string) (Run, bool) {
	if snippet == "" {
		return Run{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.runID = uuid.NewString()
	s.state = models.StateRunning
	s.input = snippet
	s.transcript = nil
	s.consensus = nil
	s.touched = time.Now()

	return Run{ID: s.runID, generation: s.generation}, true
}

// Append adds a critique to the transcript of run. It reports false when run
// has been superseded.
func (s *Session) Append(run Run, msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(run) || s.state != models.StateRunning {
		return false
	}
	s.transcript = append(s.transcript, msg)
	s.touched = time.Now()
	return true
}

// Complete stores the consensus of run and marks it complete. It reports
// false when run has been superseded.
func (s *Session) Complete(run Run, result models.ConsensusResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(run) || s.state != models.StateRunning {
		return false
	}
	s.consensus = &result
	s.state = models.StateComplete
	s.touched = time.Now()
	return true
}

// Abandon stops run without a consensus and drops the critiques gathered so
// far, leaving the session idle with its input. It is used when the caller
// goes away mid-run.
func (s *Session) Abandon(run Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(run) || s.state != models.StateRunning {
		return
	}
	s.generation++
	s.runID = ""
	s.state = models.StateIdle
	s.transcript = nil
	s.consensus = nil
	s.touched = time.Now()
}

// Clear empties the transcript and consensus and returns to idle. The input
// snippet is kept.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.runID = ""
	s.state = models.StateIdle
	s.transcript = nil
	s.consensus = nil
	s.touched = time.Now()
}

// Snapshot returns a copy of the session safe to hand to other goroutines.
func (s *Session) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.Snapshot{
		RunID:      s.runID,
		State:      s.state,
		Input:      s.input,
		Transcript: s.transcript.Clone(),
	}
	if s.consensus != nil {
		c := *s.consensus
		snap.Consensus = &c
	}
	return snap
}

// LastActive returns the time of the most recent change.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

func (s *Session) current(run Run) bool {
	return run.generation == s.generation && run.ID == s.runID
}
