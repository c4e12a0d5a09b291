// Package arena runs a review battle: each persona critiques a snippet in
// turn, then a single rewrite reconciles the critiques.
package arena

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spboyer/codearena/internal/models"
	"github.com/spboyer/codearena/internal/persona"
	"github.com/spboyer/codearena/internal/session"
	"github.com/spboyer/codearena/internal/utils"
)

// DefaultPacing separates successive critiques in interactive use.
const DefaultPacing = 200 * time.Millisecond

var (
	// ErrEmptySnippet is returned by Start when there is nothing to review.
	ErrEmptySnippet = errors.New("empty snippet")

	// ErrSuperseded is returned by Start when the session was cleared or
	// restarted while the run was in flight.
	ErrSuperseded = errors.New("run superseded")
)

// EventType represents the type of progress event
type EventType string

const (
	EventBattleStart    EventType = "battle_start"
	EventCritique       EventType = "critique"
	EventConsensus      EventType = "consensus"
	EventBattleComplete EventType = "battle_complete"
)

// ProgressEvent reports battle progress. Transcript always holds the full
// transcript so far, in sequence order.
type ProgressEvent struct {
	EventType  EventType
	RunID      string
	Message    *models.Message
	Transcript models.Transcript
	Consensus  *models.ConsensusResult
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// Runner sequences the critiques of one battle and then asks for the
// consensus. Calls are strictly sequential.
type Runner struct {
	critic      Critic
	synthesizer Synthesizer
	personas    []models.Persona
	rounds      int
	shuffle     bool
	pacing      time.Duration
	rng         Rand
	strategy    string
	eventLog    session.Logger

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRounds sets how many times every persona speaks. Values below one are
// ignored.
func WithRounds(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.rounds = n
		}
	}
}

// WithShuffle reshuffles the persona order every round.
func WithShuffle(on bool) RunnerOption {
	return func(r *Runner) { r.shuffle = on }
}

// WithPacing sets the delay between critiques. Zero disables it.
func WithPacing(d time.Duration) RunnerOption {
	return func(r *Runner) { r.pacing = d }
}

// WithRand sets the random source used for shuffling.
func WithRand(rng Rand) RunnerOption {
	return func(r *Runner) { r.rng = rng }
}

// WithPersonas replaces the catalog personas.
func WithPersonas(ps []models.Persona) RunnerOption {
	return func(r *Runner) { r.personas = append([]models.Persona(nil), ps...) }
}

// WithStrategy names the critique strategy in logs.
func WithStrategy(name string) RunnerOption {
	return func(r *Runner) { r.strategy = name }
}

// WithEventLog records battle events to l.
func WithEventLog(l session.Logger) RunnerOption {
	return func(r *Runner) { r.eventLog = l }
}

// NewRunner creates a runner over the catalog personas.
func NewRunner(critic Critic, synthesizer Synthesizer, opts ...RunnerOption) *Runner {
	r := &Runner{
		critic:      critic,
		synthesizer: synthesizer,
		personas:    persona.All(),
		rounds:      1,
		pacing:      DefaultPacing,
		eventLog:    session.NopLogger{},
	}
	for _, o := range opts {
		o(r)
	}
	if r.rng == nil {
		r.rng = NewRand(0)
	}
	return r
}

// OnProgress registers a listener for every run of this runner.
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

// Rounds returns the configured number of rounds.
func (r *Runner) Rounds() int { return r.rounds }

// Personas returns the personas in catalog order.
func (r *Runner) Personas() []models.Persona {
	return append([]models.Persona(nil), r.personas...)
}

// RunBattle gathers rounds x personas critiques of snippet without touching
// any session.
func (r *Runner) RunBattle(ctx context.Context, snippet string) models.Transcript {
	transcript, _ := r.critiques(ctx, uuid.NewString(), snippet, func(models.Message) bool { return true }, nil)
	return transcript
}

// Start runs a full battle in sess: it discards the previous run, gathers
// the critiques, asks for the consensus and completes the session. Extra
// listeners receive the progress of this run only.
func (r *Runner) Start(ctx context.Context, sess *Session, snippet string, extra ...ProgressListener) (models.Snapshot, error) {
	run, ok := sess.Begin(snippet)
	if !ok {
		return sess.Snapshot(), ErrEmptySnippet
	}

	begin := time.Now()
	slog.Info("battle started", "run_id", run.ID, "strategy", r.strategy, "rounds", r.rounds, "personas", len(r.personas))
	r.record(session.EventBattleStart, session.BattleStartData(run.ID, r.strategy, r.rounds, len(r.personas), len(snippet)))
	r.notify(extra, ProgressEvent{EventType: EventBattleStart, RunID: run.ID, Transcript: models.Transcript{}})

	transcript, err := r.critiques(ctx, run.ID, snippet, func(msg models.Message) bool {
		return sess.Append(run, msg)
	}, extra)
	if err != nil {
		return r.stop(sess, run, err), err
	}

	start := time.Now()
	result := r.synthesizer.Synthesize(ctx, snippet, transcript.Clone())
	result.Source = snippet
	if ctx.Err() != nil {
		return r.stop(sess, run, ctx.Err()), ctx.Err()
	}
	if !sess.Complete(run, result) {
		return r.stop(sess, run, ErrSuperseded), ErrSuperseded
	}
	r.record(session.EventConsensus, session.ConsensusData(run.ID, len(result.Rewritten), time.Since(start).Milliseconds()))
	r.notify(extra, ProgressEvent{EventType: EventConsensus, RunID: run.ID, Transcript: transcript.Clone(), Consensus: &result})

	r.record(session.EventBattleComplete, session.BattleCompleteData(run.ID, len(transcript), time.Since(begin).Milliseconds()))
	r.notify(extra, ProgressEvent{EventType: EventBattleComplete, RunID: run.ID, Transcript: transcript.Clone(), Consensus: &result})
	slog.Info("battle complete", "run_id", run.ID, "messages", len(transcript), "duration", time.Since(begin))

	return sess.Snapshot(), nil
}

// Clear resets sess to idle and records it. The input snippet is kept.
func (r *Runner) Clear(sess *Session) models.Snapshot {
	sess.Clear()
	r.record(session.EventCleared, nil)
	return sess.Snapshot()
}

// critiques runs the persona loop. keep is called with every new message and
// stops the loop with ErrSuperseded when it reports false.
func (r *Runner) critiques(ctx context.Context, runID, snippet string, keep func(models.Message) bool, extra []ProgressListener) (models.Transcript, error) {
	transcript := make(models.Transcript, 0, r.rounds*len(r.personas))
	seq := 0

	for round := 1; round <= r.rounds; round++ {
		for _, p := range r.order() {
			if seq > 0 {
				if err := r.pause(ctx); err != nil {
					return transcript, err
				}
			}
			if err := ctx.Err(); err != nil {
				return transcript, err
			}

			start := time.Now()
			content := r.critic.Critique(ctx, p, snippet)
			seq++
			msg := models.Message{Persona: p.Name, Content: content, Seq: seq, Round: round}

			if !keep(msg) {
				return transcript, ErrSuperseded
			}
			transcript = append(transcript, msg)

			slog.Debug("critique", "run_id", runID, "persona", p.Name, "seq", seq, "content", utils.Preview(content, 80))
			r.record(session.EventCritique, session.CritiqueData(runID, p.Name, seq, round, content, time.Since(start).Milliseconds()))
			r.notify(extra, ProgressEvent{EventType: EventCritique, RunID: runID, Message: &msg, Transcript: transcript.Clone()})
		}
	}
	return transcript, nil
}

func (r *Runner) order() []models.Persona {
	ps := append([]models.Persona(nil), r.personas...)
	if r.shuffle {
		r.rng.Shuffle(len(ps), func(i, j int) { ps[i], ps[j] = ps[j], ps[i] })
	}
	return ps
}

func (r *Runner) pause(ctx context.Context) error {
	if r.pacing <= 0 {
		return nil
	}
	t := time.NewTimer(r.pacing)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Runner) stop(sess *Session, run Run, err error) models.Snapshot {
	if !errors.Is(err, ErrSuperseded) {
		sess.Abandon(run)
	}
	slog.Info("battle stopped", "run_id", run.ID, "reason", err)
	r.record(session.EventError, session.ErrorData(err.Error(), map[string]any{"run_id": run.ID}))
	return sess.Snapshot()
}

func (r *Runner) record(t session.EventType, data map[string]any) {
	if err := r.eventLog.Log(session.NewEvent(t, data)); err != nil {
		slog.Warn("failed to write battle event", "type", t, "error", err)
	}
}

func (r *Runner) notify(extra []ProgressListener, event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, 0, len(r.listeners)+len(extra))
	listeners = append(listeners, r.listeners...)
	r.progressMu.Unlock()
	listeners = append(listeners, extra...)

	for _, listener := range listeners {
		listener(event)
	}
}
