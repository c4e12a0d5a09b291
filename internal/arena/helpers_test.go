package arena

import (
	"context"
	"fmt"
	"sync"

	"github.com/spboyer/codearena/internal/models"
	"github.com/spboyer/codearena/internal/session"
)

// fixedRand returns picks in order for IntN and reverses on Shuffle.
type fixedRand struct {
	picks []int
	calls int
}

func (f *fixedRand) IntN(n int) int {
	if len(f.picks) == 0 {
		return 0
	}
	v := f.picks[f.calls%len(f.picks)] % n
	f.calls++
	return v
}

func (f *fixedRand) Shuffle(n int, swap func(i, j int)) {
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

// scriptedCritic answers with "<persona> says <snippet>" and fails for the
// personas in failing.
type scriptedCritic struct {
	mu      sync.Mutex
	failing map[string]bool
	calls   []string
}

func (c *scriptedCritic) Critique(ctx context.Context, p models.Persona, snippet string) string {
	c.mu.Lock()
	c.calls = append(c.calls, p.Name)
	c.mu.Unlock()
	if c.failing[p.Name] {
		return CritiqueErrorPrefix + "backend unavailable"
	}
	return fmt.Sprintf("%s says %s", p.Name, snippet)
}

type echoSynthesizer struct{}

func (echoSynthesizer) Synthesize(ctx context.Context, snippet string, transcript models.Transcript) models.ConsensusResult {
	return models.ConsensusResult{Rewritten: fmt.Sprintf("fixed(%s) after %d critiques", snippet, len(transcript))}
}

type recordingLogger struct {
	mu     sync.Mutex
	events []session.Event
}

func (l *recordingLogger) Log(ev session.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *recordingLogger) Close() error { return nil }

func (l *recordingLogger) types() []session.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]session.EventType, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Type)
	}
	return out
}
