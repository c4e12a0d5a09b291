package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spboyer/codearena/internal/arena"
	"github.com/spboyer/codearena/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// message is either a response or a notification line.
type message struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
	ID     json.RawMessage `json:"id"`
}

func battleRegistry() *MethodRegistry {
	runner := arena.NewRunner(arena.NewMockCritic(arena.NewRand(3)), arena.MockSynthesizer{}, arena.WithPacing(0))
	registry := NewMethodRegistry()
	RegisterHandlers(registry, runner)
	return registry
}

func decodeLines(t *testing.T, out string) []message {
	t.Helper()
	var msgs []message
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var m message
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		msgs = append(msgs, m)
	}
	return msgs
}

func TestRegisterHandlers_Methods(t *testing.T) {
	assert.Equal(t, []string{"battle.run", "personas.list", "session.clear", "session.state"}, battleRegistry().Methods())
}

func TestPersonasList(t *testing.T) {
	msgs := decodeLines(t, serve(t, battleRegistry(), `{"jsonrpc":"2.0","method":"personas.list","id":1}`+"\n"))
	require.Len(t, msgs, 1)

	var ps []models.Persona
	require.NoError(t, json.Unmarshal(msgs[0].Result, &ps))
	require.Len(t, ps, 3)
	assert.Equal(t, "Sentinel", ps[0].Name)
}

func TestBattleRun_NotifiesThenResponds(t *testing.T) {
	msgs := decodeLines(t, serve(t, battleRegistry(), `{"jsonrpc":"2.0","method":"battle.run","params":{"snippet":"x = 1"},"id":1}`+"\n"))
	require.Len(t, msgs, 5)

	for i := 0; i < 3; i++ {
		assert.Equal(t, NotifyCritique, msgs[i].Method)
		var n CritiqueNotification
		require.NoError(t, json.Unmarshal(msgs[i].Params, &n))
		assert.Equal(t, i+1, n.Message.Seq)
	}
	assert.Equal(t, NotifyConsensus, msgs[3].Method)

	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(msgs[4].Result, &snap))
	assert.Equal(t, models.StateComplete, snap.State)
	assert.Len(t, snap.Transcript, 3)
	require.NotNil(t, snap.Consensus)
	assert.Equal(t, "x = 1", snap.Consensus.Source)
}

func TestBattleRun_EmptySnippetIsNoop(t *testing.T) {
	msgs := decodeLines(t, serve(t, battleRegistry(), `{"jsonrpc":"2.0","method":"battle.run","params":{"snippet":""},"id":1}`+"\n"))
	require.Len(t, msgs, 1)
	assert.Nil(t, msgs[0].Error)

	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(msgs[0].Result, &snap))
	assert.Equal(t, models.StateIdle, snap.State)
	assert.Empty(t, snap.Transcript)
}

func TestBattleRun_InvalidParams(t *testing.T) {
	msgs := decodeLines(t, serve(t, battleRegistry(), `{"jsonrpc":"2.0","method":"battle.run","params":[1],"id":1}`+"\n"))
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, CodeInvalidParams, msgs[0].Error.Code)
}

func TestBattleRun_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := &handlers{runner: arena.NewRunner(arena.NewMockCritic(arena.NewRand(1)), arena.MockSynthesizer{}, arena.WithPacing(0))}
	conn := &Conn{Session: arena.NewSession(), transport: NewTransport(strings.NewReader(""), &bytes.Buffer{})}

	_, rpcErr := h.handleBattleRun(ctx, conn, json.RawMessage(`{"snippet":"x"}`))
	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeBattleStopped, rpcErr.Code)
}

func TestSessionStateAndClear(t *testing.T) {
	input := `{"jsonrpc":"2.0","method":"battle.run","params":{"snippet":"x = 1"},"id":1}` + "\n" +
		`{"jsonrpc":"2.0","method":"session.state","id":2}` + "\n" +
		`{"jsonrpc":"2.0","method":"session.clear","id":3}` + "\n"
	msgs := decodeLines(t, serve(t, battleRegistry(), input))
	require.Len(t, msgs, 7)

	var state, cleared models.Snapshot
	require.NoError(t, json.Unmarshal(msgs[5].Result, &state))
	require.NoError(t, json.Unmarshal(msgs[6].Result, &cleared))

	assert.Equal(t, models.StateComplete, state.State)
	assert.Len(t, state.Transcript, 3)

	assert.Equal(t, models.StateIdle, cleared.State)
	assert.Empty(t, cleared.Transcript)
	assert.Nil(t, cleared.Consensus)
	assert.Equal(t, "x = 1", cleared.Input)
}
