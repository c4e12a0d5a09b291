package spinner

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsAndClears(t *testing.T) {
	var out syncBuffer
	s := Start(&out, "Compiling consensus")

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Compiling consensus (0s)")
	}, time.Second, 10*time.Millisecond)

	s.Stop()
	got := out.String()
	assert.True(t, strings.HasSuffix(got, "\r"), "line is cleared on stop")
	assert.Contains(t, got, frames[0])
}

func TestSpinnerSetMessage(t *testing.T) {
	var out syncBuffer
	s := Start(&out, "first")
	defer s.Stop()

	s.SetMessage("second ⚡")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "second ⚡")
	}, time.Second, 10*time.Millisecond)
}

func TestSpinnerStopTwice(t *testing.T) {
	var out syncBuffer
	s := Start(&out, "x")
	s.Stop()
	s.Stop()
}

func TestSpinnerStopBeforeFirstFrame(t *testing.T) {
	var out syncBuffer
	s := Start(&out, "quick")
	s.Stop()
	assert.NotContains(t, out.String(), "quick")
}
