package arena

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Rand is the random source used for persona order and canned critiques.
// Tests supply a deterministic implementation.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// lockedRand serializes access to a *rand.Rand, which is not safe for
// concurrent use. Sessions on different requests share one source.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a goroutine-safe Rand. A zero seed seeds from the clock.
func NewRand(seed uint64) Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}
