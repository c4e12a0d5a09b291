package arena

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRand_SeedIsDeterministic(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	for range 20 {
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}

	xs := []int{1, 2, 3, 4, 5}
	ys := []int{1, 2, 3, 4, 5}
	a.Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })
	b.Shuffle(len(ys), func(i, j int) { ys[i], ys[j] = ys[j], ys[i] })
	assert.Equal(t, xs, ys)
}

func TestNewRand_ConcurrentUse(t *testing.T) {
	rng := NewRand(0)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				v := rng.IntN(3)
				assert.GreaterOrEqual(t, v, 0)
				assert.Less(t, v, 3)
			}
		}()
	}
	wg.Wait()
}
