// internal/dice/random_roller.go
package dice

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// randomRoller implements Roller backed by a math/rand source. The source is
// guarded by a mutex because rollers are shared across room goroutines.
type randomRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomRoller returns a time-seeded Roller for production use.
func NewRandomRoller() Roller {
	return &randomRoller{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededRoller returns a Roller with a fixed seed, useful for reproducing
// a sequence of rolls.
func NewSeededRoller(seed int64) Roller {
	return &randomRoller{rng: rand.New(rand.NewSource(seed))}
}

func (r *randomRoller) Roll(count, sides, bonus int) (*RollResult, error) {
	if count < 1 {
		return nil, fmt.Errorf("invalid dice count %d", count)
	}
	if sides < 2 {
		return nil, fmt.Errorf("invalid die size d%d", sides)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	result := &RollResult{
		Rolls: make([]int, count),
		Bonus: bonus,
		Total: bonus,
	}
	for i := 0; i < count; i++ {
		roll := r.rng.Intn(sides) + 1
		result.Rolls[i] = roll
		result.Total += roll
	}
	return result, nil
}
