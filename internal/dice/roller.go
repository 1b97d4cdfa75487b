// internal/dice/roller.go
package dice

// Roller abstracts the source of dice rolls so combat resolution can be
// driven by a deterministic implementation in tests. Production code injects
// a random roller once at startup; nothing in the game logic reaches for a
// global random source.
type Roller interface {
	// Roll rolls count dice with the given number of sides and adds bonus.
	Roll(count, sides, bonus int) (*RollResult, error)
}

// RollResult holds the outcome of a single Roll call.
type RollResult struct {
	Total int   // sum of rolls plus bonus
	Rolls []int // individual die results, each in [1, sides]
	Bonus int
}
