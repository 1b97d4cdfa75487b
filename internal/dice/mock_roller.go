// internal/dice/mock_roller.go
package dice

import (
	"fmt"
	"sync"
)

// MockRoller implements Roller with a scripted sequence of die results. Tests
// queue raw rolls; each Roll call consumes count of them in order.
type MockRoller struct {
	mu    sync.Mutex
	rolls []int
	next  int
}

// NewMockRoller returns an empty MockRoller. Queue results with SetRolls or
// PushRoll before use.
func NewMockRoller() *MockRoller {
	return &MockRoller{}
}

// SetRolls replaces the scripted sequence and resets the cursor.
func (m *MockRoller) SetRolls(rolls []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolls = rolls
	m.next = 0
}

// PushRoll appends one result to the scripted sequence.
func (m *MockRoller) PushRoll(roll int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolls = append(m.rolls, roll)
}

// Remaining reports how many scripted rolls have not been consumed yet.
func (m *MockRoller) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rolls) - m.next
}

func (m *MockRoller) Roll(count, sides, bonus int) (*RollResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if count < 1 {
		return nil, fmt.Errorf("invalid dice count %d", count)
	}
	result := &RollResult{
		Rolls: make([]int, count),
		Bonus: bonus,
		Total: bonus,
	}
	for i := 0; i < count; i++ {
		if m.next >= len(m.rolls) {
			return nil, fmt.Errorf("mock roller exhausted (used %d of %d)", m.next, len(m.rolls))
		}
		roll := m.rolls[m.next]
		m.next++
		if roll < 1 || roll > sides {
			return nil, fmt.Errorf("scripted roll %d out of range for d%d", roll, sides)
		}
		result.Rolls[i] = roll
		result.Total += roll
	}
	return result, nil
}
