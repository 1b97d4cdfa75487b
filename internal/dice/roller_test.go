// internal/dice/roller_test.go
package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomRollerRange(t *testing.T) {
	r := NewSeededRoller(1)
	for i := 0; i < 1000; i++ {
		res, err := r.Roll(1, 6, 0)
		require.NoError(t, err)
		require.Len(t, res.Rolls, 1)
		assert.GreaterOrEqual(t, res.Rolls[0], 1)
		assert.LessOrEqual(t, res.Rolls[0], 6)
		assert.Equal(t, res.Rolls[0], res.Total)
	}
}

func TestRandomRollerBonus(t *testing.T) {
	r := NewSeededRoller(42)
	res, err := r.Roll(2, 4, 3)
	require.NoError(t, err)
	require.Len(t, res.Rolls, 2)
	assert.Equal(t, res.Rolls[0]+res.Rolls[1]+3, res.Total)
	assert.Equal(t, 3, res.Bonus)
}

func TestSeededRollerIsDeterministic(t *testing.T) {
	a := NewSeededRoller(7)
	b := NewSeededRoller(7)
	for i := 0; i < 50; i++ {
		ra, err := a.Roll(1, 100, 0)
		require.NoError(t, err)
		rb, err := b.Roll(1, 100, 0)
		require.NoError(t, err)
		assert.Equal(t, ra.Total, rb.Total)
	}
}

func TestRandomRollerRejectsBadArguments(t *testing.T) {
	r := NewRandomRoller()
	_, err := r.Roll(0, 6, 0)
	assert.Error(t, err)
	_, err = r.Roll(1, 1, 0)
	assert.Error(t, err)
}

func TestMockRollerScriptedSequence(t *testing.T) {
	m := NewMockRoller()
	m.SetRolls([]int{3, 5, 2})

	res, err := m.Roll(1, 6, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)

	res, err = m.Roll(2, 6, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 2}, res.Rolls)
	assert.Equal(t, 7, res.Total)
	assert.Equal(t, 0, m.Remaining())

	_, err = m.Roll(1, 6, 0)
	assert.Error(t, err, "exhausted roller should error")
}

func TestMockRollerRejectsOutOfRangeScript(t *testing.T) {
	m := NewMockRoller()
	m.SetRolls([]int{7})
	_, err := m.Roll(1, 6, 0)
	assert.Error(t, err)
}
