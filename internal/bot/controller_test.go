// internal/bot/controller_test.go
package bot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbellerose/skirmish/internal/auth"
	"github.com/nbellerose/skirmish/internal/dice"
	"github.com/nbellerose/skirmish/internal/models"
	"github.com/nbellerose/skirmish/internal/room"
)

// eventSink collects room events for assertions.
type eventSink struct {
	mu     sync.Mutex
	events []room.Event
}

func (s *eventSink) record(ev room.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *eventSink) count(t room.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func newBotTestRegistry(roller dice.Roller) (*room.Registry, *eventSink) {
	sink := &eventSink{}
	reg := room.NewRegistry(roller)
	reg.OnEvent = sink.record
	return reg, sink
}

func TestAddVirtualPlayerProfiles(t *testing.T) {
	reg, _ := newBotTestRegistry(dice.NewMockRoller())
	c := NewController(reg)

	_, err := reg.Join("5001", models.NewPlayer("Alice"), "")
	require.NoError(t, err)

	attacker, err := c.AddVirtualPlayer("5001", models.ProfileAggressive)
	require.NoError(t, err)
	assert.Equal(t, "Astra", attacker.Name)
	assert.True(t, attacker.Virtual)
	assert.Equal(t, models.D6, attacker.AttackDie)
	assert.Equal(t, models.D4, attacker.DefenseDie)
	assert.Equal(t, 6, attacker.Speed)

	tank, err := c.AddVirtualPlayer("5001", models.ProfileDefensive)
	require.NoError(t, err)
	assert.Equal(t, "Borin", tank.Name, "the next free pool name is used")
	assert.Equal(t, models.D4, tank.AttackDie)
	assert.Equal(t, models.D6, tank.DefenseDie)
	assert.Equal(t, 6, tank.Life)

	_, err = c.AddVirtualPlayer("5001", models.BotProfile("berserk"))
	assert.Error(t, err, "unknown profiles are rejected before joining")
}

func TestAddVirtualPlayerJoinsPassphraseRoom(t *testing.T) {
	reg, _ := newBotTestRegistry(dice.NewMockRoller())
	c := NewController(reg)

	hash, err := auth.HashPassphrase("sesame")
	require.NoError(t, err)
	require.NoError(t, reg.CreateRoom("5002", hash))

	_, err = c.AddVirtualPlayer("5002", models.ProfileAggressive)
	assert.NoError(t, err)
}

func TestRemoveVirtualPlayer(t *testing.T) {
	reg, _ := newBotTestRegistry(dice.NewMockRoller())
	c := NewController(reg)

	_, err := reg.Join("5003", models.NewPlayer("Alice"), "")
	require.NoError(t, err)
	_, err = c.AddVirtualPlayer("5003", models.ProfileAggressive)
	require.NoError(t, err)

	assert.Error(t, c.RemoveVirtualPlayer("5003", "Alice"), "humans cannot be removed through the bot path")
	assert.ErrorIs(t, c.RemoveVirtualPlayer("5003", "Nobody"), room.ErrPlayerNotFound)

	require.NoError(t, c.RemoveVirtualPlayer("5003", "Astra"))
	players, err := reg.ActivePlayers("5003")
	require.NoError(t, err)
	assert.Len(t, players, 1)
}

func TestPlayTurnFightsAdjacentOpponent(t *testing.T) {
	roller := dice.NewMockRoller()
	reg, sink := newBotTestRegistry(roller)
	c := NewController(reg)

	alice, err := reg.Join("5004", models.NewPlayer("Alice"), "")
	require.NoError(t, err)
	astra, err := c.AddVirtualPlayer("5004", models.ProfileAggressive)
	require.NoError(t, err)
	astra.Position = models.Position{X: 1, Y: 0}

	_, err = reg.StartTurns("5004")
	require.NoError(t, err)

	// Four winning exchanges grind Alice's 4 life down to zero.
	roller.SetRolls([]int{6, 1, 6, 1, 6, 1, 6, 1})
	require.NoError(t, c.PlayTurn("5004", "Astra"))

	assert.Equal(t, 0, alice.Life)
	assert.Equal(t, 1, sink.count(room.EventCombatStarted))
	assert.Equal(t, 1, sink.count(room.EventCombatEnded))
	assert.Equal(t, 0, roller.Remaining(), "the bot keeps attacking until the session ends")
}

func TestPlayTurnPassesWithoutFavoredTarget(t *testing.T) {
	reg, sink := newBotTestRegistry(dice.NewMockRoller())
	c := NewController(reg)

	_, err := reg.Join("5005", models.NewPlayer("Alice"), "")
	require.NoError(t, err)
	borin, err := c.AddVirtualPlayer("5005", models.ProfileDefensive)
	require.NoError(t, err)
	borin.Position = models.Position{X: 1, Y: 0}

	_, err = reg.StartTurns("5005")
	require.NoError(t, err)

	// D4 attack against a D4 defense is an even matchup; the bot passes.
	require.NoError(t, c.PlayTurn("5005", "Borin"))

	assert.Equal(t, 0, sink.count(room.EventCombatStarted))
	assert.Equal(t, 2, sink.count(room.EventTurnChanged), "the turn still ends")
}

func TestPlayTurnRejectsHumans(t *testing.T) {
	reg, _ := newBotTestRegistry(dice.NewMockRoller())
	c := NewController(reg)

	_, err := reg.Join("5006", models.NewPlayer("Alice"), "")
	require.NoError(t, err)
	_, err = reg.StartTurns("5006")
	require.NoError(t, err)

	assert.Error(t, c.PlayTurn("5006", "Alice"))
	assert.ErrorIs(t, c.PlayTurn("5006", "Nobody"), room.ErrPlayerNotFound)
}
