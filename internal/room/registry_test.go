// internal/room/registry_test.go
package room

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbellerose/skirmish/internal/auth"
	"github.com/nbellerose/skirmish/internal/dice"
	"github.com/nbellerose/skirmish/internal/models"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []Event
}

func (m *mockBroadcaster) record(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockBroadcaster) all() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *mockBroadcaster) ofType(t EventType) []Event {
	var out []Event
	for _, ev := range m.all() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// newTestRegistry wires a registry to a mock broadcaster so tests can assert
// on the exact event stream.
func newTestRegistry(roller dice.Roller) (*Registry, *mockBroadcaster) {
	mb := &mockBroadcaster{}
	reg := NewRegistry(roller)
	reg.OnEvent = mb.record
	return reg, mb
}

func joinPlayers(t *testing.T, reg *Registry, code string, names ...string) []*models.Player {
	t.Helper()
	out := make([]*models.Player, 0, len(names))
	for _, name := range names {
		p, err := reg.Join(code, models.NewPlayer(name), "")
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestJoinCreatesRoomAndAssignsAdmin(t *testing.T) {
	reg, mb := newTestRegistry(dice.NewSeededRoller(1))

	players := joinPlayers(t, reg, "1001", "Alice", "Bob")
	assert.True(t, players[0].Admin, "first joiner becomes admin")
	assert.False(t, players[1].Admin)
	assert.True(t, reg.Exists("1001"))

	snapshot, err := reg.ActivePlayers("1001")
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, "Alice", snapshot[0].Name)
	assert.Equal(t, "Bob", snapshot[1].Name)

	joins := mb.ofType(EventPlayerJoined)
	require.Len(t, joins, 2)
	assert.Equal(t, "1001", joins[0].Room)
}

func TestJoinSuffixesDuplicateNames(t *testing.T) {
	reg, _ := newTestRegistry(dice.NewSeededRoller(1))

	first, err := reg.Join("1002", models.NewPlayer("Alice"), "")
	require.NoError(t, err)
	second, err := reg.Join("1002", models.NewPlayer("Alice"), "")
	require.NoError(t, err)
	third, err := reg.Join("1002", models.NewPlayer("Alice"), "")
	require.NoError(t, err)

	assert.Equal(t, "Alice", first.Name)
	assert.Equal(t, "Alice-2", second.Name)
	assert.Equal(t, "Alice-3", third.Name)
}

func TestCreateRoomConflict(t *testing.T) {
	reg, _ := newTestRegistry(dice.NewSeededRoller(1))

	require.NoError(t, reg.CreateRoom("1003", ""))
	assert.ErrorIs(t, reg.CreateRoom("1003", ""), ErrRoomExists)
}

func TestLockedRoomRejectsNewJoins(t *testing.T) {
	reg, mb := newTestRegistry(dice.NewSeededRoller(1))
	joinPlayers(t, reg, "1004", "Alice")

	require.NoError(t, reg.Lock("1004"))
	_, err := reg.Join("1004", models.NewPlayer("Bob"), "")
	assert.ErrorIs(t, err, ErrRoomLocked)

	require.NoError(t, reg.Unlock("1004"))
	_, err = reg.Join("1004", models.NewPlayer("Bob"), "")
	assert.NoError(t, err)

	assert.Len(t, mb.ofType(EventRoomLocked), 1)
	assert.Len(t, mb.ofType(EventRoomUnlocked), 1)
}

func TestToggleLock(t *testing.T) {
	reg, _ := newTestRegistry(dice.NewSeededRoller(1))
	joinPlayers(t, reg, "1005", "Alice")

	locked, err := reg.ToggleLock("1005")
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = reg.ToggleLock("1005")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestReconnectReclaimsSeatInLockedRoom(t *testing.T) {
	reg, mb := newTestRegistry(dice.NewSeededRoller(1))
	joinPlayers(t, reg, "1006", "Alice", "Bob")

	_, err := reg.StartTurns("1006")
	require.NoError(t, err)

	// Bob's socket drops after the game started: the seat is kept.
	require.NoError(t, reg.Disconnect("1006", "Bob"))
	require.NoError(t, reg.Lock("1006"))

	rejoined, err := reg.Join("1006", models.NewPlayer("Bob"), "")
	require.NoError(t, err)
	assert.True(t, rejoined.Connected)

	snapshot, err := reg.ActivePlayers("1006")
	require.NoError(t, err)
	assert.Len(t, snapshot, 2, "reconnection reuses the seat instead of adding one")

	joins := mb.ofType(EventPlayerJoined)
	require.NotEmpty(t, joins)
	last := joins[len(joins)-1]
	assert.Equal(t, true, last.Payload["reconnect"])
}

func TestLeaveLastPlayerDestroysRoom(t *testing.T) {
	reg, mb := newTestRegistry(dice.NewSeededRoller(1))

	closedCh := make(chan ClosedRoom, 1)
	reg.OnRoomClosed = func(c ClosedRoom) { closedCh <- c }

	joinPlayers(t, reg, "1007", "Alice")
	require.NoError(t, reg.Leave("1007", "Alice"))

	assert.False(t, reg.Exists("1007"))
	assert.Len(t, mb.ofType(EventRoomClosed), 1)

	select {
	case closed := <-closedCh:
		assert.Equal(t, "1007", closed.Code)
		require.Len(t, closed.Players, 1)
		assert.Equal(t, "Alice", closed.Players[0].Name)
		assert.NotEmpty(t, closed.Log)
	case <-time.After(time.Second):
		t.Fatal("OnRoomClosed was not invoked")
	}
}

func TestLeaveKeepsJoinOrder(t *testing.T) {
	reg, _ := newTestRegistry(dice.NewSeededRoller(1))
	joinPlayers(t, reg, "1008", "Alice", "Bob", "Cara")

	require.NoError(t, reg.Leave("1008", "Bob"))

	snapshot, err := reg.ActivePlayers("1008")
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, "Alice", snapshot[0].Name)
	assert.Equal(t, "Cara", snapshot[1].Name)

	assert.ErrorIs(t, reg.Leave("1008", "Bob"), ErrPlayerNotFound)
}

func TestPassphraseProtectedRoom(t *testing.T) {
	reg, _ := newTestRegistry(dice.NewSeededRoller(1))

	hash, err := auth.HashPassphrase("sesame")
	require.NoError(t, err)
	require.NoError(t, reg.CreateRoom("1009", hash))

	_, err = reg.Join("1009", models.NewPlayer("Alice"), "wrong")
	assert.ErrorIs(t, err, ErrBadPassphrase)

	_, err = reg.Join("1009", models.NewPlayer("Alice"), "sesame")
	assert.NoError(t, err)
}

func TestVirtualPlayerBypassesPassphrase(t *testing.T) {
	reg, _ := newTestRegistry(dice.NewSeededRoller(1))

	hash, err := auth.HashPassphrase("sesame")
	require.NoError(t, err)
	require.NoError(t, reg.CreateRoom("1010", hash))

	bot := models.NewPlayer("Astra")
	bot.Virtual = true
	_, err = reg.Join("1010", bot, "")
	assert.NoError(t, err, "bots are added from inside the room")
}

func TestDisconnectBeforeStartIsLeave(t *testing.T) {
	reg, _ := newTestRegistry(dice.NewSeededRoller(1))
	joinPlayers(t, reg, "1011", "Alice", "Bob")

	require.NoError(t, reg.Disconnect("1011", "Bob"))

	snapshot, err := reg.ActivePlayers("1011")
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Alice", snapshot[0].Name)
}

func TestDisconnectDuringGameKeepsSeat(t *testing.T) {
	reg, _ := newTestRegistry(dice.NewSeededRoller(1))
	joinPlayers(t, reg, "1012", "Alice", "Bob", "Cara")

	_, err := reg.StartTurns("1012")
	require.NoError(t, err)

	require.NoError(t, reg.Disconnect("1012", "Alice"))

	snapshot, err := reg.ActivePlayers("1012")
	require.NoError(t, err)
	require.Len(t, snapshot, 3, "the seat survives the disconnect")
	assert.False(t, snapshot[0].Connected)

	active, err := reg.ActivePlayer("1012")
	require.NoError(t, err)
	assert.Equal(t, "Bob", active.Name, "turn advances past the disconnected holder")
}

func TestChatRelaysThroughEventStream(t *testing.T) {
	reg, mb := newTestRegistry(dice.NewSeededRoller(1))
	joinPlayers(t, reg, "1013", "Alice")

	require.NoError(t, reg.Chat("1013", "Alice", "good luck"))
	assert.ErrorIs(t, reg.Chat("1013", "Mallory", "hi"), ErrPlayerNotFound)

	chats := mb.ofType(EventChat)
	require.Len(t, chats, 1)
	assert.Equal(t, "Alice", chats[0].Player)
	assert.Equal(t, "good luck", chats[0].Payload["message"])
}

func TestGameLogRecordsOrderedEntries(t *testing.T) {
	reg, _ := newTestRegistry(dice.NewSeededRoller(1))
	joinPlayers(t, reg, "1014", "Alice", "Bob")

	_, err := reg.StartTurns("1014")
	require.NoError(t, err)
	_, err = reg.EndTurn("1014")
	require.NoError(t, err)

	entries, err := reg.GameLog("1014")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Index, "log indices are contiguous from 1")
		assert.False(t, entry.Timestamp.IsZero())
	}
}

func TestOperationsOnUnknownRoom(t *testing.T) {
	reg, _ := newTestRegistry(dice.NewSeededRoller(1))

	_, err := reg.ActivePlayers("nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.ErrorIs(t, reg.Leave("nope", "Alice"), ErrRoomNotFound)
	assert.ErrorIs(t, reg.Lock("nope"), ErrRoomNotFound)
	_, err = reg.StartTurns("nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
