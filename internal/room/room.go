// internal/room/room.go
package room

import (
	"fmt"
	"sync"

	"github.com/nbellerose/skirmish/internal/models"
)

// Room holds the entire coordination state for one multiplayer session: the
// ordered player list (join order is turn order), the turn pointer, the lock
// flag and the active combat session, if any. Every mutating operation on a
// room is serialized through Mu; rooms are independent of each other.
type Room struct {
	Code string

	// Players in insertion order. Turn order is strictly this order and is
	// never re-sorted by any other attribute.
	Players []*models.Player

	Locked  bool
	Started bool

	// CurrentPlayerIndex points into Players at the active player. Only
	// meaningful while Started is true.
	CurrentPlayerIndex int

	Combat *CombatSession

	// PassphraseHash is the Argon2id hash of the room passphrase, empty for
	// open rooms.
	PassphraseHash string

	Mu sync.Mutex

	// BroadcastFn relays an event to every socket in the room. Set by the
	// gateway; nil in tests that inspect state directly.
	BroadcastFn func(ev Event)

	closed     bool
	logEntries []LogEntry
	logIndex   int
}

// fire emits an event through the injected broadcast function. Events are
// fired under the room lock, so observers see them in emission order.
// Assumes the lock is held.
func (r *Room) fire(ev Event) {
	ev.Room = r.Code
	if r.BroadcastFn != nil {
		r.BroadcastFn(ev)
	}
}

// playerByName returns the player with the exact display name, or nil.
// Assumes the lock is held.
func (r *Room) playerByName(name string) *models.Player {
	for _, p := range r.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// uniqueName resolves display-name collisions by suffixing "-2", "-3", ...
// until the name is free. Assumes the lock is held.
func (r *Room) uniqueName(base string) string {
	name := base
	for i := 2; r.playerByName(name) != nil; i++ {
		name = fmt.Sprintf("%s-%d", base, i)
	}
	return name
}

// activePlayer returns the player holding the turn, or nil when the game has
// not started or the room is empty. Assumes the lock is held.
func (r *Room) activePlayer() *models.Player {
	if !r.Started || len(r.Players) == 0 {
		return nil
	}
	return r.Players[r.CurrentPlayerIndex]
}
