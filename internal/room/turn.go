// internal/room/turn.go
package room

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/nbellerose/skirmish/internal/models"
)

// StartTurns transitions the room from idle to active: the turn pointer is
// set to the first player in join order. Calling it on an already started
// room returns the current active player unchanged.
func (reg *Registry) StartTurns(code string) (*models.Player, error) {
	r, err := reg.getRoom(code)
	if err != nil {
		return nil, err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return nil, ErrRoomNotFound
	}
	if r.Started {
		return r.activePlayer(), nil
	}
	if len(r.Players) == 0 {
		return nil, ErrPlayerNotFound
	}

	r.Started = true
	r.CurrentPlayerIndex = 0
	first := r.Players[0]
	r.fire(Event{Type: EventGameStarted})
	r.fire(Event{Type: EventTurnChanged, Player: first.Name})
	r.appendLog("start", fmt.Sprintf("game started, %s plays first", first.Name), first.Name)
	return first, nil
}

// EndTurn advances the turn pointer to the next player in join order,
// cyclically. This is the sole turn transition. An empty room is a no-op:
// it signals an inconsistent caller and is reported, not retried.
func (reg *Registry) EndTurn(code string) (*models.Player, error) {
	r, err := reg.getRoom(code)
	if err != nil {
		return nil, err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return nil, ErrRoomNotFound
	}
	if !r.Started {
		return nil, ErrGameNotStarted
	}
	if len(r.Players) == 0 {
		log.Warnf("EndTurn on empty room %s, nothing to advance", code)
		return nil, nil
	}
	return r.advanceTurnLocked(), nil
}

// ActivePlayer returns the player currently holding the turn.
func (reg *Registry) ActivePlayer(code string) (*models.Player, error) {
	r, err := reg.getRoom(code)
	if err != nil {
		return nil, err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return nil, ErrRoomNotFound
	}
	if !r.Started {
		return nil, ErrGameNotStarted
	}
	return r.activePlayer(), nil
}

// advanceTurnLocked moves the pointer to (i+1) mod n, emits the turn-changed
// notification and logs the transition. Assumes the lock is held.
func (r *Room) advanceTurnLocked() *models.Player {
	prev := r.Players[r.CurrentPlayerIndex]
	r.CurrentPlayerIndex = (r.CurrentPlayerIndex + 1) % len(r.Players)
	next := r.Players[r.CurrentPlayerIndex]

	r.fire(Event{Type: EventTurnChanged, Player: next.Name,
		Payload: map[string]interface{}{"previous": prev.Name}})
	r.appendLog("turn", fmt.Sprintf("%s ends their turn, %s is now playing", prev.Name, next.Name), prev.Name, next.Name)
	return next
}
