// internal/room/errors.go
package room

import "errors"

// Sentinel errors returned by the registry. All of them are recoverable: the
// gateway translates them into an error message on the offending socket and
// room state is never mutated when one is returned.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomExists       = errors.New("room already exists")
	ErrRoomLocked       = errors.New("room is locked")
	ErrPlayerNotFound   = errors.New("player not found in room")
	ErrCombatActive     = errors.New("a combat is already active in this room")
	ErrNoActiveCombat   = errors.New("no active combat in this room")
	ErrNotYourTurn      = errors.New("action attempted out of turn")
	ErrGameNotStarted   = errors.New("game has not started")
	ErrEvasionExhausted = errors.New("no evasion attempts left")
	ErrBadPassphrase    = errors.New("wrong room passphrase")
)
