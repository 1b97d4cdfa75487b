// internal/models/player.go
package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Die identifies one of the game's dice by its number of sides.
type Die int

const (
	D4 Die = 4
	D6 Die = 6
)

// BotProfile selects the decision policy of a virtual player.
type BotProfile string

const (
	ProfileAggressive BotProfile = "aggressive"
	ProfileDefensive  BotProfile = "defensive"
)

// Position is a tile coordinate on the board.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Player is a participant in a single room. A Player belongs to exactly one
// room; it is never shared across rooms. Name is the room-unique display name
// (collisions are resolved at join time by suffixing).
type Player struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Position Position  `json:"position"`
	Life     int       `json:"life"`
	Speed    int       `json:"speed"`

	AttackDie  Die `json:"attackDie"`
	DefenseDie Die `json:"defenseDie"`

	Admin   bool       `json:"admin"`
	Virtual bool       `json:"virtual"`
	Profile BotProfile `json:"profile,omitempty"`

	Inventory []string `json:"inventory"`

	Connected bool            `json:"connected"`
	Conn      *websocket.Conn `json:"-"`
}

// NewPlayer builds a human player with baseline stats. The display name may
// still be adjusted by the room registry on join.
func NewPlayer(name string) *Player {
	id, _ := uuid.NewRandom()
	return &Player{
		ID:         id,
		Name:       name,
		Life:       4,
		Speed:      4,
		AttackDie:  D6,
		DefenseDie: D4,
		Inventory:  []string{},
		Connected:  true,
	}
}

// AdjacentTo reports whether two players occupy orthogonally adjacent tiles.
func (p *Player) AdjacentTo(other *Player) bool {
	dx := p.Position.X - other.Position.X
	dy := p.Position.Y - other.Position.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx+dy == 1
}
