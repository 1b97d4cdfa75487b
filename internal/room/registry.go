// internal/room/registry.go
package room

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/nbellerose/skirmish/internal/auth"
	"github.com/nbellerose/skirmish/internal/dice"
	"github.com/nbellerose/skirmish/internal/models"
)

// ClosedRoom is the final snapshot of a room handed to OnRoomClosed when the
// last player leaves or the room is torn down.
type ClosedRoom struct {
	Code    string
	Started bool
	Players []*models.Player
	Log     []LogEntry
}

// RoomInfo is a read-only summary used for listings.
type RoomInfo struct {
	Code        string `json:"code"`
	PlayerCount int    `json:"playerCount"`
	Locked      bool   `json:"locked"`
	Started     bool   `json:"started"`
	Protected   bool   `json:"protected"`
}

// Registry owns the mapping from room code to room state. All access goes
// through its methods; the map is never exposed. Room codes are opaque
// identifiers generated by the gateway.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	roller dice.Roller

	// OnEvent, when set, becomes the BroadcastFn of every room created
	// afterwards. The gateway wires it once at startup.
	OnEvent func(ev Event)

	// OnRoomClosed, when set, receives the final snapshot of a destroyed
	// room (for match persistence). Invoked outside the room lock.
	OnRoomClosed func(closed ClosedRoom)
}

// NewRegistry returns an empty registry. The roller is shared by all combat
// resolution in all rooms.
func NewRegistry(roller dice.Roller) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		roller: roller,
	}
}

func (reg *Registry) getRoom(code string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func (reg *Registry) newRoom(code, passphraseHash string) *Room {
	r := &Room{
		Code:           code,
		PassphraseHash: passphraseHash,
		BroadcastFn:    reg.OnEvent,
	}
	reg.rooms[code] = r
	return r
}

// CreateRoom reserves an empty room under the given code, optionally guarded
// by a passphrase hash. Fails with ErrRoomExists if the code is taken.
func (reg *Registry) CreateRoom(code, passphraseHash string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.rooms[code]; ok {
		return ErrRoomExists
	}
	reg.newRoom(code, passphraseHash)
	log.Infof("room %s created", code)
	return nil
}

// Exists reports whether a room code is currently in use.
func (reg *Registry) Exists(code string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	_, ok := reg.rooms[code]
	return ok
}

// List returns a summary of every live room.
func (reg *Registry) List() []RoomInfo {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.Unlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		r.Mu.Lock()
		if !r.closed {
			infos = append(infos, RoomInfo{
				Code:        r.Code,
				PlayerCount: len(r.Players),
				Locked:      r.Locked,
				Started:     r.Started,
				Protected:   r.PassphraseHash != "",
			})
		}
		r.Mu.Unlock()
	}
	return infos
}

// Join adds a player to the room, creating the room if it does not exist yet.
// The display name is made room-unique by suffixing. A locked room admits
// only reconnecting members: a player whose name matches a disconnected seat
// reclaims it regardless of the lock flag.
func (reg *Registry) Join(code string, p *models.Player, passphrase string) (*models.Player, error) {
	reg.mu.Lock()
	r, ok := reg.rooms[code]
	if !ok {
		r = reg.newRoom(code, "")
		log.Infof("room %s created on first join", code)
	}
	reg.mu.Unlock()

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return nil, ErrRoomNotFound
	}

	// Virtual players are added from inside the room; the passphrase only
	// guards outside joins.
	if r.PassphraseHash != "" && !p.Virtual {
		match, err := auth.VerifyPassphrase(passphrase, r.PassphraseHash)
		if err != nil || !match {
			return nil, ErrBadPassphrase
		}
	}

	// Reconnection: the same name on a disconnected seat reclaims it, even
	// when the room is locked.
	if existing := r.playerByName(p.Name); existing != nil && !existing.Connected {
		existing.Connected = true
		existing.Conn = p.Conn
		r.fire(Event{Type: EventPlayerJoined, Player: existing.Name,
			Payload: map[string]interface{}{"reconnect": true}})
		r.appendLog("join", fmt.Sprintf("%s reconnected", existing.Name), existing.Name)
		return existing, nil
	}

	if r.Locked {
		return nil, ErrRoomLocked
	}

	p.Name = r.uniqueName(p.Name)
	if len(r.Players) == 0 {
		p.Admin = true
	}
	r.Players = append(r.Players, p)
	r.fire(Event{Type: EventPlayerJoined, Player: p.Name})
	r.appendLog("join", fmt.Sprintf("%s joined the room", p.Name), p.Name)
	log.Infof("player %s joined room %s (%d players)", p.Name, code, len(r.Players))
	return p, nil
}

// Leave removes a player from the room. If the player holds the turn, the
// pointer advances to the next remaining player in the original join order
// before removal takes effect. If a combat involves the player, the opponent
// wins by forfeit. The room is destroyed when its last player leaves.
func (reg *Registry) Leave(code, name string) error {
	r, err := reg.getRoom(code)
	if err != nil {
		return err
	}

	r.Mu.Lock()
	if r.closed {
		r.Mu.Unlock()
		return ErrRoomNotFound
	}

	idx := -1
	for i, p := range r.Players {
		if p.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		r.Mu.Unlock()
		return ErrPlayerNotFound
	}

	// A player abandoning mid-combat forfeits the exchange.
	if r.Combat != nil && r.Combat.Active {
		if r.Combat.Attacker == name {
			r.endCombatLocked(r.Combat.Defender, name, "forfeit")
		} else if r.Combat.Defender == name {
			r.endCombatLocked(r.Combat.Attacker, name, "forfeit")
		}
	}

	heldTurn := r.Started && idx == r.CurrentPlayerIndex
	finalPlayers := append([]*models.Player(nil), r.Players...)

	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	r.fire(Event{Type: EventPlayerLeft, Player: name})
	r.appendLog("leave", fmt.Sprintf("%s left the room", name), name)

	if len(r.Players) == 0 {
		r.closed = true
		r.fire(Event{Type: EventRoomClosed})
		snapshot := ClosedRoom{
			Code:    r.Code,
			Started: r.Started,
			Players: finalPlayers,
			Log:     append([]LogEntry(nil), r.logEntries...),
		}
		r.Mu.Unlock()

		reg.mu.Lock()
		if reg.rooms[code] == r {
			delete(reg.rooms, code)
		}
		reg.mu.Unlock()

		log.Infof("room %s destroyed (last player left)", code)
		if reg.OnRoomClosed != nil {
			go reg.OnRoomClosed(snapshot)
		}
		return nil
	}

	if heldTurn {
		// The seat that shifted into idx is the next player in original
		// order; wrap when the leaver was last.
		r.CurrentPlayerIndex = idx % len(r.Players)
		next := r.Players[r.CurrentPlayerIndex]
		r.fire(Event{Type: EventTurnChanged, Player: next.Name,
			Payload: map[string]interface{}{"previous": name}})
		r.appendLog("turn", fmt.Sprintf("%s left during their turn; %s is now playing", name, next.Name), name, next.Name)
	} else if r.Started && idx < r.CurrentPlayerIndex {
		r.CurrentPlayerIndex--
	}

	r.Mu.Unlock()
	return nil
}

// Disconnect marks a player's socket as gone without giving up the seat. In
// a room whose game has started the seat is kept for reconnection and the
// turn advances past the player if they held it; before the game starts a
// disconnect is a plain leave.
func (reg *Registry) Disconnect(code, name string) error {
	r, err := reg.getRoom(code)
	if err != nil {
		return err
	}

	r.Mu.Lock()
	if r.closed {
		r.Mu.Unlock()
		return ErrRoomNotFound
	}
	p := r.playerByName(name)
	if p == nil {
		r.Mu.Unlock()
		return ErrPlayerNotFound
	}
	if !r.Started {
		r.Mu.Unlock()
		return reg.Leave(code, name)
	}

	p.Connected = false
	p.Conn = nil
	r.appendLog("leave", fmt.Sprintf("%s disconnected", name), name)
	if r.activePlayer() == p && len(r.Players) > 1 {
		r.advanceTurnLocked()
	}
	r.Mu.Unlock()
	return nil
}

// ActivePlayers returns a snapshot of a room's players in join order.
func (reg *Registry) ActivePlayers(code string) ([]*models.Player, error) {
	r, err := reg.getRoom(code)
	if err != nil {
		return nil, err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return nil, ErrRoomNotFound
	}
	snapshot := make([]*models.Player, len(r.Players))
	copy(snapshot, r.Players)
	return snapshot, nil
}

// Lock closes the room to new joins. Existing members and turn order are
// unaffected.
func (reg *Registry) Lock(code string) error {
	return reg.setLocked(code, true)
}

// Unlock reopens the room to new joins.
func (reg *Registry) Unlock(code string) error {
	return reg.setLocked(code, false)
}

// ToggleLock flips the room's lock flag and returns the new state.
func (reg *Registry) ToggleLock(code string) (bool, error) {
	r, err := reg.getRoom(code)
	if err != nil {
		return false, err
	}
	r.Mu.Lock()
	locked := r.Locked
	r.Mu.Unlock()
	if err := reg.setLocked(code, !locked); err != nil {
		return locked, err
	}
	return !locked, nil
}

func (reg *Registry) setLocked(code string, locked bool) error {
	r, err := reg.getRoom(code)
	if err != nil {
		return err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if r.Locked == locked {
		return nil
	}
	r.Locked = locked
	if locked {
		r.fire(Event{Type: EventRoomLocked})
		r.appendLog("lock", "room locked")
	} else {
		r.fire(Event{Type: EventRoomUnlocked})
		r.appendLog("lock", "room unlocked")
	}
	return nil
}

// Chat relays a chat message through the room's event stream so observers see
// it ordered with game events.
func (reg *Registry) Chat(code, name, message string) error {
	r, err := reg.getRoom(code)
	if err != nil {
		return err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if r.playerByName(name) == nil {
		return ErrPlayerNotFound
	}
	r.fire(Event{Type: EventChat, Player: name,
		Payload: map[string]interface{}{"message": message}})
	return nil
}
