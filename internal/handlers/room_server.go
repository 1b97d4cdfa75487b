// internal/handlers/room_server.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nbellerose/skirmish/internal/bot"
	"github.com/nbellerose/skirmish/internal/database"
	"github.com/nbellerose/skirmish/internal/dice"
	"github.com/nbellerose/skirmish/internal/room"
)

// RoomServer is the gateway's root object: it owns the room registry, the
// virtual player controller and the socket fan-out for every room.
type RoomServer struct {
	Registry *room.Registry
	Bots     *bot.Controller
	Logger   *logrus.Logger

	mu    sync.Mutex
	rooms map[string]*roomConns
}

// roomConns tracks the live sockets of one room plus its ordered event queue.
type roomConns struct {
	events  chan room.Event
	members map[string]*memberConn
}

// memberConn is one player's outbound message channel, drained by that
// connection's write pump.
type memberConn struct {
	name string
	out  chan []byte
}

// NewRoomServer wires a registry, a production dice roller and the bot
// controller together and subscribes to the registry's event stream.
func NewRoomServer(logger *logrus.Logger) *RoomServer {
	return NewRoomServerWithRoller(logger, dice.NewRandomRoller())
}

// NewRoomServerWithRoller is NewRoomServer with an injected roller, used by
// tests that need deterministic combat.
func NewRoomServerWithRoller(logger *logrus.Logger, roller dice.Roller) *RoomServer {
	registry := room.NewRegistry(roller)
	rs := &RoomServer{
		Registry: registry,
		Bots:     bot.NewController(registry),
		Logger:   logger,
		rooms:    make(map[string]*roomConns),
	}
	registry.OnEvent = rs.enqueueEvent
	registry.OnRoomClosed = rs.persistMatch
	return rs
}

// enqueueEvent is the registry's BroadcastFn. It is called under the room
// lock, so it must never block: events go onto a buffered per-room queue
// drained by a single goroutine, which preserves FIFO order per room.
func (rs *RoomServer) enqueueEvent(ev room.Event) {
	rc := rs.roomConns(ev.Room)
	select {
	case rc.events <- ev:
	default:
		rs.Logger.Warnf("event queue full for room %s, dropping %s", ev.Room, ev.Type)
	}
}

// roomConns returns (creating if needed) the fan-out state for a room and
// starts its dispatch goroutine on first use.
func (rs *RoomServer) roomConns(code string) *roomConns {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rc, ok := rs.rooms[code]
	if !ok {
		rc = &roomConns{
			events:  make(chan room.Event, 256),
			members: make(map[string]*memberConn),
		}
		rs.rooms[code] = rc
		go rs.dispatchLoop(code, rc)
	}
	return rc
}

// dispatchLoop relays a room's events to every connected socket in emission
// order and drives virtual players when a turn-changed event names one.
func (rs *RoomServer) dispatchLoop(code string, rc *roomConns) {
	for ev := range rc.events {
		data, err := json.Marshal(ev)
		if err != nil {
			rs.Logger.Errorf("failed to marshal event %s for room %s: %v", ev.Type, code, err)
			continue
		}

		rs.mu.Lock()
		members := make([]*memberConn, 0, len(rc.members))
		for _, m := range rc.members {
			members = append(members, m)
		}
		rs.mu.Unlock()

		for _, m := range members {
			select {
			case m.out <- data:
			default:
				rs.Logger.Warnf("outbound buffer full for player %s in room %s, dropping %s", m.name, code, ev.Type)
			}
		}

		switch ev.Type {
		case room.EventTurnChanged:
			rs.maybePlayBotTurn(code, ev.Player)
		case room.EventRoomClosed:
			rs.mu.Lock()
			delete(rs.rooms, code)
			rs.mu.Unlock()
			return
		}
	}
}

// maybePlayBotTurn runs one bot turn synchronously inside the dispatch loop
// so a bot's own events stay ordered after the turn-changed that triggered it.
func (rs *RoomServer) maybePlayBotTurn(code, playerName string) {
	players, err := rs.Registry.ActivePlayers(code)
	if err != nil {
		return
	}
	for _, p := range players {
		if p.Name == playerName && p.Virtual {
			if err := rs.Bots.PlayTurn(code, playerName); err != nil {
				rs.Logger.Warnf("bot %s turn failed in room %s: %v", playerName, code, err)
			}
			return
		}
	}
}

// addMember registers a socket's outbound channel for room broadcasts.
func (rs *RoomServer) addMember(code, name string, out chan []byte) {
	rc := rs.roomConns(code)
	rs.mu.Lock()
	rc.members[name] = &memberConn{name: name, out: out}
	rs.mu.Unlock()
}

// removeMember drops a socket from the fan-out. The registry seat is handled
// separately (Disconnect/Leave).
func (rs *RoomServer) removeMember(code, name string) {
	rs.mu.Lock()
	if rc, ok := rs.rooms[code]; ok {
		delete(rc.members, name)
	}
	rs.mu.Unlock()
}

// persistMatch stores the final snapshot of a started room. Fire-and-forget:
// persistence must never hold up room teardown.
func (rs *RoomServer) persistMatch(closed room.ClosedRoom) {
	if !closed.Started {
		return
	}
	if database.DB == nil {
		rs.Logger.Debugf("database not connected, skipping match record for room %s", closed.Code)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.RecordMatch(ctx, closed); err != nil {
		rs.Logger.Errorf("failed to record match for room %s: %v", closed.Code, err)
	}
}
