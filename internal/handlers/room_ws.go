// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/nbellerose/skirmish/internal/middleware"
	"github.com/nbellerose/skirmish/internal/models"
	"github.com/nbellerose/skirmish/internal/room"
)

// RoomMessage is the structure of every inbound WebSocket message. The Type
// field selects the action; the remaining fields are action-specific.
type RoomMessage struct {
	Type string `json:"type"`

	// Name is the joining player's display name (join) or the target bot
	// name (remove_virtual_player).
	Name       string `json:"name,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`

	// Target is the defender's name for start_combat.
	Target string `json:"target,omitempty"`

	// Profile selects the bot policy for add_virtual_player.
	Profile string `json:"profile,omitempty"`

	// Message is the chat text.
	Message string `json:"message,omitempty"`

	// Bonuses applied to the attack exchange (terrain, items).
	AttackerBonus int `json:"attackerBonus,omitempty"`
	DefenderBonus int `json:"defenderBonus,omitempty"`
}

// RoomWSHandler upgrades the connection for a room at /room/ws/{code}. The
// first message must be a join; afterwards the socket drives the room through
// the registry until it leaves or drops.
func RoomWSHandler(logger *logrus.Logger, rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/room/ws/"), "/")
		if code == "" {
			http.Error(w, "missing room code in path (/room/ws/{code})", http.StatusBadRequest)
			return
		}

		// Mint the guest cookie before the upgrade so it rides the
		// handshake response.
		guestID, err := EnsureGuest(w, r)
		if err != nil {
			http.Error(w, "failed to establish session", http.StatusInternalServerError)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"skirmish"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("websocket accept error for room %s: %v", code, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "skirmish" {
			c.Close(BadSubprotocolError, "client must speak the skirmish subprotocol")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// The first message must be a join carrying the display name.
		joinMsg, err := readMessage(ctx, c, 60*time.Second)
		if err != nil || joinMsg.Type != "join" || joinMsg.Name == "" {
			c.Close(websocket.StatusPolicyViolation, "expected a join message with a name")
			return
		}

		p := models.NewPlayer(joinMsg.Name)
		p.Conn = c
		joined, err := rs.Registry.Join(code, p, joinMsg.Passphrase)
		if err != nil {
			sendWsError(c, err.Error())
			c.Close(InvalidRoomCodeError, err.Error())
			return
		}
		logger.Infof("guest %s joined room %s as %s", guestID, code, joined.Name)

		out := make(chan []byte, 32)
		rs.addMember(code, joined.Name, out)
		go writePump(ctx, c, out, logger)

		players, _ := rs.Registry.ActivePlayers(code)
		sendWsMessage(c, map[string]interface{}{
			"type":    "joined",
			"room":    code,
			"player":  joined,
			"players": players,
		})

		readErr := readRoomMessages(ctx, c, rs, code, joined.Name, logger)

		rs.removeMember(code, joined.Name)
		if err := rs.Registry.Disconnect(code, joined.Name); err != nil && err != room.ErrRoomNotFound && err != room.ErrPlayerNotFound {
			logger.Warnf("disconnect cleanup failed for %s in room %s: %v", joined.Name, code, err)
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
	}
}

// readRoomMessages is the connection's read loop. It returns the terminal
// read error (nil for a normal closure).
func readRoomMessages(ctx context.Context, c *websocket.Conn, rs *RoomServer, code, name string, logger *logrus.Logger) error {
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			return err
		}

		var msg RoomMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("invalid JSON from %s in room %s: %v", name, code, err)
			sendWsError(c, "invalid JSON format")
			continue
		}

		if !handleRoomMessage(rs, c, code, name, msg, logger) {
			return nil
		}
	}
}

// handleRoomMessage routes one inbound action. Returns false when the
// connection should stop reading (the player left).
func handleRoomMessage(rs *RoomServer, c *websocket.Conn, code, name string, msg RoomMessage, logger *logrus.Logger) bool {
	reg := rs.Registry

	switch msg.Type {
	case "leave":
		if err := reg.Leave(code, name); err != nil {
			sendWsError(c, err.Error())
			return true
		}
		c.Close(websocket.StatusNormalClosure, "left the room")
		return false

	case "toggle_lock":
		if !isAdmin(reg, code, name) {
			sendWsError(c, "only the room admin can toggle the lock")
			return true
		}
		if _, err := reg.ToggleLock(code); err != nil {
			sendWsError(c, err.Error())
		}

	case "start_game":
		if !isAdmin(reg, code, name) {
			sendWsError(c, "only the room admin can start the game")
			return true
		}
		if _, err := reg.StartTurns(code); err != nil {
			sendWsError(c, err.Error())
		}

	case "end_turn":
		if err := requireTurn(reg, code, name); err != nil {
			sendWsError(c, err.Error())
			return true
		}
		if _, err := reg.EndTurn(code); err != nil {
			sendWsError(c, err.Error())
		}

	case "start_combat":
		if err := requireTurn(reg, code, name); err != nil {
			sendWsError(c, err.Error())
			return true
		}
		if err := requireAdjacent(reg, code, name, msg.Target); err != nil {
			sendWsError(c, err.Error())
			return true
		}
		if _, err := reg.StartCombat(code, name, msg.Target); err != nil {
			sendWsError(c, err.Error())
		}

	case "attack":
		session, err := reg.ActiveCombat(code)
		if err != nil {
			sendWsError(c, err.Error())
			return true
		}
		if session.Attacker != name && session.Defender != name {
			sendWsError(c, "you are not part of this combat")
			return true
		}
		if _, err := reg.Attack(code, msg.AttackerBonus, msg.DefenderBonus); err != nil {
			sendWsError(c, err.Error())
		}

	case "attempt_evasion":
		session, err := reg.ActiveCombat(code)
		if err != nil {
			sendWsError(c, err.Error())
			return true
		}
		if session.Defender != name {
			sendWsError(c, "only the defender can attempt to escape")
			return true
		}
		if _, err := reg.AttemptEvasion(code); err != nil {
			sendWsError(c, err.Error())
		}

	case "add_virtual_player":
		if !isAdmin(reg, code, name) {
			sendWsError(c, "only the room admin can add virtual players")
			return true
		}
		if _, err := rs.Bots.AddVirtualPlayer(code, models.BotProfile(msg.Profile)); err != nil {
			sendWsError(c, err.Error())
		}

	case "remove_virtual_player":
		if !isAdmin(reg, code, name) {
			sendWsError(c, "only the room admin can remove virtual players")
			return true
		}
		if err := rs.Bots.RemoveVirtualPlayer(code, msg.Name); err != nil {
			sendWsError(c, err.Error())
		}

	case "chat":
		if msg.Message != "" {
			if err := reg.Chat(code, name, msg.Message); err != nil {
				sendWsError(c, err.Error())
			}
		}

	case "ping":
		sendWsMessage(c, map[string]string{"type": "pong"})

	default:
		logger.Warnf("unknown action type %q from %s in room %s", msg.Type, name, code)
		sendWsError(c, fmt.Sprintf("unknown action type: %s", msg.Type))
	}
	return true
}

// isAdmin reports whether the player holds the room's admin flag.
func isAdmin(reg *room.Registry, code, name string) bool {
	players, err := reg.ActivePlayers(code)
	if err != nil {
		return false
	}
	for _, p := range players {
		if p.Name == name {
			return p.Admin
		}
	}
	return false
}

// requireTurn enforces turn-gating: the acting player must hold the turn.
func requireTurn(reg *room.Registry, code, name string) error {
	active, err := reg.ActivePlayer(code)
	if err != nil {
		return err
	}
	if active == nil || active.Name != name {
		return room.ErrNotYourTurn
	}
	return nil
}

// requireAdjacent checks that attacker and target occupy adjacent tiles.
func requireAdjacent(reg *room.Registry, code, attacker, target string) error {
	players, err := reg.ActivePlayers(code)
	if err != nil {
		return err
	}
	var att, def *models.Player
	for _, p := range players {
		switch p.Name {
		case attacker:
			att = p
		case target:
			def = p
		}
	}
	if att == nil || def == nil {
		return room.ErrPlayerNotFound
	}
	if !att.AdjacentTo(def) {
		return fmt.Errorf("%s is not adjacent to %s", target, attacker)
	}
	return nil
}

// readMessage reads a single message with its own deadline.
func readMessage(ctx context.Context, c *websocket.Conn, timeout time.Duration) (*RoomMessage, error) {
	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, data, err := c.Read(readCtx)
	if err != nil {
		return nil, err
	}
	var msg RoomMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// writePump drains a member's outbound buffer onto the socket and keeps the
// connection alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, out chan []byte, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-out:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("websocket write failed: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("websocket ping failed, assuming disconnect: %v", err)
				return
			}
		}
	}
}

// sendWsMessage marshals and writes one message with a write timeout.
func sendWsMessage(c *websocket.Conn, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.Write(ctx, websocket.MessageText, data)
}

// sendWsError sends a structured error message to the client.
func sendWsError(c *websocket.Conn, errorMsg string) {
	sendWsMessage(c, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}
