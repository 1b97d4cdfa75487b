// internal/room/events.go
package room

// EventType is an enum-like type for broadcasting room events.
type EventType string

const (
	EventPlayerJoined   EventType = "player_joined"
	EventPlayerLeft     EventType = "player_left"
	EventRoomLocked     EventType = "room_locked"
	EventRoomUnlocked   EventType = "room_unlocked"
	EventRoomClosed     EventType = "room_closed"
	EventGameStarted    EventType = "game_started"
	EventTurnChanged    EventType = "turn_changed"
	EventCombatStarted  EventType = "combat_started"
	EventCombatResult   EventType = "combat_result"
	EventEvasionAttempt EventType = "evasion_attempt"
	EventCombatEnded    EventType = "combat_ended"
	EventChat           EventType = "chat"
)

// Event is the single outbound value type of the core. The gateway subscribes
// to a room's events and relays them verbatim to every socket in the room, in
// the exact order they were emitted.
type Event struct {
	Type   EventType `json:"type"`
	Room   string    `json:"room"`
	Player string    `json:"player,omitempty"`
	Target string    `json:"target,omitempty"`

	// Payload carries event-specific fields (rolls, totals, reasons, ...).
	Payload map[string]interface{} `json:"payload,omitempty"`
}
