// internal/room/gamelog.go
package room

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nbellerose/skirmish/internal/cache"
)

// LogEntry is one line of a room's append-only game log. The log is derived
// audit data for observers (chat/log UI, historian); nothing in the turn or
// combat logic ever reads it back.
type LogEntry struct {
	Index     int       `json:"index"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Players   []string  `json:"players,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// appendLog records one entry and forwards it to the historian queue.
// Assumes the room lock is held.
func (r *Room) appendLog(entryType, message string, players ...string) {
	r.logIndex++
	entry := LogEntry{
		Index:     r.logIndex,
		Type:      entryType,
		Message:   message,
		Players:   players,
		Timestamp: time.Now(),
	}
	r.logEntries = append(r.logEntries, entry)

	record := cache.LogRecord{
		Room:      r.Code,
		Index:     entry.Index,
		EntryType: entry.Type,
		Message:   entry.Message,
		Players:   entry.Players,
		Timestamp: entry.Timestamp.UnixMilli(),
	}
	// Push to Redis off the room lock's critical path.
	go func(rec cache.LogRecord) {
		if cache.Rdb == nil {
			// Redis is optional in dev; the in-memory log still works.
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishLogRecord(ctx, rec); err != nil {
			log.Warnf("failed to publish log entry %d for room %s: %v", rec.Index, rec.Room, err)
		}
	}(record)
}

// GameLog returns a snapshot of the room's log in emission order.
func (reg *Registry) GameLog(code string) ([]LogEntry, error) {
	r, err := reg.getRoom(code)
	if err != nil {
		return nil, err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return nil, ErrRoomNotFound
	}
	snapshot := make([]LogEntry, len(r.logEntries))
	copy(snapshot, r.logEntries)
	return snapshot, nil
}
