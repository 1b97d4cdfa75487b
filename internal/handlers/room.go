// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"

	"github.com/nbellerose/skirmish/internal/auth"
)

// defaultCodeLength is the number of decimal digits in a room code, unless
// ROOM_CODE_LENGTH overrides it.
const defaultCodeLength = 4

// roomCodeLength reads the configured code length.
func roomCodeLength() int {
	if s := os.Getenv("ROOM_CODE_LENGTH"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return defaultCodeLength
}

// generateRoomCode draws a uniform zero-padded numeric code of the configured
// length. The core treats codes as opaque identifiers; generation and format
// are the gateway's concern.
func generateRoomCode() string {
	length := roomCodeLength()
	max := 1
	for i := 0; i < length; i++ {
		max *= 10
	}
	return fmt.Sprintf("%0*d", length, rand.Intn(max))
}

// CreateRoomHandler reserves a fresh room code, optionally guarded by a
// passphrase, and returns it to the client.
func CreateRoomHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if _, err := EnsureGuest(w, r); err != nil {
			http.Error(w, "failed to establish session", http.StatusInternalServerError)
			return
		}

		var body struct {
			Passphrase string `json:"passphrase"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		hash := ""
		if body.Passphrase != "" {
			var err error
			hash, err = auth.HashPassphrase(body.Passphrase)
			if err != nil {
				http.Error(w, "failed to hash passphrase", http.StatusInternalServerError)
				return
			}
		}

		// Codes are drawn uniformly; retry on the rare collision.
		var code string
		for attempt := 0; attempt < 100; attempt++ {
			code = generateRoomCode()
			if err := rs.Registry.CreateRoom(code, hash); err == nil {
				writeJSON(w, http.StatusOK, map[string]string{"code": code})
				return
			}
		}
		http.Error(w, "no free room codes", http.StatusServiceUnavailable)
	}
}

// ListRoomsHandler returns a summary of every live room.
func ListRoomsHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, rs.Registry.List())
	}
}
