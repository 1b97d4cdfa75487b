// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Application-specific WebSocket close codes (4000-4999 range).
const (
	BadSubprotocolError  websocket.StatusCode = 4002
	InvalidRoomCodeError websocket.StatusCode = 4004
)
