// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/nbellerose/skirmish/internal/auth"
	"github.com/nbellerose/skirmish/internal/cache"
	"github.com/nbellerose/skirmish/internal/database"
	"github.com/nbellerose/skirmish/internal/handlers"
	"github.com/nbellerose/skirmish/internal/middleware"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Redis and Postgres are optional collaborators: the room coordinator is
	// fully in-memory and keeps running without them.
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, historian queue disabled: %v", err)
	}
	if err := database.Connect(); err != nil {
		logger.Warnf("postgres unavailable, match persistence disabled: %v", err)
	}

	rs := handlers.NewRoomServer(logger)

	mux := http.NewServeMux()

	// room endpoints
	mux.Handle("/room/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateRoomHandler(rs),
	)))
	mux.Handle("/room/list", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ListRoomsHandler(rs),
	)))

	// room websocket
	mux.Handle("/room/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.RoomWSHandler(logger, rs),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
