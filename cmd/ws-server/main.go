package main

import (
	"log"

	"support-hub-backend/internal/api"
	"support-hub-backend/internal/api/router"
	"support-hub-backend/internal/database"
	"support-hub-backend/internal/queue"
	agentservice "support-hub-backend/internal/service/agent"
	"support-hub-backend/internal/websocket"
)

func main() {
	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	hub := websocket.NewHub()
	go hub.Run()
	handler := websocket.NewHandler(hub)

	agents := agentservice.New(db)

	server := api.NewAPIServer(
		":83",
		queueManager,
		db,
		handler,
		router.UtilsRoutes("/api/ws/v1"),
		router.WebsocketRoutes("/api/ws/v1", agents),
	)

	handler.SubscribeToRedisChannels()

	server.Run()
}
