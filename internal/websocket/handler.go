package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"support-hub-backend/internal/env"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

var (
	upgrader    websocket.Upgrader
	redisClient *redis.Client
)

func init() {
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	redisClient = redis.NewClient(&redis.Options{
		Addr:     env.Get("EVENTS_REDIS_URL"),
		Password: env.Get("EVENTS_REDIS_PASS"),
		DB:       0,
	})
}

type Handler struct {
	hub         *Hub
	redisClient *redis.Client
}

func NewHandler(h *Hub) *Handler {
	return &Handler{
		hub:         h,
		redisClient: redisClient,
	}
}

// subscribeToRoomChannel bridges the redis channel for a room into the
// local hub so events reach clients on every server instance.
func (h *Handler) subscribeToRoomChannel(roomID string) {
	if _, exists := h.hub.Rooms[roomID]; !exists {
		log.Printf("Room %s not found for subscription", roomID)
		return
	}

	subscriber := h.redisClient.Subscribe(context.Background(), roomID)
	defer subscriber.Close()

	ch := subscriber.Channel()
	for msg := range ch {
		h.hub.Broadcast <- &WSMessage{
			Content:   msg.Payload,
			RoomID:    roomID,
			Timestamp: time.Now().Unix(),
		}
	}
	log.Printf("Unsubscribed from Redis channel: %s", roomID)
}

func (h *Handler) CreateRoom(id string) {
	if _, exists := h.hub.Rooms[id]; exists {
		return
	}

	room := &Room{
		Id:      id,
		Clients: make(map[string]*WSClient),
	}

	h.hub.Rooms[id] = room
	setRooms(len(h.hub.Rooms))

	go h.subscribeToRoomChannel(id)
}

func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request, roomId, clientId string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if conn == nil {
		http.Error(w, "Error conn", http.StatusBadRequest)
		return
	}

	cl := &WSClient{
		Conn:     conn,
		Message:  make(chan *WSMessage, 10),
		ID:       clientId,
		RoomID:   roomId,
		done:     make(chan struct{}),
		isClosed: false,
	}

	h.hub.Register <- cl

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h.hub)
}

func (h *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	rooms := make([]RoomRes, 0)

	for _, room := range h.hub.Rooms {
		rooms = append(rooms, RoomRes{
			ID: room.Id,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rooms)
}

// NotifyRoom publishes a payload to the room's redis channel. The local
// subscription loop fans it back into connected clients.
func (h *Handler) NotifyRoom(roomID string, payload interface{}) {
	messageJSON, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling notification payload: %v", err)
		return
	}

	if err := h.redisClient.Publish(context.Background(), roomID, string(messageJSON)).Err(); err != nil {
		log.Printf("Error publishing notification to Redis: %v", err)
	}
}

func (h *Handler) SubscribeToRedisChannels() {
	for _, room := range h.hub.Rooms {
		go h.subscribeToRoomChannel(room.Id)
	}
}
