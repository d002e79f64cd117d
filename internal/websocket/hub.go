package websocket

import (
	"context"
	"log/slog"
	"sync"

	"botpos-chat-backend/internal/logging"
)

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room
	Register   chan *WSClient
	Unregister chan *WSClient
	Broadcast  chan *WSMessage
	stopped    chan struct{}
	metrics    *Metrics
	logger     *slog.Logger
}

func NewHub(metrics *Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		Register:   make(chan *WSClient),
		Unregister: make(chan *WSClient),
		Broadcast:  make(chan *WSMessage),
		stopped:    make(chan struct{}),
		metrics:    metrics,
		logger:     logging.OrDefault(logger),
	}
}

// EnsureRoom creates the room if it does not exist yet.
func (h *Hub) EnsureRoom(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.rooms[id]; exists {
		return false
	}
	h.rooms[id] = &Room{Id: id, Clients: make(map[string]*WSClient)}
	h.metrics.setRooms(len(h.rooms))
	return true
}

func (h *Hub) HasRoom(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[id]
	return ok
}

func (h *Hub) ClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[roomID]
	if !ok {
		return 0
	}
	return len(room.Clients)
}

func (h *Hub) Rooms() []RoomRes {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms := make([]RoomRes, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, RoomRes{ID: room.Id, Clients: len(room.Clients)})
	}
	return rooms
}

// Stopped is closed once Run returns.
func (h *Hub) Stopped() <-chan struct{} {
	return h.stopped
}

// Run serves register, unregister and broadcast requests until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			h.mu.Lock()
			room, ok := h.rooms[client.RoomID]
			if !ok {
				h.mu.Unlock()
				h.logger.Warn("register for unknown room", "room", client.RoomID, "client", client.ID)
				close(client.Message)
				continue
			}
			room.Clients[client.ID] = client
			h.mu.Unlock()
			h.metrics.incConnections()

		case client := <-h.Unregister:
			h.mu.Lock()
			room, ok := h.rooms[client.RoomID]
			if ok {
				if existing, found := room.Clients[client.ID]; found && existing == client {
					delete(room.Clients, client.ID)
					close(client.Message)
					h.metrics.decConnections()
				}
			}
			h.mu.Unlock()

		case message := <-h.Broadcast:
			h.broadcast(message)
		}
	}
}

func (h *Hub) broadcast(message *WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[message.RoomID]
	if !ok {
		return
	}
	delivered := 0
	for id, client := range room.Clients {
		select {
		case client.Message <- message:
			delivered++
		default:
			// Slow consumer; it resyncs over REST when it reconnects.
			close(client.Message)
			delete(room.Clients, id)
			h.metrics.decConnections()
			h.metrics.incDropped()
			h.logger.Warn("dropping slow websocket client", "room", room.Id, "client", id)
		}
	}
	if delivered > 0 {
		h.metrics.addDelivered(delivered)
	}
}

// send queues m for broadcast unless ctx ends or the hub has stopped.
func (h *Hub) send(ctx context.Context, m *WSMessage) error {
	select {
	case h.Broadcast <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stopped:
		return errHubStopped
	}
}
