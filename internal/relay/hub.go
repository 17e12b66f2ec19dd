package relay

import (
	"sync"

	"github.com/fenggwsx/dmrelay/internal/chat"
)

// Hub tracks which connections are subscribed to each room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[chat.RoomID]map[string]Conn
}

// NewHub initializes an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[chat.RoomID]map[string]Conn)}
}

// Register subscribes conn to the room.
func (h *Hub) Register(room chat.RoomID, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[string]Conn)
	}
	h.rooms[room][conn.ID()] = conn
}

// Unregister removes the subscriber if present.
func (h *Hub) Unregister(room chat.RoomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, ok := h.rooms[room]; ok {
		delete(subscribers, connID)
		if len(subscribers) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast hands msg to every subscriber of the room. Delivery is best-effort.
func (h *Hub) Broadcast(room chat.RoomID, msg chat.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.rooms[room] {
		conn.Deliver(msg)
	}
}

// Members returns the number of connections subscribed to the room.
func (h *Hub) Members(room chat.RoomID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
