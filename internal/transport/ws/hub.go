package ws

import (
	"sync"

	"github.com/ed843/codecollab/internal/service"
)

// Hub is the broadcast-group side of the transport: room code -> the
// connections currently subscribed to it. It implements service.Transport.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]service.Conn // room -> connID -> conn
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[string]service.Conn)}
}

func (h *Hub) AddToRoom(c service.Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.rooms[room]
	if !ok {
		conns = make(map[string]service.Conn)
		h.rooms[room] = conns
	}
	conns[c.ID()] = c
}

func (h *Hub) RemoveFromRoom(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.rooms[room]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) Broadcast(room, event string, payload any) {
	h.send(room, "", event, payload)
}

func (h *Hub) BroadcastExcept(room, connID, event string, payload any) {
	h.send(room, connID, event, payload)
}

func (h *Hub) send(room, skipID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.rooms[room] {
		if id == skipID {
			continue
		}
		_ = c.Send(event, payload) // best-effort
	}
}
