package registry

import (
	"context"
	"sync"

	"github.com/ed843/codecollab/internal/domain"
)

// MemoryRegistry keeps all state in process-local maps behind a single
// coarse mutex. Rooms live until their last member leaves; an empty room is
// destroyed immediately, together with its whiteboard state.
type MemoryRegistry struct {
	mu          sync.Mutex
	rooms       map[string]map[string]struct{} // code -> set of connection ids
	connRoom    map[string]string              // connection id -> code
	whiteboards map[string]string              // code -> opaque payload
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		rooms:       make(map[string]map[string]struct{}),
		connRoom:    make(map[string]string),
		whiteboards: make(map[string]string),
	}
}

func (r *MemoryRegistry) CreateRoom(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var code string
	for {
		code = newCode()
		if _, taken := r.rooms[code]; !taken {
			break
		}
	}
	r.rooms[code] = make(map[string]struct{})

	return code, nil
}

func (r *MemoryRegistry) RoomExists(_ context.Context, code string) bool {
	if code == "" {
		return false
	}
	code = domain.NormalizeCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.rooms[code]
	return ok
}

func (r *MemoryRegistry) AddUserToRoom(_ context.Context, code, connID string) {
	if code == "" || connID == "" {
		return
	}
	code = domain.NormalizeCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[code]
	if !ok {
		return
	}

	// Migrate a connection that is still mapped elsewhere.
	if old, ok := r.connRoom[connID]; ok && old != code {
		r.removeLocked(connID, old)
	}

	members[connID] = struct{}{}
	r.connRoom[connID] = code
}

func (r *MemoryRegistry) RemoveUserFromRoom(_ context.Context, connID string) {
	if connID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.connRoom[connID]
	if !ok {
		return
	}
	r.removeLocked(connID, code)
}

// removeLocked drops connID from code's membership and destroys the room if
// that leaves it empty. Caller holds r.mu.
func (r *MemoryRegistry) removeLocked(connID, code string) {
	delete(r.connRoom, connID)

	members, ok := r.rooms[code]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, code)
		delete(r.whiteboards, code)
	}
}

func (r *MemoryRegistry) GetRoomUserCount(_ context.Context, code string) int {
	if code == "" {
		return 0
	}
	code = domain.NormalizeCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms[code])
}

func (r *MemoryRegistry) IsRoomEmpty(_ context.Context, code string) bool {
	if code == "" {
		return true
	}
	code = domain.NormalizeCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms[code]) == 0
}

func (r *MemoryRegistry) GetUserRoom(_ context.Context, connID string) (string, bool) {
	if connID == "" {
		return "", false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.connRoom[connID]
	return code, ok
}

func (r *MemoryRegistry) StoreWhiteboardState(_ context.Context, code, state string) {
	if code == "" {
		return
	}
	code = domain.NormalizeCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[code]; !ok {
		return
	}
	if state == "" {
		delete(r.whiteboards, code)
		return
	}
	r.whiteboards[code] = state
}

func (r *MemoryRegistry) GetWhiteboardState(_ context.Context, code string) (string, bool) {
	if code == "" {
		return "", false
	}
	code = domain.NormalizeCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.whiteboards[code]
	return state, ok
}
