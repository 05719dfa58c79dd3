package registry

import (
	"context"
	"math/rand"

	"github.com/ed843/codecollab/internal/domain"
)

// Registry owns all room and session state: which connections are in which
// room, the reverse connection→room mapping, and the per-room whiteboard
// snapshot. Implementations differ only in durability and sharing; the
// observable semantics are identical.
type Registry interface {
	// CreateRoom registers an empty room under a fresh unique 5-letter code
	// and returns the code. It fails only when the backing store is
	// unreachable.
	CreateRoom(ctx context.Context) (string, error)

	// RoomExists reports whether a room is registered under code.
	// Lookups are case-insensitive; an empty code is never registered.
	RoomExists(ctx context.Context, code string) bool

	// AddUserToRoom adds connID to the room's membership and records the
	// reverse mapping. No-op when either argument is empty or the room does
	// not exist. A connection already mapped to a different room is migrated:
	// it leaves the old room first.
	AddUserToRoom(ctx context.Context, code, connID string)

	// RemoveUserFromRoom drops the reverse mapping and the membership entry
	// for connID. Idempotent; unknown connections are a no-op.
	RemoveUserFromRoom(ctx context.Context, connID string)

	// GetRoomUserCount returns the current membership size, 0 for missing
	// or unknown rooms.
	GetRoomUserCount(ctx context.Context, code string) int

	// IsRoomEmpty reports whether the room has no members. Missing and
	// unknown rooms count as empty.
	IsRoomEmpty(ctx context.Context, code string) bool

	// GetUserRoom returns the room a connection is in, if any.
	GetUserRoom(ctx context.Context, connID string) (string, bool)

	// StoreWhiteboardState saves the opaque whiteboard payload for a room.
	// An empty state is an explicit clear: any stored payload is removed.
	// Failures are best-effort and never propagate.
	StoreWhiteboardState(ctx context.Context, code, state string)

	// GetWhiteboardState returns the stored whiteboard payload, if any.
	GetWhiteboardState(ctx context.Context, code string) (string, bool)
}

// newCode samples each position independently from A-Z. Uniqueness against
// the live room set is the caller's job (retry until free).
func newCode() string {
	b := make([]byte, domain.CodeLength)
	for i := range b {
		b[i] = domain.CodeAlphabet[rand.Intn(len(domain.CodeAlphabet))]
	}
	return string(b)
}
