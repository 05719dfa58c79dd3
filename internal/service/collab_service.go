package service

import (
	"context"
	"log/slog"

	"github.com/ed843/codecollab/internal/domain"
	"github.com/ed843/codecollab/internal/registry"
)

// Server→client event names. These are the wire contract shared with the
// front-end and must not change.
const (
	EventRoomNotFound            = "RoomNotFound"
	EventUpdateUserCount         = "UpdateUserCount"
	EventUserJoined              = "UserJoined"
	EventUserLeft                = "UserLeft"
	EventInitializeWhiteboard    = "InitializeWhiteboard"
	EventReceiveWhiteboardUpdate = "ReceiveWhiteboardUpdate"
	EventReceiveWhiteboardClear  = "ReceiveWhiteboardClear"
	EventReceiveCodeUpdate       = "ReceiveCodeUpdate"
	EventReceiveLanguageChange   = "ReceiveLanguageChange"
	EventReceiveOutputUpdate     = "ReceiveOutputUpdate"
)

// Conn is the coordinator's view of the invoking connection.
type Conn interface {
	ID() string
	Send(event string, payload any) error
}

// Transport is the group-broadcast capability the coordinator drives. The
// websocket hub implements it; tests substitute a fake.
type Transport interface {
	AddToRoom(c Conn, room string)
	RemoveFromRoom(connID, room string)
	// Broadcast sends to every connection in the room.
	Broadcast(room, event string, payload any)
	// BroadcastExcept sends to every connection in the room except connID.
	BroadcastExcept(room, connID, event string, payload any)
}

// CollabService is the session coordinator: the protocol logic behind each
// realtime event. It holds no state of its own; the registry owns membership
// and whiteboard state, the transport owns delivery.
type CollabService struct {
	reg       registry.Registry
	transport Transport
}

func NewCollabService(reg registry.Registry, transport Transport) *CollabService {
	return &CollabService{reg: reg, transport: transport}
}

// Join admits a connection to a room, reports membership counts to both
// sides, and hands the current whiteboard snapshot to the joiner when one is
// stored.
func (s *CollabService) Join(ctx context.Context, c Conn, code string) {
	code = domain.NormalizeCode(code)

	if !s.reg.RoomExists(ctx, code) {
		if err := c.Send(EventRoomNotFound, nil); err != nil {
			slog.Warn("send room-not-found failed", "conn", c.ID(), "err", err)
		}
		return
	}

	s.reg.AddUserToRoom(ctx, code, c.ID())
	s.transport.AddToRoom(c, code)

	count := s.reg.GetRoomUserCount(ctx, code)
	if err := c.Send(EventUpdateUserCount, count); err != nil {
		slog.Warn("send user count failed", "room", code, "conn", c.ID(), "err", err)
	}
	s.transport.BroadcastExcept(code, c.ID(), EventUserJoined, count)

	// Whiteboard handoff: only when a snapshot is actually stored. Never
	// sent with an empty payload.
	if state, ok := s.reg.GetWhiteboardState(ctx, code); ok {
		if err := c.Send(EventInitializeWhiteboard, state); err != nil {
			slog.Warn("send whiteboard handoff failed", "room", code, "conn", c.ID(), "err", err)
		}
	}

	slog.Debug("connection joined room", "room", code, "conn", c.ID(), "count", count)
}

// WhiteboardUpdate relays a drawing delta to everyone else in the room.
// The payload is opaque to the server.
func (s *CollabService) WhiteboardUpdate(ctx context.Context, c Conn, code, delta string) {
	s.relay(c, code, EventReceiveWhiteboardUpdate, delta)
}

// WhiteboardState saves a full snapshot so a later joiner's handoff is
// fresh. Save-only: nothing is broadcast.
func (s *CollabService) WhiteboardState(ctx context.Context, c Conn, code, snapshot string) {
	s.reg.StoreWhiteboardState(ctx, domain.NormalizeCode(code), snapshot)
}

// WhiteboardClear drops the stored snapshot and tells everyone else to wipe
// their canvas.
func (s *CollabService) WhiteboardClear(ctx context.Context, c Conn, code string) {
	code = domain.NormalizeCode(code)
	s.reg.StoreWhiteboardState(ctx, code, "")
	s.transport.BroadcastExcept(code, c.ID(), EventReceiveWhiteboardClear, nil)
}

// CodeUpdate relays editor content to everyone else in the room.
func (s *CollabService) CodeUpdate(ctx context.Context, c Conn, code, text string) {
	s.relay(c, code, EventReceiveCodeUpdate, text)
}

// LanguageChange relays the selected language to everyone else in the room.
func (s *CollabService) LanguageChange(ctx context.Context, c Conn, code, language string) {
	s.relay(c, code, EventReceiveLanguageChange, language)
}

// OutputUpdate relays execution output to everyone else in the room.
func (s *CollabService) OutputUpdate(ctx context.Context, c Conn, code, output string) {
	s.relay(c, code, EventReceiveOutputUpdate, output)
}

func (s *CollabService) relay(c Conn, code, event string, payload string) {
	s.transport.BroadcastExcept(domain.NormalizeCode(code), c.ID(), event, payload)
}

// Disconnect removes a connection from its room, if it has one, and notifies
// the remaining members. When the last member leaves, the registry has
// already destroyed the room and there is nobody left to tell.
func (s *CollabService) Disconnect(ctx context.Context, connID string) {
	code, ok := s.reg.GetUserRoom(ctx, connID)
	if !ok || code == "" {
		return
	}

	s.reg.RemoveUserFromRoom(ctx, connID)
	s.transport.RemoveFromRoom(connID, code)

	if count := s.reg.GetRoomUserCount(ctx, code); count > 0 {
		s.transport.Broadcast(code, EventUserLeft, count)
	}

	slog.Debug("connection left room", "room", code, "conn", connID)
}
