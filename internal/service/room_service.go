package service

import (
	"context"
	"fmt"

	"github.com/ed843/codecollab/internal/domain"
	"github.com/ed843/codecollab/internal/registry"
)

// RoomService backs the room lookup API: room creation and existence checks.
type RoomService struct {
	reg registry.Registry
}

func NewRoomService(reg registry.Registry) *RoomService {
	return &RoomService{reg: reg}
}

// Create registers a new empty room and returns its code.
func (s *RoomService) Create(ctx context.Context) (string, error) {
	code, err := s.reg.CreateRoom(ctx)
	if err != nil {
		return "", fmt.Errorf("registry.CreateRoom: %w", err)
	}
	return code, nil
}

// Verify reports whether a room exists. Codes of the wrong shape are
// rejected before the registry is consulted.
func (s *RoomService) Verify(ctx context.Context, code string) (bool, error) {
	if !domain.ValidCode(code) {
		return false, domain.ErrInvalidCode
	}
	return s.reg.RoomExists(ctx, code), nil
}
