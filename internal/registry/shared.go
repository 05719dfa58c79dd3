package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/ed843/codecollab/internal/domain"
)

const (
	roomKeyPrefix    = "room:"
	userKeyPrefix    = "user:"
	whiteboardSuffix = ":whiteboard"

	// DefaultTTL bounds the lifetime of every shared-store entry. Refreshed
	// on each write, never on reads.
	DefaultTTL = 24 * time.Hour
)

// SharedRegistry keeps room state in an external expiring key-value cache so
// multiple service instances can share it and it survives restarts.
//
// Per room code C and connection id N the registry writes three keys:
// "room:C" holds the JSON member list, "user:N" holds N's room code, and
// "room:C:whiteboard" holds the opaque snapshot. Every operation is an
// independent read-modify-write; the cache gives per-key atomicity only, so
// concurrent writers to the same room from different processes can lose an
// update. That is the accepted trade-off for horizontal scale.
//
// All operations except CreateRoom swallow store errors: they log with the
// room code or connection id and return the safe default. CreateRoom
// propagates, since the caller cannot proceed without a code.
type SharedRegistry struct {
	cache Cache
	ttl   time.Duration
}

func NewSharedRegistry(cache Cache, ttl time.Duration) *SharedRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SharedRegistry{cache: cache, ttl: ttl}
}

func roomKey(code string) string       { return roomKeyPrefix + code }
func userKey(connID string) string     { return userKeyPrefix + connID }
func whiteboardKey(code string) string { return roomKeyPrefix + code + whiteboardSuffix }

// members fetches and decodes a room's member list. ok is false when the
// room key does not exist.
func (r *SharedRegistry) members(ctx context.Context, code string) (list []string, ok bool, err error) {
	raw, err := r.cache.Get(ctx, roomKey(code))
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, false, fmt.Errorf("decode members of %s: %w", code, err)
	}
	return list, true, nil
}

func (r *SharedRegistry) putMembers(ctx context.Context, code string, list []string) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode members of %s: %w", code, err)
	}
	return r.cache.Set(ctx, roomKey(code), string(raw), r.ttl)
}

func (r *SharedRegistry) CreateRoom(ctx context.Context) (string, error) {
	var code string
	for {
		code = newCode()
		_, err := r.cache.Get(ctx, roomKey(code))
		if errors.Is(err, ErrCacheMiss) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("create room: %w", err)
		}
		// collision, resample
	}

	if err := r.putMembers(ctx, code, []string{}); err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}

	slog.Info("created room", "room", code)
	return code, nil
}

func (r *SharedRegistry) RoomExists(ctx context.Context, code string) bool {
	if code == "" {
		return false
	}
	code = domain.NormalizeCode(code)

	_, ok, err := r.members(ctx, code)
	if err != nil {
		slog.Error("room existence check failed", "room", code, "err", err)
		return false
	}
	return ok
}

func (r *SharedRegistry) AddUserToRoom(ctx context.Context, code, connID string) {
	if code == "" || connID == "" {
		return
	}
	code = domain.NormalizeCode(code)

	list, ok, err := r.members(ctx, code)
	if err != nil {
		slog.Error("add user failed", "room", code, "conn", connID, "err", err)
		return
	}
	if !ok {
		return
	}

	// Migrate a connection that is still mapped to another room.
	if old, err := r.cache.Get(ctx, userKey(connID)); err == nil && old != "" && old != code {
		r.removeFromRoom(ctx, connID, old)
	}

	if !slices.Contains(list, connID) {
		list = append(list, connID)
	}
	if err := r.putMembers(ctx, code, list); err != nil {
		slog.Error("add user failed", "room", code, "conn", connID, "err", err)
		return
	}
	if err := r.cache.Set(ctx, userKey(connID), code, r.ttl); err != nil {
		slog.Error("store user mapping failed", "room", code, "conn", connID, "err", err)
		return
	}

	slog.Debug("added user to room", "room", code, "conn", connID)
}

func (r *SharedRegistry) RemoveUserFromRoom(ctx context.Context, connID string) {
	if connID == "" {
		return
	}

	code, err := r.cache.Get(ctx, userKey(connID))
	if errors.Is(err, ErrCacheMiss) {
		return
	}
	if err != nil {
		slog.Error("remove user failed", "conn", connID, "err", err)
		return
	}

	if err := r.cache.Del(ctx, userKey(connID)); err != nil {
		slog.Error("remove user mapping failed", "conn", connID, "err", err)
	}
	r.removeFromRoom(ctx, connID, code)
}

// removeFromRoom drops connID from code's member list, deleting the list key
// when it goes empty.
func (r *SharedRegistry) removeFromRoom(ctx context.Context, connID, code string) {
	list, ok, err := r.members(ctx, code)
	if err != nil {
		slog.Error("remove user failed", "room", code, "conn", connID, "err", err)
		return
	}
	if !ok {
		return
	}

	list = slices.DeleteFunc(list, func(id string) bool { return id == connID })

	if len(list) == 0 {
		if err := r.cache.Del(ctx, roomKey(code)); err != nil {
			slog.Error("remove empty room failed", "room", code, "err", err)
			return
		}
		slog.Info("removed empty room", "room", code)
		return
	}

	if err := r.putMembers(ctx, code, list); err != nil {
		slog.Error("remove user failed", "room", code, "conn", connID, "err", err)
	}
}

func (r *SharedRegistry) GetRoomUserCount(ctx context.Context, code string) int {
	if code == "" {
		return 0
	}
	code = domain.NormalizeCode(code)

	list, _, err := r.members(ctx, code)
	if err != nil {
		slog.Error("user count failed", "room", code, "err", err)
		return 0
	}
	return len(list)
}

func (r *SharedRegistry) IsRoomEmpty(ctx context.Context, code string) bool {
	if code == "" {
		return true
	}
	code = domain.NormalizeCode(code)

	list, _, err := r.members(ctx, code)
	if err != nil {
		slog.Error("empty check failed", "room", code, "err", err)
		return true
	}
	return len(list) == 0
}

func (r *SharedRegistry) GetUserRoom(ctx context.Context, connID string) (string, bool) {
	if connID == "" {
		return "", false
	}

	code, err := r.cache.Get(ctx, userKey(connID))
	if errors.Is(err, ErrCacheMiss) {
		return "", false
	}
	if err != nil {
		slog.Error("user room lookup failed", "conn", connID, "err", err)
		return "", false
	}
	return code, true
}

func (r *SharedRegistry) StoreWhiteboardState(ctx context.Context, code, state string) {
	if code == "" {
		return
	}
	code = domain.NormalizeCode(code)

	if state == "" {
		if err := r.cache.Del(ctx, whiteboardKey(code)); err != nil {
			slog.Error("clear whiteboard failed", "room", code, "err", err)
		}
		return
	}

	if err := r.cache.Set(ctx, whiteboardKey(code), state, r.ttl); err != nil {
		slog.Error("store whiteboard failed", "room", code, "err", err)
		return
	}
	slog.Debug("stored whiteboard state", "room", code)
}

func (r *SharedRegistry) GetWhiteboardState(ctx context.Context, code string) (string, bool) {
	if code == "" {
		return "", false
	}
	code = domain.NormalizeCode(code)

	state, err := r.cache.Get(ctx, whiteboardKey(code))
	if errors.Is(err, ErrCacheMiss) {
		return "", false
	}
	if err != nil {
		slog.Error("whiteboard lookup failed", "room", code, "err", err)
		return "", false
	}
	return state, true
}
