package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ed843/codecollab/internal/registry"
	"github.com/ed843/codecollab/internal/service"
)

func setupHandler(t *testing.T) (*Handler, registry.Registry) {
	t.Helper()
	reg := registry.NewMemoryRegistry()
	return NewHandler(service.NewRoomService(reg)), reg
}

func TestVerifyRoomExisting(t *testing.T) {
	h, reg := setupHandler(t)
	code, _ := reg.CreateRoom(context.Background())

	req := httptest.NewRequest("GET", "/api/room/verify?code="+code, nil)
	w := httptest.NewRecorder()
	h.VerifyRoom(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp VerifyRoomResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Exists {
		t.Error("exists = false, want true")
	}
}

func TestVerifyRoomMissing(t *testing.T) {
	h, _ := setupHandler(t)

	req := httptest.NewRequest("GET", "/api/room/verify?code=ZZZZZ", nil)
	w := httptest.NewRecorder()
	h.VerifyRoom(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp VerifyRoomResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Exists {
		t.Error("exists = true, want false")
	}
}

func TestVerifyRoomMalformed(t *testing.T) {
	h, _ := setupHandler(t)

	for _, code := range []string{"", "ABC", "ABCDEF", "AB1DE"} {
		req := httptest.NewRequest("GET", "/api/room/verify?code="+code, nil)
		w := httptest.NewRecorder()
		h.VerifyRoom(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("verify(%q) status = %d, want 400", code, w.Code)
			continue
		}
		var resp VerifyRoomResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Exists || resp.Message == "" {
			t.Errorf("verify(%q) = %+v, want exists=false with a message", code, resp)
		}
	}
}

func TestCreateRoom(t *testing.T) {
	h, reg := setupHandler(t)

	req := httptest.NewRequest("GET", "/api/room/create", nil)
	w := httptest.NewRecorder()
	h.CreateRoom(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp CreateRoomResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.RoomCode) != 5 {
		t.Fatalf("roomCode = %q, want a 5-letter code", resp.RoomCode)
	}
	if !reg.RoomExists(context.Background(), resp.RoomCode) {
		t.Error("created room should exist in the registry")
	}
}

// failingRegistry simulates an unreachable backing store for room creation.
type failingRegistry struct {
	registry.Registry
}

func (f *failingRegistry) CreateRoom(context.Context) (string, error) {
	return "", errors.New("store unreachable")
}

func TestCreateRoomStoreError(t *testing.T) {
	h := NewHandler(service.NewRoomService(&failingRegistry{Registry: registry.NewMemoryRegistry()}))

	req := httptest.NewRequest("GET", "/api/room/create", nil)
	w := httptest.NewRecorder()
	h.CreateRoom(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
