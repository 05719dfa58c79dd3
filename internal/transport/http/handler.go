package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ed843/codecollab/internal/domain"
	"github.com/ed843/codecollab/internal/service"
	"github.com/ed843/codecollab/pkg/httputil"
)

type Handler struct {
	roomSvc *service.RoomService
}

func NewHandler(roomSvc *service.RoomService) *Handler {
	return &Handler{roomSvc: roomSvc}
}

// GET /api/room/verify?code=ABCDE
func (h *Handler) VerifyRoom(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")

	exists, err := h.roomSvc.Verify(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCode) {
			httputil.JSON(w, http.StatusBadRequest, VerifyRoomResponse{
				Exists:  false,
				Message: "Invalid room code format",
			})
			return
		}
		slog.Error("handler.VerifyRoom:", slog.Any("err", err))
		httputil.JSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	httputil.JSON(w, http.StatusOK, VerifyRoomResponse{Exists: exists})
}

// GET /api/room/create
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	code, err := h.roomSvc.Create(r.Context())
	if err != nil {
		slog.Error("handler.CreateRoom:", slog.Any("err", err))
		httputil.JSON(w, http.StatusInternalServerError, ErrorResponse{Error: "could not create room"})
		return
	}

	httputil.JSON(w, http.StatusOK, CreateRoomResponse{RoomCode: code})
}
