package http

import (
	"net/http"
	"time"

	"github.com/ed843/codecollab/internal/transport/ws"
	"github.com/ed843/codecollab/pkg/httputil"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httputil.MiddlewareRequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	// WS endpoint
	r.Get("/ws", wsServer.HandleWS)

	r.Group(func(pr chi.Router) {
		pr.Use(httputil.MiddlewareLogging)
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Route("/api/room", func(rm chi.Router) {
			rm.Get("/verify", h.VerifyRoom)
			rm.Get("/create", h.CreateRoom)
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
