package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ed843/codecollab/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Server upgrades websocket connections and feeds their events to the
// session coordinator.
type Server struct {
	upgrader websocket.Upgrader
	collab   *service.CollabService

	pingEvery time.Duration
}

func NewServer(collab *service.CollabService) *Server {
	return &Server{
		collab: collab,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn)
	slog.Debug("ws connected", "conn", c.ID())

	go s.writeLoop(c)
	s.readLoop(r, c)

	// The registry decides whether anyone is left to notify.
	s.collab.Disconnect(r.Context(), c.ID())

	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "conn", c.ID(), "err", err)
	}
	slog.Debug("ws disconnected", "conn", c.ID())
}

func (s *Server) readLoop(r *http.Request, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	ctx := r.Context()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("ws read failed", "conn", c.ID(), "err", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Event {
		case EventJoinRoom:
			s.collab.Join(ctx, c, msg.Room)
		case EventSendWhiteboardUpdate:
			s.collab.WhiteboardUpdate(ctx, c, msg.Room, payloadString(msg.Payload))
		case EventSendWhiteboardState:
			s.collab.WhiteboardState(ctx, c, msg.Room, payloadString(msg.Payload))
		case EventSendWhiteboardClear:
			s.collab.WhiteboardClear(ctx, c, msg.Room)
		case EventSendCodeUpdate:
			s.collab.CodeUpdate(ctx, c, msg.Room, payloadString(msg.Payload))
		case EventSendLanguageChange:
			s.collab.LanguageChange(ctx, c, msg.Room, payloadString(msg.Payload))
		case EventSendOutputUpdate:
			s.collab.OutputUpdate(ctx, c, msg.Room, payloadString(msg.Payload))
		default:
			// ignore
		}
	}
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-c.closed:
			return
		}
	}
}

// wsConn wraps a gorilla connection with a server-assigned identity and
// serialized writes. It implements service.Conn.
type wsConn struct {
	id     string
	conn   *websocket.Conn
	sendMu chan struct{}
	closed chan struct{}
}

func newWsConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		id:     uuid.NewString(),
		conn:   conn,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(event string, payload any) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(Message{Event: event, Payload: payload})
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}
