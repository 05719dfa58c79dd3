package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ed843/codecollab/internal/registry"
	"github.com/ed843/codecollab/internal/service"

	"github.com/gorilla/websocket"
)

func startTestServer(t *testing.T) (*httptest.Server, registry.Registry) {
	t.Helper()

	reg := registry.NewMemoryRegistry()
	hub := NewHub()
	collab := service.NewCollabService(reg, hub)
	srv := httptest.NewServer(http.HandlerFunc(NewServer(collab).HandleWS))
	t.Cleanup(srv.Close)

	return srv, reg
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg Message) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestServerJoinUnknownRoom(t *testing.T) {
	srv, _ := startTestServer(t)
	conn := dial(t, srv)

	send(t, conn, Message{Event: EventJoinRoom, Room: "NONEX"})

	msg := recv(t, conn)
	if msg.Event != service.EventRoomNotFound {
		t.Fatalf("event = %q, want %q", msg.Event, service.EventRoomNotFound)
	}
}

func TestServerJoinAndRelay(t *testing.T) {
	srv, reg := startTestServer(t)
	code, _ := reg.CreateRoom(context.Background())

	first := dial(t, srv)
	send(t, first, Message{Event: EventJoinRoom, Room: code})
	if msg := recv(t, first); msg.Event != service.EventUpdateUserCount || msg.Payload != float64(1) {
		t.Fatalf("first join reply = %+v, want UpdateUserCount(1)", msg)
	}

	second := dial(t, srv)
	send(t, second, Message{Event: EventJoinRoom, Room: code})
	if msg := recv(t, second); msg.Event != service.EventUpdateUserCount || msg.Payload != float64(2) {
		t.Fatalf("second join reply = %+v, want UpdateUserCount(2)", msg)
	}
	if msg := recv(t, first); msg.Event != service.EventUserJoined || msg.Payload != float64(2) {
		t.Fatalf("first received %+v, want UserJoined(2)", msg)
	}

	// Relay a code edit from the second connection; only the first sees it.
	send(t, second, Message{Event: EventSendCodeUpdate, Room: code, Payload: "package main"})
	msg := recv(t, first)
	if msg.Event != service.EventReceiveCodeUpdate || msg.Payload != "package main" {
		t.Fatalf("first received %+v, want ReceiveCodeUpdate with the verbatim text", msg)
	}

	// Second leaves; first is told the new count.
	_ = second.Close()
	if msg := recv(t, first); msg.Event != service.EventUserLeft || msg.Payload != float64(1) {
		t.Fatalf("first received %+v, want UserLeft(1)", msg)
	}
}

func TestServerWhiteboardHandoff(t *testing.T) {
	srv, reg := startTestServer(t)
	ctx := context.Background()
	code, _ := reg.CreateRoom(ctx)

	first := dial(t, srv)
	send(t, first, Message{Event: EventJoinRoom, Room: code})
	_ = recv(t, first) // UpdateUserCount(1)

	const snapshot = "data:image/png;base64,AAAA"
	send(t, first, Message{Event: EventSendWhiteboardState, Room: code, Payload: snapshot})

	// Wait for the save to land before the second client joins.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := reg.GetWhiteboardState(ctx, code); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("whiteboard state was never stored")
		}
		time.Sleep(10 * time.Millisecond)
	}

	second := dial(t, srv)
	send(t, second, Message{Event: EventJoinRoom, Room: code})
	if msg := recv(t, second); msg.Event != service.EventUpdateUserCount {
		t.Fatalf("second received %+v, want UpdateUserCount first", msg)
	}
	if msg := recv(t, second); msg.Event != service.EventInitializeWhiteboard || msg.Payload != snapshot {
		t.Fatalf("second received %+v, want InitializeWhiteboard with the snapshot", msg)
	}
}
