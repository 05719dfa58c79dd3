package ws

// Client→server event names. Together with the server→client names in the
// service package these form the wire contract with the front-end.
const (
	EventJoinRoom             = "JoinRoom"
	EventSendWhiteboardUpdate = "SendWhiteboardUpdate"
	EventSendWhiteboardState  = "SendWhiteboardState"
	EventSendWhiteboardClear  = "SendWhiteboardClear"
	EventSendCodeUpdate       = "SendCodeUpdate"
	EventSendLanguageChange   = "SendLanguageChange"
	EventSendOutputUpdate     = "SendOutputUpdate"
)

// Message is the JSON envelope for both directions. Room is set on
// client→server messages; Payload carries the opaque event argument (a
// string for relays, a member count on membership events, absent for
// RoomNotFound and ReceiveWhiteboardClear).
type Message struct {
	Event   string `json:"event"`
	Room    string `json:"room,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// payloadString coerces an inbound payload to a string. Relayed payloads are
// opaque text; anything else is tolerated as empty rather than rejected.
func payloadString(v any) string {
	s, _ := v.(string)
	return s
}
