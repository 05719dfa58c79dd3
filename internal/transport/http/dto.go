package http

type VerifyRoomResponse struct {
	Exists  bool   `json:"exists"`
	Message string `json:"message,omitempty"`
}

type CreateRoomResponse struct {
	RoomCode string `json:"roomCode"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
