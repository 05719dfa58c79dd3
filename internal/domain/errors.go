package domain

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrInvalidCode  = errors.New("invalid room code format")
)
