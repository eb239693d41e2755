package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrInvalidMessage  = errors.New("invalid message format")
	ErrRoomNotFound    = errors.New("room not found")
	ErrUserNotInRoom   = errors.New("connection has not joined this room")
	ErrNotRegistered   = errors.New("client is not registered")
	ErrHubStopped      = errors.New("hub stopped")
	ErrUnsupportedType = errors.New("unsupported message type")
)
