package dto

import "time"

// Websocket payloads. Every room-scoped message names its room.

type RoomRef struct {
	RoomID string `json:"roomId"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
	Player string `json:"player"`
}

type ChatPayload struct {
	RoomID  string `json:"roomId"`
	Player  string `json:"player"`
	Message string `json:"message"`
}

type ChatBroadcast struct {
	Player    string    `json:"player"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type RollPayload struct {
	RoomID  string `json:"roomId"`
	Player  string `json:"player"`
	Formula string `json:"formula"`
}
