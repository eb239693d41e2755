package models

import "time"

// Action tags a log entry. The set is closed.
type Action string

const (
	ActionRoomCreated      Action = "room_created"
	ActionPlayerJoin       Action = "player_join"
	ActionChatMessage      Action = "chat_message"
	ActionMapUploaded      Action = "map_uploaded"
	ActionTokenUploaded    Action = "token_uploaded"
	ActionTokenUpdated     Action = "token_updated"
	ActionDrawingAdded     Action = "drawing_added"
	ActionMeasurementAdded Action = "measurement_added"
	ActionDiceRoll         Action = "dice_roll"
	ActionDiceRollWS       Action = "dice_roll_ws"
)

// LogEntry is one audit record. Position in Room.Logs is its identity.
type LogEntry struct {
	Action    Action    `json:"action"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}
