// Package events defines the domain events pushed to room subscribers and the
// publisher interface that request handlers use to emit them.
package events

import "github.com/thereayou/nezako-tabletop/internal/models"

const (
	PlayerJoined = "playerJoined"
	PlayerLeft   = "playerLeft"
	ChatMessage  = "chatMessage"
	TokenUpdate  = "tokenUpdate"
	Drawing      = "drawing"
	Measurement  = "measurement"
	DiceRoll     = "diceRoll"
	Error        = "error"
)

// Event is addressed to every subscriber of RoomID.
type Event struct {
	Type   string
	RoomID string
	Data   any
}

type Publisher interface {
	Publish(ev Event) error
}

// DiceRolled announces a stored roll to the room.
func DiceRolled(roomID string, roll models.DiceRoll) Event {
	return Event{Type: DiceRoll, RoomID: roomID, Data: roll}
}

// PlayerRef is the presence payload: {"player": {"name": ...}}.
type PlayerRef struct {
	Player PlayerName `json:"player"`
}

type PlayerName struct {
	Name string `json:"name"`
}

func PlayerJoinedEvent(roomID, name string) Event {
	return Event{Type: PlayerJoined, RoomID: roomID, Data: PlayerRef{Player: PlayerName{Name: name}}}
}

func PlayerLeftEvent(roomID, name string) Event {
	return Event{Type: PlayerLeft, RoomID: roomID, Data: PlayerRef{Player: PlayerName{Name: name}}}
}
