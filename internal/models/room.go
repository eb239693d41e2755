package models

import "time"

// Room is a tabletop session. Every sequence is append-only and keeps
// insertion order.
type Room struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Master       Player        `json:"master"`
	Protected    bool          `json:"protected"`
	CreatedAt    time.Time     `json:"createdAt"`
	Players      []Player      `json:"players"`
	Chat         []ChatMessage `json:"chat"`
	Maps         []Map         `json:"maps"`
	Tokens       []Token       `json:"tokens"`
	Drawings     []Drawing     `json:"drawings"`
	Measurements []Measurement `json:"measurements"`
	Rolls        []DiceRoll    `json:"rolls"`
	Logs         []LogEntry    `json:"logs"`
}

// RoomSummary is the public projection used by the room listing. It never
// carries the password.
type RoomSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PlayerCount int       `json:"playerCount"`
	Master      string    `json:"master"`
	Protected   bool      `json:"protected"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Summary projects the room into its public listing form.
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:          r.ID,
		Name:        r.Name,
		PlayerCount: len(r.Players),
		Master:      r.Master.Name,
		Protected:   r.Protected,
		CreatedAt:   r.CreatedAt,
	}
}
