package models

import "time"

// Player is a roster entry. Names are not unique; the ID is.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}
