package models

import "time"

type ChatMessage struct {
	ID        string    `json:"id"`
	Player    string    `json:"player"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
