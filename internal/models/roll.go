package models

import "time"

type DiceRoll struct {
	ID        string    `json:"id"`
	Player    string    `json:"player"`
	Formula   string    `json:"formula"`
	Rolls     []int     `json:"rolls"`
	Mod       int       `json:"mod"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}
