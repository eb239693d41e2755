package dto

import (
	"time"

	"github.com/thereayou/nezako-tabletop/internal/models"
)

type CreateRoomRequest struct {
	Name     string `json:"name" binding:"required"`
	Master   string `json:"master" binding:"required"`
	Password string `json:"password"`
}

type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CreateRoomResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Master    PlayerInfo `json:"master"`
	CreatedAt time.Time  `json:"createdAt"`
	Protected bool       `json:"protected"`
}

type JoinRoomRequest struct {
	Player   string `json:"player" binding:"required"`
	Password string `json:"password"`
}

type JoinRoomResponse struct {
	Room   models.RoomSummary `json:"room"`
	Player models.Player      `json:"player"`
}

type ChatRequest struct {
	Player  string `json:"player" binding:"required"`
	Message string `json:"message" binding:"required"`
}

type DrawingRequest struct {
	Player string         `json:"player"`
	Type   string         `json:"type" binding:"required"`
	Points []models.Point `json:"points" binding:"required,min=1"`
	Color  string         `json:"color"`
	Width  float64        `json:"width" binding:"gte=0"`
}

// MeasurementRequest uses pointers so that a zero coordinate is still
// distinguishable from a missing one.
type MeasurementRequest struct {
	Player string   `json:"player"`
	StartX *float64 `json:"startX" binding:"required"`
	StartY *float64 `json:"startY" binding:"required"`
	EndX   *float64 `json:"endX" binding:"required"`
	EndY   *float64 `json:"endY" binding:"required"`
	Color  string   `json:"color"`
	Width  float64  `json:"width" binding:"gte=0"`
}

type RollRequest struct {
	Player  string `json:"player" binding:"required"`
	Formula string `json:"formula" binding:"required"`
}
