package models

import (
	"math"
	"time"
)

const (
	DefaultDrawingColor     = "#000000"
	DefaultMeasurementColor = "#FF0000"
	DefaultStrokeWidth      = 2
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Drawing is a freehand or shape annotation overlaid on the map.
type Drawing struct {
	ID        string    `json:"id"`
	Player    string    `json:"player,omitempty"`
	Type      string    `json:"type"`
	Points    []Point   `json:"points"`
	Color     string    `json:"color"`
	Width     float64   `json:"width"`
	Timestamp time.Time `json:"timestamp"`
}

// Measurement is a two-point ruler annotation.
type Measurement struct {
	ID        string    `json:"id"`
	Player    string    `json:"player,omitempty"`
	StartX    float64   `json:"startX"`
	StartY    float64   `json:"startY"`
	EndX      float64   `json:"endX"`
	EndY      float64   `json:"endY"`
	Distance  float64   `json:"distance"`
	Color     string    `json:"color"`
	Width     float64   `json:"width"`
	Timestamp time.Time `json:"timestamp"`
}

// Length returns the euclidean distance between the endpoints.
func (m Measurement) Length() float64 {
	return math.Hypot(m.EndX-m.StartX, m.EndY-m.StartY)
}
