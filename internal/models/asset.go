package models

import "time"

// Map is an uploaded background image. Immutable once stored.
type Map struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Path         string    `json:"path"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Token is a positioned marker backed by an uploaded image. Only the
// geometry changes after upload.
type Token struct {
	ID           string     `json:"id"`
	Filename     string     `json:"filename"`
	OriginalName string     `json:"originalName"`
	Path         string     `json:"path"`
	X            float64    `json:"x"`
	Y            float64    `json:"y"`
	Width        float64    `json:"width"`
	Height       float64    `json:"height"`
	UploadedAt   time.Time  `json:"uploadedAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

const (
	DefaultTokenWidth  = 50
	DefaultTokenHeight = 50
)

// TokenPatch carries the optional geometry fields of a token update.
type TokenPatch struct {
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

// Empty reports whether the patch changes nothing.
func (p TokenPatch) Empty() bool {
	return p.X == nil && p.Y == nil && p.Width == nil && p.Height == nil
}

// Apply copies the set fields onto the token.
func (p TokenPatch) Apply(t *Token) {
	if p.X != nil {
		t.X = *p.X
	}
	if p.Y != nil {
		t.Y = *p.Y
	}
	if p.Width != nil {
		t.Width = *p.Width
	}
	if p.Height != nil {
		t.Height = *p.Height
	}
}
