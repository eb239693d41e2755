package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/nezako-tabletop/internal/handlers/dto"
	"github.com/thereayou/nezako-tabletop/internal/models"
)

func (h *SessionHandler) AddDrawing(c *gin.Context) {
	id, ok := h.requireRoom(c)
	if !ok {
		return
	}

	var req dto.DrawingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	d, err := h.store.AddDrawing(id, models.Drawing{
		Player: req.Player,
		Type:   req.Type,
		Points: req.Points,
		Color:  req.Color,
		Width:  req.Width,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *SessionHandler) ListDrawings(c *gin.Context) {
	listing(c, h, h.store.Drawings)
}

// AddMeasurement stores a ruler line; the distance is computed server-side.
func (h *SessionHandler) AddMeasurement(c *gin.Context) {
	id, ok := h.requireRoom(c)
	if !ok {
		return
	}

	var req dto.MeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	m, err := h.store.AddMeasurement(id, models.Measurement{
		Player: req.Player,
		StartX: *req.StartX,
		StartY: *req.StartY,
		EndX:   *req.EndX,
		EndY:   *req.EndY,
		Color:  req.Color,
		Width:  req.Width,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *SessionHandler) ListMeasurements(c *gin.Context) {
	listing(c, h, h.store.Measurements)
}
