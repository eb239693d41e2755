package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/nezako-tabletop/internal/events"
	"github.com/thereayou/nezako-tabletop/internal/handlers/dto"
	"github.com/thereayou/nezako-tabletop/internal/models"
)

// RollDice rolls the formula, stores the result and announces it to the
// room's subscribers. A malformed formula is a 400 here, unlike the
// websocket path which drops it.
func (h *SessionHandler) RollDice(c *gin.Context) {
	id, ok := h.requireRoom(c)
	if !ok {
		return
	}

	var req dto.RollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.roller.Roll(req.Formula)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	roll, err := h.store.AddRoll(id, models.DiceRoll{
		Player:  req.Player,
		Formula: res.Formula,
		Rolls:   res.Rolls,
		Mod:     res.Mod,
		Total:   res.Total,
	}, models.ActionDiceRoll)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(events.DiceRolled(id, roll)); err != nil {
			h.logger.Warn("publish dice roll", slog.String("room", id), slog.String("error", err.Error()))
		}
	}
	c.JSON(http.StatusCreated, roll)
}

func (h *SessionHandler) ListRolls(c *gin.Context) {
	listing(c, h, h.store.Rolls)
}
