package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thereayou/nezako-tabletop/internal/dice"
	"github.com/thereayou/nezako-tabletop/internal/events"
	"github.com/thereayou/nezako-tabletop/internal/handlers/dto"
	"github.com/thereayou/nezako-tabletop/internal/models"
	"github.com/thereayou/nezako-tabletop/internal/store"
	"github.com/thereayou/nezako-tabletop/internal/websocket"
)

// MessageHandler processes the messages of one connection in arrival order.
// Only joinRoom and rollDice touch the room store; the rest is relayed.
type MessageHandler struct {
	store  *store.Store
	hub    *websocket.Hub
	roller *dice.Roller
	logger *slog.Logger
	now    func() time.Time
}

func NewMessageHandler(st *store.Store, hub *websocket.Hub, roller *dice.Roller, logger *slog.Logger) *MessageHandler {
	if roller == nil {
		roller = dice.NewRoller(dice.Limits{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageHandler{
		store:  st,
		hub:    hub,
		roller: roller,
		logger: logger,
		now:    time.Now,
	}
}

func (h *MessageHandler) HandleMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeJoinRoom:
		return h.handleJoin(client, msg)

	case websocket.TypeChatMessage:
		return h.handleChat(client, msg)

	case websocket.TypeTokenUpdate, websocket.TypeDrawing, websocket.TypeMeasurement:
		return h.handleRelay(client, msg)

	case websocket.TypeRollDice:
		return h.handleRoll(client, msg)

	default:
		return fmt.Errorf("%w: %s", websocket.ErrUnsupportedType, msg.Type)
	}
}

func (h *MessageHandler) handleJoin(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.JoinRoomPayload
	if err := decode(msg, &payload); err != nil {
		return err
	}
	payload.Player = strings.TrimSpace(payload.Player)
	if payload.RoomID == "" || payload.Player == "" {
		return websocket.ErrInvalidMessage
	}
	if !h.store.Exists(payload.RoomID) {
		return websocket.ErrRoomNotFound
	}
	return h.hub.JoinRoom(client, payload.RoomID, payload.Player)
}

// handleChat relays a chat line to the whole room, sender included. The line
// is not added to the stored chat history.
func (h *MessageHandler) handleChat(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.ChatPayload
	if err := decode(msg, &payload); err != nil {
		return err
	}
	if payload.Message == "" {
		return websocket.ErrInvalidMessage
	}
	player, err := h.member(client, payload.RoomID, payload.Player)
	if err != nil {
		return err
	}

	return h.hub.Publish(events.Event{
		Type:   events.ChatMessage,
		RoomID: payload.RoomID,
		Data: dto.ChatBroadcast{
			Player:    player,
			Message:   payload.Message,
			Timestamp: h.now(),
		},
	})
}

// handleRelay forwards tokenUpdate, drawing and measurement data unchanged.
func (h *MessageHandler) handleRelay(client *websocket.Client, msg *websocket.Message) error {
	var ref dto.RoomRef
	if err := decode(msg, &ref); err != nil {
		return err
	}
	if _, err := h.member(client, ref.RoomID, ""); err != nil {
		return err
	}
	return h.hub.Broadcast(ref.RoomID, msg.Type, msg.Data)
}

// handleRoll stores and broadcasts a roll. A formula that does not parse is
// dropped without a reply.
func (h *MessageHandler) handleRoll(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.RollPayload
	if err := decode(msg, &payload); err != nil {
		return err
	}
	player, err := h.member(client, payload.RoomID, payload.Player)
	if err != nil {
		return err
	}

	res, err := h.roller.Roll(payload.Formula)
	if err != nil {
		h.logger.Debug("ws dice roll dropped",
			slog.String("client", client.ID.String()),
			slog.String("room", payload.RoomID),
			slog.String("formula", payload.Formula),
			slog.String("error", err.Error()))
		return nil
	}

	roll, err := h.store.AddRoll(payload.RoomID, models.DiceRoll{
		Player:  player,
		Formula: res.Formula,
		Rolls:   res.Rolls,
		Mod:     res.Mod,
		Total:   res.Total,
	}, models.ActionDiceRollWS)
	if err != nil {
		return err
	}
	return h.hub.Publish(events.DiceRolled(payload.RoomID, roll))
}

// member checks that the connection joined roomID and resolves the player
// name, falling back to the name used at join time.
func (h *MessageHandler) member(client *websocket.Client, roomID, player string) (string, error) {
	if roomID == "" {
		return "", websocket.ErrInvalidMessage
	}
	if !client.IsInRoom(roomID) {
		return "", websocket.ErrUserNotInRoom
	}
	if player == "" {
		_, joined, _ := client.Room()
		player = joined
	}
	return player, nil
}

func decode(msg *websocket.Message, v any) error {
	if len(msg.Data) == 0 {
		return websocket.ErrInvalidMessage
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return websocket.ErrInvalidMessage
	}
	return nil
}
