package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/nezako-tabletop/internal/blob"
	"github.com/thereayou/nezako-tabletop/internal/dice"
	"github.com/thereayou/nezako-tabletop/internal/events"
	"github.com/thereayou/nezako-tabletop/internal/handlers/dto"
	"github.com/thereayou/nezako-tabletop/internal/store"
	"github.com/thereayou/nezako-tabletop/internal/websocket"
)

// BlobStore is the part of the upload storage the handlers need.
type BlobStore interface {
	Put(r io.Reader, originalName string) (blob.Ref, error)
	Path(name string) (string, error)
	List() ([]string, error)
}

// PresenceView reports the live connections of a room.
type PresenceView interface {
	RoomPresence(roomID string) []websocket.Presence
}

type SessionDeps struct {
	Store     *store.Store
	Blobs     BlobStore
	Roller    *dice.Roller
	Publisher events.Publisher
	Presence  PresenceView
	// MaxUpload caps the request body of the upload endpoints, in bytes.
	MaxUpload int64
	Logger    *slog.Logger
}

// SessionHandler serves the /sessions REST surface. Every room-scoped
// handler resolves the room before it looks at the body.
type SessionHandler struct {
	store     *store.Store
	blobs     BlobStore
	roller    *dice.Roller
	publisher events.Publisher
	presence  PresenceView
	maxUpload int64
	logger    *slog.Logger
}

func NewSessionHandler(deps SessionDeps) *SessionHandler {
	roller := deps.Roller
	if roller == nil {
		roller = dice.NewRoller(dice.Limits{})
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		store:     deps.Store,
		blobs:     deps.Blobs,
		roller:    roller,
		publisher: deps.Publisher,
		presence:  deps.Presence,
		maxUpload: deps.MaxUpload,
		logger:    logger,
	}
}

// requireRoom writes a 404 and returns false when the :id room is unknown.
func (h *SessionHandler) requireRoom(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !h.store.Exists(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": store.ErrRoomNotFound.Error()})
		return "", false
	}
	return id, true
}

// CreateRoom creates a room and records its master as the first player.
func (h *SessionHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	room, err := h.store.CreateRoom(req.Name, req.Master, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("room created", slog.String("room", room.ID), slog.Bool("protected", room.Protected))
	c.JSON(http.StatusCreated, dto.CreateRoomResponse{
		ID:        room.ID,
		Name:      room.Name,
		Master:    dto.PlayerInfo{ID: room.Master.ID, Name: room.Master.Name},
		CreatedAt: room.CreatedAt,
		Protected: room.Protected,
	})
}

func (h *SessionHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ListRooms())
}

// JoinRoom adds a player to the roster after the password check.
func (h *SessionHandler) JoinRoom(c *gin.Context) {
	id, ok := h.requireRoom(c)
	if !ok {
		return
	}

	var req dto.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	summary, player, err := h.store.JoinRoom(id, req.Player, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.JoinRoomResponse{Room: summary, Player: player})
}

func (h *SessionHandler) SendChat(c *gin.Context) {
	id, ok := h.requireRoom(c)
	if !ok {
		return
	}

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.store.AddChatMessage(id, req.Player, req.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *SessionHandler) ListChat(c *gin.Context) {
	listing(c, h, h.store.Chat)
}

func (h *SessionHandler) ListLogs(c *gin.Context) {
	listing(c, h, h.store.Logs)
}

func (h *SessionHandler) ListPlayers(c *gin.Context) {
	listing(c, h, h.store.Players)
}

// Presence lists the connections currently subscribed to the room. It is
// derived from the broadcaster and independent of the roster.
func (h *SessionHandler) Presence(c *gin.Context) {
	id, ok := h.requireRoom(c)
	if !ok {
		return
	}
	out := []websocket.Presence{}
	if h.presence != nil {
		out = append(out, h.presence.RoomPresence(id)...)
	}
	c.JSON(http.StatusOK, out)
}

// listing writes the full ordered sequence returned by read.
func listing[T any](c *gin.Context, h *SessionHandler, read func(id string) ([]T, error)) {
	items, err := read(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
