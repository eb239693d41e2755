package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/thereayou/nezako-tabletop/internal/events"
)

// MessageType names an event on the wire.
type MessageType string

const (
	// client -> server
	TypeJoinRoom    MessageType = "joinRoom"
	TypeRollDice    MessageType = "rollDice"
	TypeChatMessage MessageType = events.ChatMessage
	TypeTokenUpdate MessageType = events.TokenUpdate
	TypeDrawing     MessageType = events.Drawing
	TypeMeasurement MessageType = events.Measurement

	// server -> client
	TypePlayerJoined MessageType = events.PlayerJoined
	TypePlayerLeft   MessageType = events.PlayerLeft
	TypeDiceRoll     MessageType = events.DiceRoll
	TypeError        MessageType = events.Error
)

// Message is the envelope for both directions.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type Client struct {
	ID   uuid.UUID
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub

	mu     sync.RWMutex
	room   string
	player string

	evictOnce sync.Once
}

// Presence is one live connection in a room.
type Presence struct {
	ConnectionID uuid.UUID `json:"connectionId"`
	Player       string    `json:"player"`
}

type Hub struct {
	clients map[uuid.UUID]*Client

	// subscriber groups, keyed by room id
	rooms map[string]map[uuid.UUID]*Client

	register   chan registration
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		rooms:      make(map[string]map[uuid.UUID]*Client),
		register:   make(chan registration),
		unregister: make(chan *Client),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run serializes registration changes until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case reg := <-h.register:
			if h.ctx.Err() != nil {
				return
			}
			h.registerClient(reg.client)
			close(reg.done)
		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// Stop closes every connection. Pending unregistrations are abandoned.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
		delete(h.clients, id)
	}
	h.rooms = make(map[string]map[uuid.UUID]*Client)
}

type registration struct {
	client *Client
	done   chan struct{}
}

// Register returns once the client can join rooms.
func (h *Hub) Register(client *Client) error {
	if h.ctx.Err() != nil {
		return ErrHubStopped
	}
	reg := registration{client: client, done: make(chan struct{})}
	select {
	case h.register <- reg:
	case <-h.ctx.Done():
		return ErrHubStopped
	}
	select {
	case <-reg.done:
		return nil
	case <-h.ctx.Done():
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return
	}
	h.clients[client.ID] = client
	h.logger.Info("ws connected", slog.String("client", client.ID.String()), slog.Int("clients", len(h.clients)))
}

// unregisterClient runs once per client: the second call finds nothing to do,
// so the leave notice cannot be duplicated.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	h.leaveRoomUnsafe(client)
	delete(h.clients, client.ID)
	close(client.Send)

	h.logger.Info("ws disconnected", slog.String("client", client.ID.String()), slog.Int("clients", len(h.clients)))
}

// JoinRoom subscribes the client to roomID under the given player name. A client
// belongs to at most one room; joining another one leaves the previous room.
func (h *Hub) JoinRoom(client *Client, roomID, player string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return ErrNotRegistered
	}
	h.leaveRoomUnsafe(client)

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[uuid.UUID]*Client)
	}
	h.rooms[roomID][client.ID] = client

	client.mu.Lock()
	client.room = roomID
	client.player = player
	client.mu.Unlock()

	if data, err := encode(events.PlayerJoinedEvent(roomID, player)); err == nil {
		h.broadcastToRoomExcept(roomID, data, client.ID)
	}

	h.logger.Info("ws joined room",
		slog.String("client", client.ID.String()),
		slog.String("room", roomID),
		slog.Int("peers", len(h.rooms[roomID])))
	return nil
}

func (h *Hub) leaveRoomUnsafe(client *Client) {
	client.mu.Lock()
	roomID, player := client.room, client.player
	client.room, client.player = "", ""
	client.mu.Unlock()

	if roomID == "" {
		return
	}
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(room, client.ID)
	if len(room) == 0 {
		delete(h.rooms, roomID)
		return
	}
	if data, err := encode(events.PlayerLeftEvent(roomID, player)); err == nil {
		h.broadcastToRoomExcept(roomID, data, client.ID)
	}
}

// Publish delivers a domain event to every subscriber of its room.
func (h *Hub) Publish(ev events.Event) error {
	data, err := encode(ev)
	if err != nil {
		return err
	}
	h.SendToRoom(ev.RoomID, data)
	return nil
}

// Broadcast wraps an already-encoded payload in an envelope and sends it to
// the whole room.
func (h *Hub) Broadcast(roomID string, msgType MessageType, payload json.RawMessage) error {
	data, err := json.Marshal(Message{Type: msgType, Data: payload})
	if err != nil {
		return err
	}
	h.SendToRoom(roomID, data)
	return nil
}

// SendToRoom queues message for every subscriber of roomID, sender included.
func (h *Hub) SendToRoom(roomID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.broadcastToRoomExcept(roomID, message, uuid.Nil)
}

// SendToClient queues message for one registered client.
func (h *Hub) SendToClient(client *Client, message []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[client.ID]; !ok {
		return ErrNotRegistered
	}
	select {
	case client.Send <- message:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (h *Hub) broadcastToRoomExcept(roomID string, message []byte, excludeID uuid.UUID) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	for _, client := range room {
		if client.ID == excludeID {
			continue
		}
		select {
		case client.Send <- message:
		default:
			h.evict(client, roomID)
		}
	}
}

// evict disconnects a subscriber whose queue is full. The client sees its
// connection close and has to rejoin, rather than carrying on with a gap in
// the event stream. Safe to call with h.mu held.
func (h *Hub) evict(client *Client, roomID string) {
	client.evictOnce.Do(func() {
		h.logger.Warn("client send queue full, disconnecting",
			slog.String("client", client.ID.String()),
			slog.String("room", roomID))
		go h.Unregister(client)
	})
}

// RoomPresence lists the live connections of a room, ordered by player name.
func (h *Hub) RoomPresence(roomID string) []Presence {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[roomID]
	out := make([]Presence, 0, len(room))
	for _, client := range room {
		client.mu.RLock()
		out = append(out, Presence{ConnectionID: client.ID, Player: client.player})
		client.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Player == out[j].Player {
			return out[i].ConnectionID.String() < out[j].ConnectionID.String()
		}
		return out[i].Player < out[j].Player
	})
	return out
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(ev events.Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: MessageType(ev.Type), Data: payload})
}
