package handlers

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/nezako-tabletop/internal/dice"
	"github.com/thereayou/nezako-tabletop/internal/models"
	"github.com/thereayou/nezako-tabletop/internal/store"
	"github.com/thereayou/nezako-tabletop/internal/websocket"
)

type wsEnv struct {
	store   *store.Store
	hub     *websocket.Hub
	handler *MessageHandler
	roomID  string
}

func newWSEnv(t *testing.T) *wsEnv {
	t.Helper()
	st := store.New(store.WithPasswordCost(bcrypt.MinCost))
	hub := websocket.NewHub(discardLogger())
	go hub.Run()
	t.Cleanup(hub.Stop)

	room, err := st.CreateRoom("Dungeon", "Alice", "")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	return &wsEnv{
		store:   st,
		hub:     hub,
		handler: NewMessageHandler(st, hub, dice.NewRoller(dice.Limits{MaxCount: 100, MaxSides: 1000}), discardLogger()),
		roomID:  room.ID,
	}
}

func (e *wsEnv) client(t *testing.T) *websocket.Client {
	t.Helper()
	c := websocket.NewClient(e.hub, nil)
	if err := e.hub.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	return c
}

func (e *wsEnv) send(c *websocket.Client, typ websocket.MessageType, data any) error {
	raw, _ := json.Marshal(data)
	return e.handler.HandleMessage(c, &websocket.Message{Type: typ, Data: raw})
}

func (e *wsEnv) join(t *testing.T, c *websocket.Client, player string) {
	t.Helper()
	if err := e.send(c, websocket.TypeJoinRoom, map[string]string{"roomId": e.roomID, "player": player}); err != nil {
		t.Fatalf("join %s: %v", player, err)
	}
}

func next(t *testing.T, c *websocket.Client) websocket.Message {
	t.Helper()
	select {
	case raw := <-c.Send:
		var msg websocket.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatalf("no message received")
	}
	return websocket.Message{}
}

func quiet(t *testing.T, c *websocket.Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("unexpected message: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	env := newWSEnv(t)
	c := env.client(t)

	err := env.send(c, websocket.TypeJoinRoom, map[string]string{"roomId": "missing", "player": "Bob"})
	if !errors.Is(err, websocket.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	err = env.send(c, websocket.TypeJoinRoom, map[string]string{"roomId": env.roomID})
	if !errors.Is(err, websocket.ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestChatReachesSenderAndPeers(t *testing.T) {
	env := newWSEnv(t)
	a, b := env.client(t), env.client(t)
	env.join(t, a, "Alice")
	env.join(t, b, "Bob")
	if msg := next(t, a); msg.Type != websocket.TypePlayerJoined {
		t.Fatalf("expected playerJoined, got %s", msg.Type)
	}

	if err := env.send(a, websocket.TypeChatMessage, map[string]string{"roomId": env.roomID, "player": "Alice", "message": "hello"}); err != nil {
		t.Fatalf("chat: %v", err)
	}
	for _, c := range []*websocket.Client{a, b} {
		msg := next(t, c)
		if msg.Type != websocket.TypeChatMessage {
			t.Fatalf("expected chatMessage, got %s", msg.Type)
		}
		var body struct {
			Player    string    `json:"player"`
			Message   string    `json:"message"`
			Timestamp time.Time `json:"timestamp"`
		}
		_ = json.Unmarshal(msg.Data, &body)
		if body.Player != "Alice" || body.Message != "hello" || body.Timestamp.IsZero() {
			t.Fatalf("unexpected chat payload: %+v", body)
		}
	}

	chat, _ := env.store.Chat(env.roomID)
	if len(chat) != 0 {
		t.Fatalf("websocket chat must not be stored, got %d", len(chat))
	}
}

func TestMessagesRequireMembership(t *testing.T) {
	env := newWSEnv(t)
	c := env.client(t)

	for _, typ := range []websocket.MessageType{
		websocket.TypeChatMessage, websocket.TypeTokenUpdate, websocket.TypeDrawing,
		websocket.TypeMeasurement, websocket.TypeRollDice,
	} {
		err := env.send(c, typ, map[string]string{"roomId": env.roomID, "player": "Eve", "message": "x", "formula": "d6"})
		if !errors.Is(err, websocket.ErrUserNotInRoom) {
			t.Fatalf("%s: expected ErrUserNotInRoom, got %v", typ, err)
		}
	}
	if err := env.send(c, "teleport", map[string]string{}); !errors.Is(err, websocket.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestRelayIsVerbatim(t *testing.T) {
	env := newWSEnv(t)
	a, b := env.client(t), env.client(t)
	env.join(t, a, "Alice")
	env.join(t, b, "Bob")
	next(t, a)

	data := map[string]any{"roomId": env.roomID, "tokenId": "t1", "x": 10.5, "y": 3.0, "extra": "kept"}
	if err := env.send(b, websocket.TypeTokenUpdate, data); err != nil {
		t.Fatalf("tokenUpdate: %v", err)
	}
	want, _ := json.Marshal(data)
	for _, c := range []*websocket.Client{a, b} {
		msg := next(t, c)
		if msg.Type != websocket.TypeTokenUpdate || string(msg.Data) != string(want) {
			t.Fatalf("unexpected relay: %s %s", msg.Type, msg.Data)
		}
	}

	logs, _ := env.store.Logs(env.roomID)
	if len(logs) != 1 {
		t.Fatalf("relayed messages must not log, got %d", len(logs))
	}
}

func TestWebsocketRollIsStoredAndBroadcast(t *testing.T) {
	env := newWSEnv(t)
	a, b := env.client(t), env.client(t)
	env.join(t, a, "Alice")
	env.join(t, b, "Bob")
	next(t, a)

	if err := env.send(b, websocket.TypeRollDice, map[string]string{"roomId": env.roomID, "formula": "3d8-2"}); err != nil {
		t.Fatalf("roll: %v", err)
	}
	var totals []int
	for _, c := range []*websocket.Client{a, b} {
		msg := next(t, c)
		if msg.Type != websocket.TypeDiceRoll {
			t.Fatalf("expected diceRoll, got %s", msg.Type)
		}
		var roll models.DiceRoll
		_ = json.Unmarshal(msg.Data, &roll)
		if roll.Player != "Bob" || len(roll.Rolls) != 3 || roll.Mod != -2 {
			t.Fatalf("unexpected roll: %+v", roll)
		}
		totals = append(totals, roll.Total)
	}
	if totals[0] != totals[1] {
		t.Fatalf("subscribers saw different totals: %v", totals)
	}

	logs, _ := env.store.Logs(env.roomID)
	if last := logs[len(logs)-1]; last.Action != models.ActionDiceRollWS {
		t.Fatalf("expected dice_roll_ws, got %s", last.Action)
	}
}

func TestWebsocketBadFormulaIsDropped(t *testing.T) {
	env := newWSEnv(t)
	a := env.client(t)
	env.join(t, a, "Alice")

	if err := env.send(a, websocket.TypeRollDice, map[string]string{"roomId": env.roomID, "formula": "d0"}); err != nil {
		t.Fatalf("expected silent drop, got %v", err)
	}
	quiet(t, a)

	rolls, _ := env.store.Rolls(env.roomID)
	logs, _ := env.store.Logs(env.roomID)
	if len(rolls) != 0 || len(logs) != 1 {
		t.Fatalf("dropped roll left state behind: %d rolls, %d logs", len(rolls), len(logs))
	}
}
