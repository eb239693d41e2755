package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"

	"github.com/thereayou/nezako-tabletop/internal/config"
	"github.com/thereayou/nezako-tabletop/internal/models"
	"github.com/thereayou/nezako-tabletop/internal/websocket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Config{
		Port:              "0",
		GinMode:           gin.TestMode,
		UploadDir:         t.TempDir(),
		MaxUploadSize:     1 << 20,
		AllowedOrigins:    []string{"*"},
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		MaxDiceCount:      100,
		MaxDiceSides:      1000,
		MaxDiceMod:        1000,
		AuditBuffer:       16,
	}
	srv, err := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Start()
	ts := httptest.NewServer(srv.Router)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return ts
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func createRoom(t *testing.T, base string) string {
	t.Helper()
	var created struct {
		ID string `json:"id"`
	}
	if code := postJSON(t, base+"/sessions", map[string]string{"name": "Dungeon", "master": "Alice"}, &created); code != http.StatusCreated {
		t.Fatalf("create room: %d", code)
	}
	return created.ID
}

func dial(t *testing.T, base string) *gws.Conn {
	t.Helper()
	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(base, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendWS(t *testing.T, conn *gws.Conn, typ websocket.MessageType, data any) {
	t.Helper()
	raw, _ := json.Marshal(data)
	if err := conn.WriteJSON(websocket.Message{Type: typ, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readWS(t *testing.T, conn *gws.Conn) websocket.Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

// waitPresence polls the presence view until n connections joined the room.
func waitPresence(t *testing.T, base, roomID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var got []websocket.Presence
		getJSON(t, base+"/sessions/"+roomID+"/presence", &got)
		if len(got) == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("room %s never reached %d connections", roomID, n)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	var body map[string]any
	if code := getJSON(t, ts.URL+"/healthz", &body); code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("healthz: %d %v", code, body)
	}
}

func TestRollBroadcastReachesSubscriber(t *testing.T) {
	ts := newTestServer(t)
	roomID := createRoom(t, ts.URL)

	conn := dial(t, ts.URL)
	sendWS(t, conn, websocket.TypeJoinRoom, map[string]string{"roomId": roomID, "player": "Alice"})
	waitPresence(t, ts.URL, roomID, 1)

	var roll models.DiceRoll
	code := postJSON(t, ts.URL+"/sessions/"+roomID+"/roll", map[string]string{"player": "Bob", "formula": "2d6+1"}, &roll)
	if code != http.StatusCreated {
		t.Fatalf("roll: %d", code)
	}

	msg := readWS(t, conn)
	if msg.Type != websocket.TypeDiceRoll {
		t.Fatalf("expected diceRoll, got %s", msg.Type)
	}
	var got models.DiceRoll
	_ = json.Unmarshal(msg.Data, &got)
	if got.Total != roll.Total || got.ID != roll.ID {
		t.Fatalf("broadcast %+v differs from response %+v", got, roll)
	}
}

func TestChatAndPresenceOverWebsocket(t *testing.T) {
	ts := newTestServer(t)
	roomID := createRoom(t, ts.URL)

	a := dial(t, ts.URL)
	sendWS(t, a, websocket.TypeJoinRoom, map[string]string{"roomId": roomID, "player": "Alice"})
	waitPresence(t, ts.URL, roomID, 1)

	b := dial(t, ts.URL)
	sendWS(t, b, websocket.TypeJoinRoom, map[string]string{"roomId": roomID, "player": "Bob"})
	if msg := readWS(t, a); msg.Type != websocket.TypePlayerJoined {
		t.Fatalf("expected playerJoined, got %s", msg.Type)
	}

	sendWS(t, a, websocket.TypeChatMessage, map[string]string{"roomId": roomID, "player": "Alice", "message": "hi"})
	for _, conn := range []*gws.Conn{a, b} {
		msg := readWS(t, conn)
		if msg.Type != websocket.TypeChatMessage || !strings.Contains(string(msg.Data), `"message":"hi"`) {
			t.Fatalf("unexpected chat event: %s %s", msg.Type, msg.Data)
		}
	}

	b.Close()
	msg := readWS(t, a)
	if msg.Type != websocket.TypePlayerLeft || !strings.Contains(string(msg.Data), `"name":"Bob"`) {
		t.Fatalf("expected playerLeft for Bob, got %s %s", msg.Type, msg.Data)
	}
	waitPresence(t, ts.URL, roomID, 1)
}

func TestWebsocketErrorsGoToSenderOnly(t *testing.T) {
	ts := newTestServer(t)
	roomID := createRoom(t, ts.URL)

	conn := dial(t, ts.URL)
	sendWS(t, conn, websocket.TypeJoinRoom, map[string]string{"roomId": "missing", "player": "Alice"})
	msg := readWS(t, conn)
	if msg.Type != websocket.TypeError || !strings.Contains(string(msg.Data), "room not found") {
		t.Fatalf("expected room-not-found error, got %s %s", msg.Type, msg.Data)
	}

	if err := conn.WriteMessage(gws.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readWS(t, conn); msg.Type != websocket.TypeError {
		t.Fatalf("expected error for malformed frame, got %s", msg.Type)
	}

	sendWS(t, conn, websocket.TypeChatMessage, map[string]string{"roomId": roomID, "message": "hi"})
	if msg := readWS(t, conn); msg.Type != websocket.TypeError {
		t.Fatalf("expected error before join, got %s", msg.Type)
	}
}
