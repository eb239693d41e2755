package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/thereayou/nezako-tabletop/internal/models"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (s *recordingSink) Write(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return s.err
}

func (s *recordingSink) snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestForwarderDeliversInOrder(t *testing.T) {
	sink := &recordingSink{}
	failing := &recordingSink{err: errors.New("unavailable")}
	fwd := NewForwarder(64, discardLogger(), failing, sink)
	go fwd.Run()

	actions := []models.Action{
		models.ActionRoomCreated,
		models.ActionPlayerJoin,
		models.ActionChatMessage,
		models.ActionDiceRoll,
	}
	for _, a := range actions {
		fwd.Enqueue(Entry{RoomID: "r1", LogEntry: models.LogEntry{Action: a, Timestamp: time.Now()}})
	}
	fwd.Stop()

	got := sink.snapshot()
	if len(got) != len(actions) {
		t.Fatalf("expected %d entries, got %d", len(actions), len(got))
	}
	for i, a := range actions {
		if got[i].Action != a {
			t.Fatalf("entry %d: expected %s, got %s", i, a, got[i].Action)
		}
	}
	if len(failing.snapshot()) != len(actions) {
		t.Fatalf("failing sink should still see every entry")
	}
}

func TestForwarderWithoutSinksIsNoop(t *testing.T) {
	fwd := NewForwarder(1, discardLogger())
	for i := 0; i < 10; i++ {
		fwd.Enqueue(Entry{RoomID: "r1"})
	}
	go fwd.Run()
	fwd.Stop()
}

func TestStreamValues(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	values, err := streamValues(Entry{
		RoomID: "room-1",
		LogEntry: models.LogEntry{
			Action:    models.ActionChatMessage,
			Payload:   models.ChatMessage{ID: "c1", Player: "Bob", Message: "hi"},
			Timestamp: ts,
		},
	})
	if err != nil {
		t.Fatalf("streamValues: %v", err)
	}
	if values["room"] != "room-1" || values["action"] != "chat_message" {
		t.Fatalf("unexpected values: %v", values)
	}
	if values["timestamp"] != "2024-05-01T12:00:00Z" {
		t.Fatalf("unexpected timestamp: %v", values["timestamp"])
	}
	var payload models.ChatMessage
	if err := json.Unmarshal([]byte(values["payload"].(string)), &payload); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if payload.Message != "hi" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
