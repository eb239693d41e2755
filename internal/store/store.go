// Package store owns the in-memory state of every room. Each mutation appends
// its record and the matching log entry while holding the room's lock, so
// readers never observe one without the other.
package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/nezako-tabletop/internal/audit"
	"github.com/thereayou/nezako-tabletop/internal/models"
)

// Recorder receives every log entry after it is appended to a room.
type Recorder interface {
	Enqueue(entry audit.Entry)
}

type Option func(*Store)

// WithRecorder forwards log entries to r.
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPasswordCost sets the bcrypt cost used for room passwords.
func WithPasswordCost(cost int) Option {
	return func(s *Store) { s.passwordCost = cost }
}

type Store struct {
	mu    sync.RWMutex
	rooms map[string]*roomState

	recorder     Recorder
	now          func() time.Time
	passwordCost int
}

type roomState struct {
	mu           sync.Mutex
	room         models.Room
	passwordHash []byte
}

func New(opts ...Option) *Store {
	s := &Store{
		rooms:        make(map[string]*roomState),
		now:          time.Now,
		passwordCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newID() string {
	return uuid.NewString()
}

// CreateRoom registers a new room with the master as its first player.
func (s *Store) CreateRoom(name, master, password string) (models.Room, error) {
	var hash []byte
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
		if err != nil {
			if errors.Is(err, bcrypt.ErrPasswordTooLong) {
				return models.Room{}, ErrInvalidPassword
			}
			return models.Room{}, err
		}
		hash = h
	}

	now := s.now()
	masterPlayer := models.Player{ID: newID(), Name: master, JoinedAt: now}
	state := &roomState{
		passwordHash: hash,
		room: models.Room{
			ID:           newID(),
			Name:         name,
			Master:       masterPlayer,
			Protected:    hash != nil,
			CreatedAt:    now,
			Players:      []models.Player{masterPlayer},
			Chat:         []models.ChatMessage{},
			Maps:         []models.Map{},
			Tokens:       []models.Token{},
			Drawings:     []models.Drawing{},
			Measurements: []models.Measurement{},
			Rolls:        []models.DiceRoll{},
			Logs:         []models.LogEntry{},
		},
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	s.mu.Lock()
	s.rooms[state.room.ID] = state
	s.mu.Unlock()

	s.record(state, models.ActionRoomCreated, map[string]any{
		"name":   name,
		"master": masterPlayer,
	})
	return cloneRoom(&state.room), nil
}

func (s *Store) lookup(id string) (*roomState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return state, nil
}

// Exists reports whether a room with the id was created.
func (s *Store) Exists(id string) bool {
	_, err := s.lookup(id)
	return err == nil
}

// GetRoom returns a snapshot of the room.
func (s *Store) GetRoom(id string) (models.Room, error) {
	state, err := s.lookup(id)
	if err != nil {
		return models.Room{}, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return cloneRoom(&state.room), nil
}

// ListRooms returns the public summaries ordered by creation time.
func (s *Store) ListRooms() []models.RoomSummary {
	s.mu.RLock()
	states := make([]*roomState, 0, len(s.rooms))
	for _, state := range s.rooms {
		states = append(states, state)
	}
	s.mu.RUnlock()

	summaries := make([]models.RoomSummary, 0, len(states))
	for _, state := range states {
		state.mu.Lock()
		summaries = append(summaries, state.room.Summary())
		state.mu.Unlock()
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries
}

// Authorize passes when the room has no password or the supplied value matches.
func (s *Store) Authorize(id, password string) error {
	state, err := s.lookup(id)
	if err != nil {
		return err
	}
	return state.authorize(password)
}

// maxPasswordLen is the bcrypt input limit. bcrypt ignores bytes past it, so
// longer candidates can never be an exact match.
const maxPasswordLen = 72

// passwordHash is immutable after creation, so it is read without the room lock.
func (st *roomState) authorize(password string) error {
	if st.passwordHash == nil {
		return nil
	}
	if len(password) > maxPasswordLen {
		return ErrForbidden
	}
	if bcrypt.CompareHashAndPassword(st.passwordHash, []byte(password)) != nil {
		return ErrForbidden
	}
	return nil
}

// JoinRoom checks the password and appends a new player to the roster.
func (s *Store) JoinRoom(id, name, password string) (models.RoomSummary, models.Player, error) {
	state, err := s.lookup(id)
	if err != nil {
		return models.RoomSummary{}, models.Player{}, err
	}
	if err := state.authorize(password); err != nil {
		return models.RoomSummary{}, models.Player{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	player := models.Player{ID: newID(), Name: name, JoinedAt: s.now()}
	state.room.Players = append(state.room.Players, player)
	s.record(state, models.ActionPlayerJoin, player)
	return state.room.Summary(), player, nil
}

func (s *Store) AddChatMessage(id, player, message string) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := s.mutate(id, func(st *roomState) error {
		msg = models.ChatMessage{ID: newID(), Player: player, Message: message, Timestamp: s.now()}
		st.room.Chat = append(st.room.Chat, msg)
		s.record(st, models.ActionChatMessage, msg)
		return nil
	})
	return msg, err
}

// AddMap stores a map record. ID and UploadedAt are assigned here.
func (s *Store) AddMap(id string, m models.Map) (models.Map, error) {
	err := s.mutate(id, func(st *roomState) error {
		m.ID = newID()
		m.UploadedAt = s.now()
		st.room.Maps = append(st.room.Maps, m)
		s.record(st, models.ActionMapUploaded, m)
		return nil
	})
	return m, err
}

// AddToken stores a token record. Zero dimensions fall back to the defaults.
func (s *Store) AddToken(id string, t models.Token) (models.Token, error) {
	err := s.mutate(id, func(st *roomState) error {
		t.ID = newID()
		t.UploadedAt = s.now()
		if t.Width == 0 {
			t.Width = models.DefaultTokenWidth
		}
		if t.Height == 0 {
			t.Height = models.DefaultTokenHeight
		}
		st.room.Tokens = append(st.room.Tokens, t)
		s.record(st, models.ActionTokenUploaded, t)
		return nil
	})
	return t, err
}

// UpdateToken applies the patch in place. Last write wins.
func (s *Store) UpdateToken(id, tokenID string, patch models.TokenPatch) (models.Token, error) {
	var updated models.Token
	err := s.mutate(id, func(st *roomState) error {
		for i := range st.room.Tokens {
			if st.room.Tokens[i].ID != tokenID {
				continue
			}
			if patch.Empty() {
				return ErrEmptyPatch
			}
			tok := &st.room.Tokens[i]
			patch.Apply(tok)
			now := s.now()
			tok.UpdatedAt = &now
			updated = *tok
			s.record(st, models.ActionTokenUpdated, updated)
			return nil
		}
		return ErrTokenNotFound
	})
	return updated, err
}

// AddDrawing stores a drawing, filling in default color and width.
func (s *Store) AddDrawing(id string, d models.Drawing) (models.Drawing, error) {
	err := s.mutate(id, func(st *roomState) error {
		d.ID = newID()
		d.Timestamp = s.now()
		if d.Color == "" {
			d.Color = models.DefaultDrawingColor
		}
		if d.Width == 0 {
			d.Width = models.DefaultStrokeWidth
		}
		d.Points = append([]models.Point(nil), d.Points...)
		st.room.Drawings = append(st.room.Drawings, d)
		s.record(st, models.ActionDrawingAdded, d)
		return nil
	})
	return d, err
}

// AddMeasurement stores a ruler measurement and computes its distance.
func (s *Store) AddMeasurement(id string, m models.Measurement) (models.Measurement, error) {
	err := s.mutate(id, func(st *roomState) error {
		m.ID = newID()
		m.Timestamp = s.now()
		m.Distance = m.Length()
		if m.Color == "" {
			m.Color = models.DefaultMeasurementColor
		}
		if m.Width == 0 {
			m.Width = models.DefaultStrokeWidth
		}
		st.room.Measurements = append(st.room.Measurements, m)
		s.record(st, models.ActionMeasurementAdded, m)
		return nil
	})
	return m, err
}

// AddRoll stores a dice roll under the given action tag (dice_roll for the
// HTTP endpoint, dice_roll_ws for the websocket path).
func (s *Store) AddRoll(id string, r models.DiceRoll, action models.Action) (models.DiceRoll, error) {
	err := s.mutate(id, func(st *roomState) error {
		r.ID = newID()
		r.Timestamp = s.now()
		r.Rolls = append([]int(nil), r.Rolls...)
		st.room.Rolls = append(st.room.Rolls, r)
		s.record(st, action, r)
		return nil
	})
	return r, err
}

// Token returns one token of the room.
func (s *Store) Token(id, tokenID string) (models.Token, error) {
	state, err := s.lookup(id)
	if err != nil {
		return models.Token{}, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	for _, tok := range state.room.Tokens {
		if tok.ID == tokenID {
			return tok, nil
		}
	}
	return models.Token{}, ErrTokenNotFound
}

func (s *Store) Players(id string) ([]models.Player, error) {
	return read(s, id, func(r *models.Room) []models.Player { return r.Players })
}

func (s *Store) Chat(id string) ([]models.ChatMessage, error) {
	return read(s, id, func(r *models.Room) []models.ChatMessage { return r.Chat })
}

func (s *Store) Maps(id string) ([]models.Map, error) {
	return read(s, id, func(r *models.Room) []models.Map { return r.Maps })
}

func (s *Store) Tokens(id string) ([]models.Token, error) {
	return read(s, id, func(r *models.Room) []models.Token { return r.Tokens })
}

func (s *Store) Drawings(id string) ([]models.Drawing, error) {
	return read(s, id, func(r *models.Room) []models.Drawing { return r.Drawings })
}

func (s *Store) Measurements(id string) ([]models.Measurement, error) {
	return read(s, id, func(r *models.Room) []models.Measurement { return r.Measurements })
}

func (s *Store) Rolls(id string) ([]models.DiceRoll, error) {
	return read(s, id, func(r *models.Room) []models.DiceRoll { return r.Rolls })
}

func (s *Store) Logs(id string) ([]models.LogEntry, error) {
	return read(s, id, func(r *models.Room) []models.LogEntry { return r.Logs })
}

func (s *Store) mutate(id string, fn func(*roomState) error) error {
	state, err := s.lookup(id)
	if err != nil {
		return err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return fn(state)
}

// record must be called with the room lock held.
func (s *Store) record(st *roomState, action models.Action, payload any) {
	entry := models.LogEntry{Action: action, Payload: payload, Timestamp: s.now()}
	st.room.Logs = append(st.room.Logs, entry)
	if s.recorder != nil {
		s.recorder.Enqueue(audit.Entry{RoomID: st.room.ID, LogEntry: entry})
	}
}

func read[T any](s *Store, id string, pick func(*models.Room) []T) ([]T, error) {
	state, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return append(make([]T, 0, len(pick(&state.room))), pick(&state.room)...), nil
}

func cloneRoom(r *models.Room) models.Room {
	c := *r
	c.Players = append([]models.Player{}, r.Players...)
	c.Chat = append([]models.ChatMessage{}, r.Chat...)
	c.Maps = append([]models.Map{}, r.Maps...)
	c.Tokens = append([]models.Token{}, r.Tokens...)
	c.Drawings = append([]models.Drawing{}, r.Drawings...)
	c.Measurements = append([]models.Measurement{}, r.Measurements...)
	c.Rolls = append([]models.DiceRoll{}, r.Rolls...)
	c.Logs = append([]models.LogEntry{}, r.Logs...)
	return c
}
