package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dom/speed-dating/internal/domain"
	"github.com/dom/speed-dating/internal/matchmaking"
	"github.com/google/uuid"
)

// Clock is a manually advanced clock for engine tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// RecordingConn collects every event delivered to it.
type RecordingConn struct {
	mu     sync.Mutex
	events []matchmaking.Event
}

func NewRecordingConn() *RecordingConn {
	return &RecordingConn{}
}

func (c *RecordingConn) Deliver(evt matchmaking.Event) {
	c.mu.Lock()
	c.events = append(c.events, evt)
	c.mu.Unlock()
}

// OfType returns the delivered events of the given type, oldest first.
func (c *RecordingConn) OfType(t matchmaking.EventType) []matchmaking.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []matchmaking.Event
	for _, evt := range c.events {
		if evt.Type == t {
			out = append(out, evt)
		}
	}
	return out
}

// Last returns the newest event of the given type.
func (c *RecordingConn) Last(t matchmaking.EventType) (matchmaking.Event, bool) {
	events := c.OfType(t)
	if len(events) == 0 {
		return matchmaking.Event{}, false
	}
	return events[len(events)-1], true
}

func (c *RecordingConn) Reset() {
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
}

// MemoryUsers is an in-memory matchmaking.UserDirectory.
type MemoryUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[uuid.UUID]*domain.User)}
}

// Add creates a user with the given display name and returns it.
func (m *MemoryUsers) Add(displayName, gender string) *domain.User {
	user := &domain.User{ID: uuid.New(), DisplayName: displayName, Gender: gender}
	m.mu.Lock()
	m.users[user.ID] = user
	m.mu.Unlock()
	return user
}

func (m *MemoryUsers) Peek(id uuid.UUID) (*domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, false
	}
	cp := *user
	return &cp, true
}

// GetUser satisfies the websocket warmer and the auth service's user store.
func (m *MemoryUsers) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := m.Peek(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (m *MemoryUsers) AccrueCall(id uuid.UUID, seconds int64) (*domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, false
	}
	user.TotalCallSeconds += seconds
	user.SessionCount++
	cp := *user
	return &cp, true
}

// MemoryHistory is an in-memory matchmaking.HistorySink.
type MemoryHistory struct {
	mu      sync.Mutex
	records []*domain.ChatHistory
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (h *MemoryHistory) Append(records ...*domain.ChatHistory) {
	h.mu.Lock()
	h.records = append(h.records, records...)
	h.mu.Unlock()
}

func (h *MemoryHistory) Records() []*domain.ChatHistory {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*domain.ChatHistory, len(h.records))
	copy(out, h.records)
	return out
}

// EngineFixture bundles an engine with its fakes.
type EngineFixture struct {
	Engine  *matchmaking.Engine
	Clock   *Clock
	Users   *MemoryUsers
	History *MemoryHistory
	Bus     *matchmaking.LocalBus
}

func NewEngineFixture() *EngineFixture {
	f := &EngineFixture{
		Clock:   NewClock(),
		Users:   NewMemoryUsers(),
		History: NewMemoryHistory(),
		Bus:     matchmaking.NewLocalBus(),
	}
	f.Engine = matchmaking.NewEngine(matchmaking.Options{
		Users:   f.Users,
		History: f.History,
		Bus:     f.Bus,
		Now:     f.Clock.Now,
	})
	return f
}

// Online adds a user, connects them and puts them in the queue.
func (f *EngineFixture) Online(displayName string) (*domain.User, *RecordingConn) {
	user := f.Users.Add(displayName, "")
	conn := NewRecordingConn()
	f.Engine.Connect(user.ID, conn)
	if err := f.Engine.JoinQueue(user.ID); err != nil {
		panic(err)
	}
	return user, conn
}
