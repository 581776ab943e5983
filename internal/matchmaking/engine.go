package matchmaking

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Options wires an Engine. Users and History are required; the rest default.
type Options struct {
	Users     UserDirectory
	History   HistorySink
	Bus       Bus
	Recorder  Recorder
	Logger    *slog.Logger
	Now       func() time.Time
	NewID     func() uuid.UUID
	Sanitizer *Sanitizer
}

// Engine is the matchmaking core. It is not safe for concurrent use: every
// method must be called from one goroutine (the websocket Hub loop). That
// single-threaded guarantee is what lets the components use plain maps.
type Engine struct {
	Presence  *PresenceRegistry
	Cooldowns *CooldownLedger
	Invites   *Negotiator
	Rooms     *RoomManager
	Queue     *Queue

	bus    Bus
	logger *slog.Logger
}

func NewEngine(opts Options) *Engine {
	if opts.Bus == nil {
		opts.Bus = NewLocalBus()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.New
	}
	if opts.Sanitizer == nil {
		opts.Sanitizer = NewSanitizer()
	}

	presence := NewPresenceRegistry(opts.Bus, opts.Now, opts.Logger, opts.Recorder)
	cooldowns := NewCooldownLedger(opts.Now)
	rooms := &RoomManager{
		rooms:     make(map[uuid.UUID]*Room),
		byUser:    make(map[uuid.UUID]uuid.UUID),
		presence:  presence,
		cooldowns: cooldowns,
		users:     opts.Users,
		history:   opts.History,
		sanitizer: opts.Sanitizer,
		now:       opts.Now,
		newID:     opts.NewID,
		logger:    opts.Logger,
		recorder:  opts.Recorder,
	}
	invites := &Negotiator{
		invites:   make(map[uuid.UUID]*Invite),
		byPair:    make(map[invitePair]uuid.UUID),
		byUser:    make(map[uuid.UUID]uuid.UUID),
		presence:  presence,
		cooldowns: cooldowns,
		rooms:     rooms,
		users:     opts.Users,
		now:       opts.Now,
		newID:     opts.NewID,
		logger:    opts.Logger,
		recorder:  opts.Recorder,
	}

	return &Engine{
		Presence:  presence,
		Cooldowns: cooldowns,
		Invites:   invites,
		Rooms:     rooms,
		Queue:     &Queue{presence: presence, cooldowns: cooldowns, users: opts.Users},
		bus:       opts.Bus,
		logger:    opts.Logger,
	}
}

// Connect registers an authenticated connection. A newer connection for the
// same user replaces the old handle.
func (e *Engine) Connect(userID uuid.UUID, conn Conn) {
	if old := e.Presence.ConnOf(userID); old != nil && old != conn {
		e.bus.Unsubscribe(old)
	}
	e.bus.Subscribe(conn)
	e.Presence.SetOnline(userID, conn)
	e.logger.Info("user connected", slog.String("user_id", userID.String()))
}

// Disconnect handles a closed connection. It reports false when conn was
// already replaced by a newer one, in which case the user stays online.
func (e *Engine) Disconnect(userID uuid.UUID, conn Conn) bool {
	e.bus.Unsubscribe(conn)
	if !e.Presence.IsCurrent(userID, conn) {
		e.logger.Info("stale connection closed", slog.String("user_id", userID.String()))
		return false
	}
	e.goOffline(userID)
	e.logger.Info("user disconnected", slog.String("user_id", userID.String()))
	return true
}

// JoinPresence marks the user online again on conn, after a LeavePresence.
// It is a no-op when conn is already the user's live connection.
func (e *Engine) JoinPresence(userID uuid.UUID, conn Conn) {
	if e.Presence.IsCurrent(userID, conn) {
		return
	}
	e.Connect(userID, conn)
}

// LeavePresence behaves like a disconnect, but the socket stays open and
// keeps receiving broadcasts.
func (e *Engine) LeavePresence(userID uuid.UUID) {
	if !e.Presence.IsOnline(userID) {
		return
	}
	e.goOffline(userID)
}

func (e *Engine) goOffline(userID uuid.UUID) {
	e.Presence.SetOffline(userID)
	e.Invites.Withdraw(userID)
	e.Rooms.HandleDisconnect(userID)
}

// JoinQueue makes the user available. Users in a room stay busy.
func (e *Engine) JoinQueue(userID uuid.UUID) error {
	if _, ok := e.Rooms.RoomOf(userID); ok {
		return ErrAlreadyInRoom
	}
	return e.Presence.SetAvailable(userID, true)
}

func (e *Engine) LeaveQueue(userID uuid.UUID) error {
	return e.Presence.SetAvailable(userID, false)
}

// ParseTarget turns a client-supplied user id into a uuid. Malformed ids are
// an invite decline with reason invalid_target.
func ParseTarget(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, decline(ReasonInvalidTarget)
	}
	return id, nil
}

func (e *Engine) Invite(fromUserID, toUserID uuid.UUID, requestedSeconds int) (*Invite, error) {
	return e.Invites.Invite(fromUserID, toUserID, requestedSeconds)
}

func (e *Engine) Accept(actorID, inviteID uuid.UUID, requestedSeconds int) (*AcceptResult, error) {
	return e.Invites.Accept(actorID, inviteID, requestedSeconds)
}

func (e *Engine) Decline(actorID, inviteID uuid.UUID) error {
	return e.Invites.Decline(actorID, inviteID)
}

func (e *Engine) Rescind(fromUserID, toUserID uuid.UUID) error {
	return e.Invites.Rescind(fromUserID, toUserID)
}

func (e *Engine) JoinRoom(userID, roomID uuid.UUID) error {
	return e.Rooms.Rejoin(roomID, userID)
}

func (e *Engine) Signal(userID, roomID uuid.UUID, kind SignalKind, payload json.RawMessage) error {
	return e.Rooms.RelaySignal(roomID, userID, kind, payload)
}

func (e *Engine) Chat(userID, roomID uuid.UUID, text string) error {
	return e.Rooms.RelayChat(roomID, userID, text)
}

func (e *Engine) ShareSocial(userID, roomID uuid.UUID, handles map[string]string) error {
	return e.Rooms.ShareSocialHandles(roomID, userID, handles)
}

func (e *Engine) EndCall(userID, roomID uuid.UUID) error {
	return e.Rooms.EndCall(roomID, userID)
}

// QueueView answers a queue snapshot query. hidden and introduced come from
// collaborators and are read before the query reaches the loop, so they may
// lag slightly behind moderation.
func (e *Engine) QueueView(requesterID uuid.UUID, hidden, introduced map[uuid.UUID]bool) QueueView {
	return e.Queue.View(requesterID, hidden, introduced)
}
