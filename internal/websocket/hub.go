package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dom/speed-dating/internal/domain"
	"github.com/dom/speed-dating/internal/matchmaking"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var ErrHubStopped = errors.New("hub stopped")

// UserWarmer loads a user into the shared cache the engine reads from.
type UserWarmer interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type ThrottleRecorder interface {
	EventThrottled()
}

type nopThrottle struct{}

func (nopThrottle) EventThrottled() {}

type Config struct {
	EventsPerSecond float64
	EventBurst      int
	Throttle        ThrottleRecorder
	Logger          *slog.Logger
}

type command struct {
	client *Client
	msg    *Message
}

type queueQuery struct {
	requesterID uuid.UUID
	hidden      map[uuid.UUID]bool
	introduced  map[uuid.UUID]bool
	reply       chan matchmaking.QueueView
}

// Hub owns the matchmaking engine. Run is the only goroutine that calls into
// it; clients and HTTP handlers reach it through channels.
type Hub struct {
	engine     *matchmaking.Engine
	users      UserWarmer
	throttled  ThrottleRecorder
	eventRate  rate.Limit
	eventBurst int
	logger     *slog.Logger

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	inbound    chan command
	queries    chan queueQuery
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopOnce   sync.Once
}

func NewHub(engine *matchmaking.Engine, users UserWarmer, cfg Config) *Hub {
	if cfg.Throttle == nil {
		cfg.Throttle = nopThrottle{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.EventsPerSecond <= 0 {
		cfg.EventsPerSecond = 20
	}
	if cfg.EventBurst <= 0 {
		cfg.EventBurst = 40
	}
	return &Hub{
		engine:     engine,
		users:      users,
		throttled:  cfg.Throttle,
		eventRate:  rate.Limit(cfg.EventsPerSecond),
		eventBurst: cfg.EventBurst,
		logger:     cfg.Logger,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan command, 256),
		queries:    make(chan queueQuery),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.shutdown()
			return

		case client := <-h.register:
			h.clients[client] = true
			h.engine.Connect(client.userID, client)
			h.logger.Info("client connected", slog.String("user_id", client.userID.String()))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				if h.engine.Disconnect(client.userID, client) {
					h.logger.Info("client disconnected", slog.String("user_id", client.userID.String()))
				}
			}

		case cmd := <-h.inbound:
			if h.clients[cmd.client] {
				h.handleCommand(cmd.client, cmd.msg)
			}

		case q := <-h.queries:
			q.reply <- h.engine.QueueView(q.requesterID, q.hidden, q.introduced)
		}
	}
}

// shutdown ends every live session as a disconnect so finished calls still
// reach history before the process exits.
func (h *Hub) shutdown() {
	for client := range h.clients {
		client.Close()
		h.engine.Disconnect(client.userID, client)
	}
	h.clients = make(map[*Client]bool)
}

// Stop shuts the hub down and blocks until Run has returned.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) dispatch(client *Client, msg *Message) {
	select {
	case h.inbound <- command{client: client, msg: msg}:
	case <-h.done:
	}
}

// QueueView asks the loop for a queue snapshot.
func (h *Hub) QueueView(ctx context.Context, requesterID uuid.UUID, hidden, introduced map[uuid.UUID]bool) (matchmaking.QueueView, error) {
	q := queueQuery{
		requesterID: requesterID,
		hidden:      hidden,
		introduced:  introduced,
		reply:       make(chan matchmaking.QueueView, 1),
	}

	select {
	case h.queries <- q:
	case <-h.done:
		return matchmaking.QueueView{}, ErrHubStopped
	case <-ctx.Done():
		return matchmaking.QueueView{}, ctx.Err()
	}

	select {
	case view := <-q.reply:
		return view, nil
	case <-ctx.Done():
		return matchmaking.QueueView{}, ctx.Err()
	}
}
