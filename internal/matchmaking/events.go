package matchmaking

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventPresenceChanged  EventType = "PRESENCE_CHANGED"
	EventQueueChanged     EventType = "QUEUE_CHANGED"
	EventIncomingInvite   EventType = "INCOMING_INVITE"
	EventInviteDeclined   EventType = "INVITE_DECLINED"
	EventInviteRescinded  EventType = "INVITE_RESCINDED"
	EventCallStarted      EventType = "CALL_STARTED"
	EventSignal           EventType = "SIGNAL"
	EventChat             EventType = "CHAT"
	EventSocialShared     EventType = "SOCIAL_SHARED"
	EventPeerDisconnected EventType = "PEER_DISCONNECTED"
	EventSessionFinalized EventType = "SESSION_FINALIZED"
	EventMetricsUpdated   EventType = "METRICS_UPDATED"
)

// Event is a server to client notification produced by the engine.
type Event struct {
	Type    EventType
	Payload interface{}
}

// Conn is the live connection handle of a user. Deliver must not block.
type Conn interface {
	Deliver(evt Event)
}

type PresenceChangedPayload struct {
	UserID    uuid.UUID `json:"userId"`
	Online    bool      `json:"online"`
	Available bool      `json:"available"`
}

type QueueChangedPayload struct {
	TotalOnlineCount int `json:"totalOnlineCount"`
}

type InviterProfile struct {
	UserID      uuid.UUID `json:"userId"`
	DisplayName string    `json:"displayName"`
	Gender      string    `json:"gender"`
	Pronoun     string    `json:"pronoun"`
}

type IncomingInvitePayload struct {
	InviteID         uuid.UUID      `json:"inviteId"`
	From             InviterProfile `json:"from"`
	RequestedSeconds int            `json:"requestedSeconds"`
	ExpiresInSeconds int            `json:"expiresInSeconds"`
}

type InviteDeclinedPayload struct {
	InviteID *uuid.UUID `json:"inviteId,omitempty"`
	ToUserID uuid.UUID  `json:"toUserId"`
	Reason   Reason     `json:"reason"`
}

type InviteRescindedPayload struct {
	InviteID   uuid.UUID `json:"inviteId"`
	FromUserID uuid.UUID `json:"fromUserId"`
}

type CallStartedPayload struct {
	RoomID        uuid.UUID `json:"roomId"`
	PeerID        uuid.UUID `json:"peerId"`
	PeerName      string    `json:"peerName"`
	AgreedSeconds int       `json:"agreedSeconds"`
	Role          Role      `json:"role"`
	StartedAt     time.Time `json:"startedAt"`
}

type SignalPayload struct {
	RoomID     uuid.UUID       `json:"roomId"`
	FromUserID uuid.UUID       `json:"fromUserId"`
	Kind       SignalKind      `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
}

type ChatPayload struct {
	RoomID     uuid.UUID `json:"roomId"`
	FromUserID uuid.UUID `json:"fromUserId"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sentAt"`
}

type SocialSharedPayload struct {
	RoomID     uuid.UUID         `json:"roomId"`
	FromUserID uuid.UUID         `json:"fromUserId"`
	Handles    map[string]string `json:"handles"`
	SentAt     time.Time         `json:"sentAt"`
}

type PeerDisconnectedPayload struct {
	RoomID uuid.UUID `json:"roomId"`
	UserID uuid.UUID `json:"userId"`
}

type SessionFinalizedPayload struct {
	RoomID          uuid.UUID `json:"roomId"`
	DurationSeconds int       `json:"durationSeconds"`
	Recorded        bool      `json:"recorded"`
	Reason          EndReason `json:"reason"`
}

type MetricsUpdatedPayload struct {
	TotalCallSeconds int64 `json:"totalCallSeconds"`
	SessionCount     int   `json:"sessionCount"`
}

// Bus fans events out to every connected client. The in-process LocalBus is
// used for a single instance; a broker-backed implementation can replace it.
type Bus interface {
	Publish(evt Event)
	Subscribe(c Conn)
	Unsubscribe(c Conn)
}

// LocalBus delivers to the connections subscribed in this process. Like the
// rest of the engine it is only touched from the event loop, so it holds no lock.
type LocalBus struct {
	subs map[Conn]struct{}
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[Conn]struct{})}
}

func (b *LocalBus) Publish(evt Event) {
	for c := range b.subs {
		c.Deliver(evt)
	}
}

func (b *LocalBus) Subscribe(c Conn) {
	b.subs[c] = struct{}{}
}

func (b *LocalBus) Unsubscribe(c Conn) {
	delete(b.subs, c)
}

func (b *LocalBus) Len() int {
	return len(b.subs)
}
