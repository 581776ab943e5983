package matchmaking

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/dom/speed-dating/internal/domain"
	"github.com/google/uuid"
)

// MinRecordedDuration filters accidental hangups: shorter calls leave no
// history, no cooldown and no lifetime accrual.
const MinRecordedDuration = 5 * time.Second

const disconnectNotice = "Call ended due to disconnection"

type Role string

const (
	RoleInitiator Role = "initiator"
	RoleAnswerer  Role = "answerer"
)

type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice_candidate"
)

func (k SignalKind) Valid() bool {
	switch k {
	case SignalOffer, SignalAnswer, SignalICECandidate:
		return true
	}
	return false
}

var ErrUnknownSignal = errors.New("unknown signal kind")

type EndReason string

const (
	EndReasonEnded        EndReason = "ended"
	EndReasonDisconnected EndReason = "disconnected"
)

// Room is an accepted call between a caller and a callee.
type Room struct {
	ID            uuid.UUID
	CallerID      uuid.UUID
	CalleeID      uuid.UUID
	StartedAt     time.Time
	AgreedSeconds int
	Messages      []domain.ChatLine
}

func (r *Room) Has(userID uuid.UUID) bool {
	return userID == r.CallerID || userID == r.CalleeID
}

func (r *Room) Peer(userID uuid.UUID) uuid.UUID {
	if userID == r.CallerID {
		return r.CalleeID
	}
	return r.CallerID
}

// RoleOf returns the signaling role fixed when the room was opened: the
// caller makes the offer, the callee answers.
func (r *Room) RoleOf(userID uuid.UUID) Role {
	if userID == r.CallerID {
		return RoleInitiator
	}
	return RoleAnswerer
}

func (r *Room) Participants() [2]uuid.UUID {
	return [2]uuid.UUID{r.CallerID, r.CalleeID}
}

// RoomManager owns active rooms: signaling relay, chat relay and finalization.
type RoomManager struct {
	rooms     map[uuid.UUID]*Room
	byUser    map[uuid.UUID]uuid.UUID
	presence  *PresenceRegistry
	cooldowns *CooldownLedger
	users     UserDirectory
	history   HistorySink
	sanitizer *Sanitizer
	now       func() time.Time
	newID     func() uuid.UUID
	logger    *slog.Logger
	recorder  Recorder
}

func (m *RoomManager) Len() int {
	return len(m.rooms)
}

func (m *RoomManager) Get(roomID uuid.UUID) (*Room, bool) {
	room, ok := m.rooms[roomID]
	return room, ok
}

func (m *RoomManager) RoomOf(userID uuid.UUID) (*Room, bool) {
	roomID, ok := m.byUser[userID]
	if !ok {
		return nil, false
	}
	return m.Get(roomID)
}

// Open creates a room and announces it to both participants with their roles.
func (m *RoomManager) Open(callerID, calleeID uuid.UUID, agreedSeconds int) *Room {
	room := &Room{
		ID:            m.newID(),
		CallerID:      callerID,
		CalleeID:      calleeID,
		StartedAt:     m.now(),
		AgreedSeconds: agreedSeconds,
	}
	m.rooms[room.ID] = room
	m.byUser[callerID] = room.ID
	m.byUser[calleeID] = room.ID

	for _, userID := range room.Participants() {
		m.presence.Send(userID, m.callStarted(room, userID))
	}

	m.recorder.CallStarted()
	m.recorder.ActiveRooms(len(m.rooms))
	m.logger.Info("room opened",
		slog.String("room_id", room.ID.String()),
		slog.String("caller_id", callerID.String()),
		slog.String("callee_id", calleeID.String()),
		slog.Int("agreed_seconds", agreedSeconds),
	)
	return room
}

// Rejoin re-sends the room announcement to a participant, for clients that
// reconnected and lost their role.
func (m *RoomManager) Rejoin(roomID, userID uuid.UUID) error {
	room, err := m.participantRoom(roomID, userID)
	if err != nil {
		return err
	}
	m.presence.Send(userID, m.callStarted(room, userID))
	return nil
}

// RelaySignal forwards an opaque WebRTC payload to the other participant.
func (m *RoomManager) RelaySignal(roomID, fromUserID uuid.UUID, kind SignalKind, payload json.RawMessage) error {
	if !kind.Valid() {
		return ErrUnknownSignal
	}
	room, err := m.participantRoom(roomID, fromUserID)
	if err != nil {
		return err
	}
	m.presence.Send(room.Peer(fromUserID), Event{Type: EventSignal, Payload: SignalPayload{
		RoomID:     room.ID,
		FromUserID: fromUserID,
		Kind:       kind,
		Payload:    payload,
	}})
	return nil
}

// RelayChat cleans the text, logs it and sends it to both participants,
// sender included. Text that cleans to nothing is dropped silently.
func (m *RoomManager) RelayChat(roomID, fromUserID uuid.UUID, raw string) error {
	room, err := m.participantRoom(roomID, fromUserID)
	if err != nil {
		return err
	}
	text := m.sanitizer.Chat(raw)
	if text == "" {
		return nil
	}

	line := domain.ChatLine{Kind: domain.ChatLineText, SenderID: fromUserID, Text: text, SentAt: m.now()}
	room.Messages = append(room.Messages, line)

	m.sendBoth(room, Event{Type: EventChat, Payload: ChatPayload{
		RoomID:     room.ID,
		FromUserID: fromUserID,
		Text:       text,
		SentAt:     line.SentAt,
	}})
	return nil
}

// ShareSocialHandles logs and broadcasts a participant's social handles.
func (m *RoomManager) ShareSocialHandles(roomID, fromUserID uuid.UUID, handles map[string]string) error {
	room, err := m.participantRoom(roomID, fromUserID)
	if err != nil {
		return err
	}

	copied := make(map[string]string, len(handles))
	for k, v := range handles {
		copied[k] = v
	}
	line := domain.ChatLine{Kind: domain.ChatLineSocial, SenderID: fromUserID, Handles: copied, SentAt: m.now()}
	room.Messages = append(room.Messages, line)

	m.sendBoth(room, Event{Type: EventSocialShared, Payload: SocialSharedPayload{
		RoomID:     room.ID,
		FromUserID: fromUserID,
		Handles:    copied,
		SentAt:     line.SentAt,
	}})
	return nil
}

// EndCall finalizes the room on a participant's request.
func (m *RoomManager) EndCall(roomID, actorID uuid.UUID) error {
	room, err := m.participantRoom(roomID, actorID)
	if err != nil {
		return err
	}
	m.finalize(room, EndReasonEnded, uuid.Nil)
	return nil
}

// HandleDisconnect finalizes the room the user is in, if any. The caller is
// expected to have marked the user offline first.
func (m *RoomManager) HandleDisconnect(userID uuid.UUID) {
	room, ok := m.RoomOf(userID)
	if !ok {
		return
	}
	m.finalize(room, EndReasonDisconnected, userID)
}

// finalize runs once per room. The room is unlinked before anything else, so
// a second call for the same room finds nothing and returns.
func (m *RoomManager) finalize(room *Room, reason EndReason, disconnectedID uuid.UUID) {
	if _, ok := m.rooms[room.ID]; !ok {
		return
	}
	delete(m.rooms, room.ID)
	for _, userID := range room.Participants() {
		if m.byUser[userID] == room.ID {
			delete(m.byUser, userID)
		}
	}

	now := m.now()
	elapsed := now.Sub(room.StartedAt)
	durationSeconds := int(elapsed / time.Second)

	if reason == EndReasonDisconnected {
		peerID := room.Peer(disconnectedID)
		m.presence.Send(peerID, Event{Type: EventPeerDisconnected, Payload: PeerDisconnectedPayload{
			RoomID: room.ID,
			UserID: disconnectedID,
		}})
		room.Messages = append(room.Messages, domain.ChatLine{
			Kind:     domain.ChatLineSystem,
			SenderID: disconnectedID,
			Text:     disconnectNotice,
			SentAt:   now,
		})
	}

	recorded := elapsed >= MinRecordedDuration
	if recorded {
		m.record(room, durationSeconds)
		m.cooldowns.Set(room.CallerID, room.CalleeID, now.Add(CallCooldown))
	}

	for _, userID := range room.Participants() {
		if m.presence.IsOnline(userID) {
			_ = m.presence.SetAvailable(userID, true)
		}
		m.presence.Send(userID, Event{Type: EventSessionFinalized, Payload: SessionFinalizedPayload{
			RoomID:          room.ID,
			DurationSeconds: durationSeconds,
			Recorded:        recorded,
			Reason:          reason,
		}})
	}

	m.recorder.CallFinalized(recorded, elapsed)
	m.recorder.ActiveRooms(len(m.rooms))
	m.logger.Info("room finalized",
		slog.String("room_id", room.ID.String()),
		slog.String("reason", string(reason)),
		slog.Int("duration_seconds", durationSeconds),
		slog.Bool("recorded", recorded),
	)
}

// record writes the mirrored history records and accrues lifetime totals.
func (m *RoomManager) record(room *Room, durationSeconds int) {
	sessionID := m.newID()
	createdAt := m.now()

	records := make([]*domain.ChatHistory, 0, 2)
	for _, userID := range room.Participants() {
		partnerID := room.Peer(userID)
		partnerName := ""
		if partner, ok := m.users.Peek(partnerID); ok {
			partnerName = partner.DisplayName
		}

		messages := make([]domain.ChatLine, len(room.Messages))
		copy(messages, room.Messages)

		records = append(records, &domain.ChatHistory{
			ID:              m.newID(),
			UserID:          userID,
			SessionID:       sessionID,
			RoomID:          room.ID,
			PartnerID:       partnerID,
			PartnerName:     partnerName,
			StartedAt:       room.StartedAt,
			DurationSeconds: durationSeconds,
			Messages:        messages,
			CreatedAt:       createdAt,
		})
	}
	m.history.Append(records...)

	for _, userID := range room.Participants() {
		user, ok := m.users.AccrueCall(userID, int64(durationSeconds))
		if !ok {
			m.logger.Warn("lifetime totals not updated, user unknown",
				slog.String("user_id", userID.String()),
			)
			continue
		}
		m.presence.Send(userID, Event{Type: EventMetricsUpdated, Payload: MetricsUpdatedPayload{
			TotalCallSeconds: user.TotalCallSeconds,
			SessionCount:     user.SessionCount,
		}})
	}
}

func (m *RoomManager) participantRoom(roomID, userID uuid.UUID) (*Room, error) {
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if !room.Has(userID) {
		return nil, ErrNotParticipant
	}
	return room, nil
}

func (m *RoomManager) sendBoth(room *Room, evt Event) {
	for _, userID := range room.Participants() {
		m.presence.Send(userID, evt)
	}
}

func (m *RoomManager) callStarted(room *Room, userID uuid.UUID) Event {
	peerID := room.Peer(userID)
	peerName := ""
	if peer, ok := m.users.Peek(peerID); ok {
		peerName = peer.DisplayName
	}
	return Event{Type: EventCallStarted, Payload: CallStartedPayload{
		RoomID:        room.ID,
		PeerID:        peerID,
		PeerName:      peerName,
		AgreedSeconds: room.AgreedSeconds,
		Role:          room.RoleOf(userID),
		StartedAt:     room.StartedAt,
	}}
}
