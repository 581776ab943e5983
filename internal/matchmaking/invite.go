package matchmaking

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dom/speed-dating/internal/domain"
	"github.com/google/uuid"
)

// InviteTimeoutSeconds is the advisory countdown shown by clients. The server
// never expires an invite on its own; the caller has to rescind.
const InviteTimeoutSeconds = 20

var ErrInvalidDuration = errors.New("requested duration out of range")

// Invite is a pending, one-way call request.
type Invite struct {
	ID                     uuid.UUID
	FromUserID             uuid.UUID
	ToUserID               uuid.UUID
	CreatedAt              time.Time
	CallerRequestedSeconds int
}

// AcceptResult describes the room created by an accepted invite. Roles are
// fixed here so nobody has to infer them from a deleted invite later.
type AcceptResult struct {
	RoomID        uuid.UUID
	AgreedSeconds int
	CallerID      uuid.UUID
	CalleeID      uuid.UUID
	CallerRole    Role
	CalleeRole    Role
}

type invitePair struct {
	from uuid.UUID
	to   uuid.UUID
}

// Negotiator runs the invite state machine: PENDING, then ACCEPTED, DECLINED
// or RESCINDED. Resolved invites are deleted rather than kept in a terminal state.
type Negotiator struct {
	invites   map[uuid.UUID]*Invite
	byPair    map[invitePair]uuid.UUID
	byUser    map[uuid.UUID]uuid.UUID
	presence  *PresenceRegistry
	cooldowns *CooldownLedger
	rooms     *RoomManager
	users     UserDirectory
	now       func() time.Time
	newID     func() uuid.UUID
	logger    *slog.Logger
	recorder  Recorder
}

func (n *Negotiator) Len() int {
	return len(n.invites)
}

func (n *Negotiator) Get(inviteID uuid.UUID) (*Invite, bool) {
	inv, ok := n.invites[inviteID]
	return inv, ok
}

// PendingFor returns the invite the user is party to, as caller or callee.
func (n *Negotiator) PendingFor(userID uuid.UUID) (*Invite, bool) {
	inviteID, ok := n.byUser[userID]
	if !ok {
		return nil, false
	}
	return n.Get(inviteID)
}

// Invite opens a negotiation from one user to another. Preconditions are
// checked in a fixed order and each failure carries its own Reason.
// Re-inviting the same target while pending returns the existing invite.
func (n *Negotiator) Invite(fromUserID, toUserID uuid.UUID, requestedSeconds int) (*Invite, error) {
	if err := n.checkInvite(fromUserID, toUserID, requestedSeconds); err != nil {
		n.recorder.InviteOutcome(OutcomeRejected)
		return nil, err
	}

	if existingID, ok := n.byPair[invitePair{from: fromUserID, to: toUserID}]; ok {
		return n.invites[existingID], nil
	}
	if _, ok := n.byUser[fromUserID]; ok {
		n.recorder.InviteOutcome(OutcomeRejected)
		return nil, decline(ReasonCallerBusy)
	}
	if _, ok := n.rooms.RoomOf(fromUserID); ok {
		n.recorder.InviteOutcome(OutcomeRejected)
		return nil, decline(ReasonCallerBusy)
	}
	if _, ok := n.byUser[toUserID]; ok {
		n.recorder.InviteOutcome(OutcomeRejected)
		return nil, decline(ReasonTargetBusy)
	}

	inv := &Invite{
		ID:                     n.newID(),
		FromUserID:             fromUserID,
		ToUserID:               toUserID,
		CreatedAt:              n.now(),
		CallerRequestedSeconds: requestedSeconds,
	}
	n.invites[inv.ID] = inv
	n.byPair[invitePair{from: fromUserID, to: toUserID}] = inv.ID
	n.byUser[fromUserID] = inv.ID
	n.byUser[toUserID] = inv.ID

	if !n.presence.Send(toUserID, Event{Type: EventIncomingInvite, Payload: IncomingInvitePayload{
		InviteID:         inv.ID,
		From:             n.profile(fromUserID),
		RequestedSeconds: requestedSeconds,
		ExpiresInSeconds: InviteTimeoutSeconds,
	}}) {
		n.logger.Warn("invite created without a live target connection",
			slog.String("invite_id", inv.ID.String()),
			slog.String("to_user_id", toUserID.String()),
		)
	}

	n.recorder.InviteOutcome(OutcomeSent)
	n.logger.Info("invite created",
		slog.String("invite_id", inv.ID.String()),
		slog.String("from_user_id", fromUserID.String()),
		slog.String("to_user_id", toUserID.String()),
		slog.Int("requested_seconds", requestedSeconds),
	)
	return inv, nil
}

func (n *Negotiator) checkInvite(fromUserID, toUserID uuid.UUID, requestedSeconds int) error {
	if fromUserID == toUserID {
		return decline(ReasonSelf)
	}
	if _, ok := n.users.Peek(toUserID); !ok {
		return decline(ReasonUserNotFound)
	}
	if !domain.ValidCallSeconds(requestedSeconds) {
		return decline(ReasonInvalidDuration)
	}
	if !n.presence.IsAvailable(toUserID) {
		return decline(ReasonUnavailable)
	}
	if n.cooldowns.IsActive(fromUserID, toUserID) {
		return decline(ReasonCooldown)
	}
	// The socket outlives LEAVE_PRESENCE, so commands can still arrive from an offline caller.
	if !n.presence.IsOnline(fromUserID) {
		return decline(ReasonCallerOffline)
	}
	return nil
}

// Accept resolves the invite into a room. Only the invite's callee may
// accept; anyone else gets ErrInviteNotFound. Both parties must be online.
// The agreed duration is the floor of the average of both requests.
func (n *Negotiator) Accept(actorID, inviteID uuid.UUID, calleeRequestedSeconds int) (*AcceptResult, error) {
	inv, ok := n.invites[inviteID]
	if !ok || inv.ToUserID != actorID {
		return nil, ErrInviteNotFound
	}
	if !domain.ValidCallSeconds(calleeRequestedSeconds) {
		return nil, ErrInvalidDuration
	}

	if !n.presence.IsOnline(inv.ToUserID) {
		return nil, ErrPresenceMissing
	}
	if !n.presence.IsOnline(inv.FromUserID) {
		n.remove(inv)
		n.recorder.InviteOutcome(OutcomeWithdrawn)
		n.logger.Warn("accept of an invite whose caller is offline",
			slog.String("invite_id", inv.ID.String()),
			slog.Bool("anomaly", true),
		)
		return nil, ErrInviteNotFound
	}

	_, callerInRoom := n.rooms.RoomOf(inv.FromUserID)
	_, calleeInRoom := n.rooms.RoomOf(inv.ToUserID)
	if callerInRoom || calleeInRoom {
		n.remove(inv)
		n.presence.Send(inv.FromUserID, n.declined(inv, ReasonUnavailable))
		return nil, ErrAlreadyInRoom
	}

	agreed := (inv.CallerRequestedSeconds + calleeRequestedSeconds) / 2

	if err := n.presence.SetAvailable(inv.FromUserID, false); err != nil {
		return nil, err
	}
	if err := n.presence.SetAvailable(inv.ToUserID, false); err != nil {
		return nil, err
	}
	n.remove(inv)
	room := n.rooms.Open(inv.FromUserID, inv.ToUserID, agreed)

	n.recorder.InviteOutcome(OutcomeAccepted)
	return &AcceptResult{
		RoomID:        room.ID,
		AgreedSeconds: agreed,
		CallerID:      room.CallerID,
		CalleeID:      room.CalleeID,
		CallerRole:    room.RoleOf(room.CallerID),
		CalleeRole:    room.RoleOf(room.CalleeID),
	}, nil
}

// Decline is the callee's refusal: the caller is told, and the pair cools down for a day.
func (n *Negotiator) Decline(actorID, inviteID uuid.UUID) error {
	inv, ok := n.invites[inviteID]
	if !ok || inv.ToUserID != actorID {
		return ErrInviteNotFound
	}

	n.presence.Send(inv.FromUserID, n.declined(inv, ReasonUserDeclined))
	n.cooldowns.Set(inv.FromUserID, inv.ToUserID, n.now().Add(DeclineCooldown))
	n.remove(inv)

	n.recorder.InviteOutcome(OutcomeDeclined)
	n.logger.Info("invite declined", slog.String("invite_id", inv.ID.String()))
	return nil
}

// Rescind cancels the caller's own invite, located by the (from, to) pair.
func (n *Negotiator) Rescind(fromUserID, toUserID uuid.UUID) error {
	inviteID, ok := n.byPair[invitePair{from: fromUserID, to: toUserID}]
	if !ok {
		return ErrInviteNotFound
	}
	inv := n.invites[inviteID]

	n.presence.Send(inv.ToUserID, n.rescinded(inv))
	n.cooldowns.Set(inv.FromUserID, inv.ToUserID, n.now().Add(RescindCooldown))
	n.remove(inv)

	n.recorder.InviteOutcome(OutcomeRescinded)
	n.logger.Info("invite rescinded", slog.String("invite_id", inv.ID.String()))
	return nil
}

// Withdraw drops the invite a departing user is party to, without a cooldown,
// and tells the other side.
func (n *Negotiator) Withdraw(userID uuid.UUID) {
	inv, ok := n.PendingFor(userID)
	if !ok {
		return
	}
	if inv.FromUserID == userID {
		n.presence.Send(inv.ToUserID, n.rescinded(inv))
	} else {
		n.presence.Send(inv.FromUserID, n.declined(inv, ReasonPeerOffline))
	}
	n.remove(inv)

	n.recorder.InviteOutcome(OutcomeWithdrawn)
	n.logger.Info("invite withdrawn",
		slog.String("invite_id", inv.ID.String()),
		slog.String("departed_user_id", userID.String()),
	)
}

func (n *Negotiator) remove(inv *Invite) {
	delete(n.invites, inv.ID)
	delete(n.byPair, invitePair{from: inv.FromUserID, to: inv.ToUserID})
	if n.byUser[inv.FromUserID] == inv.ID {
		delete(n.byUser, inv.FromUserID)
	}
	if n.byUser[inv.ToUserID] == inv.ID {
		delete(n.byUser, inv.ToUserID)
	}
}

func (n *Negotiator) profile(userID uuid.UUID) InviterProfile {
	p := InviterProfile{UserID: userID, Pronoun: "they"}
	if user, ok := n.users.Peek(userID); ok {
		p.DisplayName = user.DisplayName
		p.Gender = user.Gender
		p.Pronoun = user.Pronoun()
	}
	return p
}

func (n *Negotiator) declined(inv *Invite, reason Reason) Event {
	id := inv.ID
	return Event{Type: EventInviteDeclined, Payload: InviteDeclinedPayload{
		InviteID: &id,
		ToUserID: inv.ToUserID,
		Reason:   reason,
	}}
}

func (n *Negotiator) rescinded(inv *Invite) Event {
	return Event{Type: EventInviteRescinded, Payload: InviteRescindedPayload{
		InviteID:   inv.ID,
		FromUserID: inv.FromUserID,
	}}
}
