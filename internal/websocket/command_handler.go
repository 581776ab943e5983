package websocket

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/dom/speed-dating/internal/matchmaking"
	"github.com/google/uuid"
)

// CommandHandler applies one client message to the engine. It only runs on
// the hub loop.
type CommandHandler struct {
	hub    *Hub
	client *Client
}

func NewCommandHandler(hub *Hub, client *Client) *CommandHandler {
	return &CommandHandler{hub: hub, client: client}
}

func (h *Hub) handleCommand(client *Client, msg *Message) {
	NewCommandHandler(h, client).Handle(msg)
}

func (ch *CommandHandler) Handle(msg *Message) {
	switch msg.Type {
	case MessageTypeJoinPresence:
		ch.hub.engine.JoinPresence(ch.client.userID, ch.client)
	case MessageTypeLeavePresence:
		ch.hub.engine.LeavePresence(ch.client.userID)
	case MessageTypeJoinQueue:
		ch.reply(ch.hub.engine.JoinQueue(ch.client.userID))
	case MessageTypeLeaveQueue:
		ch.reply(ch.hub.engine.LeaveQueue(ch.client.userID))
	case MessageTypeInvite:
		ch.handleInvite(msg.Payload)
	case MessageTypeAcceptInvite:
		ch.handleAccept(msg.Payload)
	case MessageTypeDeclineInvite:
		ch.handleDecline(msg.Payload)
	case MessageTypeRescindInvite:
		ch.handleRescind(msg.Payload)
	case MessageTypeJoinRoom:
		ch.handleJoinRoom(msg.Payload)
	case MessageTypeSignal:
		ch.handleSignal(msg.Payload)
	case MessageTypeChat:
		ch.handleChat(msg.Payload)
	case MessageTypeShareSocial:
		ch.handleShareSocial(msg.Payload)
	case MessageTypeEndCall:
		ch.handleEndCall(msg.Payload)
	default:
		ch.hub.logger.Warn("unknown message type",
			slog.String("user_id", ch.client.userID.String()),
			slog.String("type", string(msg.Type)),
		)
		ch.client.sendError("UNKNOWN_MESSAGE", "Unknown message type")
	}
}

func (ch *CommandHandler) handleInvite(payload json.RawMessage) {
	var p InvitePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		ch.client.sendError("INVALID_PAYLOAD", "Invalid invite payload")
		return
	}

	toUserID, err := matchmaking.ParseTarget(p.ToUserID)
	if err == nil {
		var inv *matchmaking.Invite
		inv, err = ch.hub.engine.Invite(ch.client.userID, toUserID, p.RequestedSeconds)
		if err == nil {
			msg, _ := NewMessage(MessageTypeInviteSent, InviteSentPayload{
				InviteID:         inv.ID.String(),
				ToUserID:         inv.ToUserID.String(),
				RequestedSeconds: inv.CallerRequestedSeconds,
				ExpiresInSeconds: matchmaking.InviteTimeoutSeconds,
			})
			ch.client.Send(msg)
			return
		}
	}

	if reason, ok := matchmaking.DeclineReason(err); ok {
		ch.client.Deliver(matchmaking.Event{
			Type: matchmaking.EventInviteDeclined,
			Payload: matchmaking.InviteDeclinedPayload{
				ToUserID: toUserID,
				Reason:   reason,
			},
		})
		return
	}
	ch.reply(err)
}

func (ch *CommandHandler) handleAccept(payload json.RawMessage) {
	var p AcceptInvitePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		ch.client.sendError("INVALID_PAYLOAD", "Invalid accept payload")
		return
	}
	inviteID, err := uuid.Parse(p.InviteID)
	if err != nil {
		ch.reply(matchmaking.ErrInviteNotFound)
		return
	}
	_, err = ch.hub.engine.Accept(ch.client.userID, inviteID, p.RequestedSeconds)
	ch.reply(err)
}

func (ch *CommandHandler) handleDecline(payload json.RawMessage) {
	var p DeclineInvitePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		ch.client.sendError("INVALID_PAYLOAD", "Invalid decline payload")
		return
	}
	inviteID, err := uuid.Parse(p.InviteID)
	if err != nil {
		ch.reply(matchmaking.ErrInviteNotFound)
		return
	}
	ch.reply(ch.hub.engine.Decline(ch.client.userID, inviteID))
}

func (ch *CommandHandler) handleRescind(payload json.RawMessage) {
	var p RescindInvitePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		ch.client.sendError("INVALID_PAYLOAD", "Invalid rescind payload")
		return
	}
	toUserID, err := uuid.Parse(p.ToUserID)
	if err != nil {
		ch.reply(matchmaking.ErrInviteNotFound)
		return
	}
	ch.reply(ch.hub.engine.Rescind(ch.client.userID, toUserID))
}

func (ch *CommandHandler) handleJoinRoom(payload json.RawMessage) {
	var p RoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		ch.client.sendError("INVALID_PAYLOAD", "Invalid join room payload")
		return
	}
	roomID, ok := ch.roomID(p.RoomID)
	if !ok {
		return
	}
	ch.reply(ch.hub.engine.JoinRoom(ch.client.userID, roomID))
}

func (ch *CommandHandler) handleSignal(payload json.RawMessage) {
	var p SignalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		ch.client.sendError("INVALID_PAYLOAD", "Invalid signal payload")
		return
	}
	roomID, ok := ch.roomID(p.RoomID)
	if !ok {
		return
	}
	ch.reply(ch.hub.engine.Signal(ch.client.userID, roomID, p.Kind, p.Payload))
}

func (ch *CommandHandler) handleChat(payload json.RawMessage) {
	var p ChatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		ch.client.sendError("INVALID_PAYLOAD", "Invalid chat payload")
		return
	}
	roomID, ok := ch.roomID(p.RoomID)
	if !ok {
		return
	}
	ch.reply(ch.hub.engine.Chat(ch.client.userID, roomID, p.Text))
}

func (ch *CommandHandler) handleShareSocial(payload json.RawMessage) {
	var p ShareSocialPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		ch.client.sendError("INVALID_PAYLOAD", "Invalid share social payload")
		return
	}
	roomID, ok := ch.roomID(p.RoomID)
	if !ok {
		return
	}
	ch.reply(ch.hub.engine.ShareSocial(ch.client.userID, roomID, p.Handles))
}

func (ch *CommandHandler) handleEndCall(payload json.RawMessage) {
	var p RoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		ch.client.sendError("INVALID_PAYLOAD", "Invalid end call payload")
		return
	}
	roomID, ok := ch.roomID(p.RoomID)
	if !ok {
		return
	}
	ch.reply(ch.hub.engine.EndCall(ch.client.userID, roomID))
}

func (ch *CommandHandler) roomID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		ch.reply(matchmaking.ErrRoomNotFound)
		return uuid.Nil, false
	}
	return id, true
}

// reply turns an engine error into an ERROR frame. A nil error sends nothing;
// successful operations answer through engine events.
func (ch *CommandHandler) reply(err error) {
	if err == nil {
		return
	}
	code, message := errorCode(err)
	ch.client.sendError(code, message)
}

func errorCode(err error) (string, string) {
	switch {
	case errors.Is(err, matchmaking.ErrInviteNotFound):
		return "INVITE_NOT_FOUND", "Invite does not exist"
	case errors.Is(err, matchmaking.ErrInvalidDuration):
		return "INVALID_DURATION", "Requested duration is out of range"
	case errors.Is(err, matchmaking.ErrAlreadyInRoom):
		return "ALREADY_IN_ROOM", "Already in a call"
	case errors.Is(err, matchmaking.ErrRoomNotFound):
		return "ROOM_NOT_FOUND", "Room does not exist"
	case errors.Is(err, matchmaking.ErrNotParticipant):
		return "NOT_PARTICIPANT", "Not a participant of this room"
	case errors.Is(err, matchmaking.ErrUnknownSignal):
		return "INVALID_SIGNAL", "Unknown signal kind"
	case errors.Is(err, matchmaking.ErrPresenceMissing):
		return "NOT_ONLINE", "Presence has not been joined"
	default:
		return "INTERNAL_ERROR", "Request failed"
	}
}
