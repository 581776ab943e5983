package websocket

import (
	"encoding/json"
	"time"

	"github.com/dom/speed-dating/internal/matchmaking"
)

type MessageType string

const (
	// Client to Server
	MessageTypeJoinPresence  MessageType = "JOIN_PRESENCE"
	MessageTypeLeavePresence MessageType = "LEAVE_PRESENCE"
	MessageTypeJoinQueue     MessageType = "JOIN_QUEUE"
	MessageTypeLeaveQueue    MessageType = "LEAVE_QUEUE"
	MessageTypeInvite        MessageType = "INVITE"
	MessageTypeAcceptInvite  MessageType = "ACCEPT_INVITE"
	MessageTypeDeclineInvite MessageType = "DECLINE_INVITE"
	MessageTypeRescindInvite MessageType = "RESCIND_INVITE"
	MessageTypeJoinRoom      MessageType = "JOIN_ROOM"
	MessageTypeSignal        MessageType = "SIGNAL"
	MessageTypeChat          MessageType = "CHAT"
	MessageTypeShareSocial   MessageType = "SHARE_SOCIAL"
	MessageTypeEndCall       MessageType = "END_CALL"

	// Server to Client. Engine events keep their own names; these are the
	// transport's acknowledgements.
	MessageTypeInviteSent MessageType = "INVITE_SENT"
	MessageTypeError      MessageType = "ERROR"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
	Seq       int             `json:"seq,omitempty"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Client to Server payloads

type InvitePayload struct {
	ToUserID         string `json:"toUserId"`
	RequestedSeconds int    `json:"requestedSeconds"`
}

type AcceptInvitePayload struct {
	InviteID         string `json:"inviteId"`
	RequestedSeconds int    `json:"requestedSeconds"`
}

type DeclineInvitePayload struct {
	InviteID string `json:"inviteId"`
}

type RescindInvitePayload struct {
	ToUserID string `json:"toUserId"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type SignalPayload struct {
	RoomID  string                 `json:"roomId"`
	Kind    matchmaking.SignalKind `json:"kind"`
	Payload json.RawMessage        `json:"payload"`
}

type ChatPayload struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

type ShareSocialPayload struct {
	RoomID  string            `json:"roomId"`
	Handles map[string]string `json:"handles"`
}

// Server to Client payloads

type InviteSentPayload struct {
	InviteID         string `json:"inviteId"`
	ToUserID         string `json:"toUserId"`
	RequestedSeconds int    `json:"requestedSeconds"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
