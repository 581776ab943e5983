package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatLineKind string

const (
	ChatLineText   ChatLineKind = "chat"
	ChatLineSocial ChatLineKind = "social"
	ChatLineSystem ChatLineKind = "system"
)

// ChatLine is one entry of a room's message log.
type ChatLine struct {
	Kind     ChatLineKind      `json:"kind"`
	SenderID uuid.UUID         `json:"senderId"`
	Text     string            `json:"text,omitempty"`
	Handles  map[string]string `json:"handles,omitempty"`
	SentAt   time.Time         `json:"sentAt"`
}

// ChatHistory is the per-participant record of a finished call. Each call
// produces two mirrored records, one owned by each participant.
type ChatHistory struct {
	ID              uuid.UUID                     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID          uuid.UUID                     `json:"userId" gorm:"type:uuid;not null;index:idx_history_user_started,priority:1"`
	SessionID       uuid.UUID                     `json:"sessionId" gorm:"type:uuid;not null;index"`
	RoomID          uuid.UUID                     `json:"roomId" gorm:"type:uuid;not null"`
	PartnerID       uuid.UUID                     `json:"partnerId" gorm:"type:uuid;not null"`
	PartnerName     string                        `json:"partnerName" gorm:"not null"`
	StartedAt       time.Time                     `json:"startedAt" gorm:"not null;index:idx_history_user_started,priority:2"`
	DurationSeconds int                           `json:"durationSeconds" gorm:"not null"`
	Messages        datatypes.JSONSlice[ChatLine] `json:"messages" gorm:"type:jsonb"`
	CreatedAt       time.Time                     `json:"createdAt"`
}

func (ChatHistory) TableName() string {
	return "chat_histories"
}
