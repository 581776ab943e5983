package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	DisplayName      string    `json:"displayName" gorm:"not null"`
	Gender           string    `json:"gender" gorm:"not null;default:''"`
	TotalCallSeconds int64     `json:"totalCallSeconds" gorm:"not null;default:0"`
	SessionCount     int       `json:"sessionCount" gorm:"not null;default:0"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Pronoun returns the third-person pronoun used in notification text.
// Gender never takes part in matching.
func (u *User) Pronoun() string {
	switch u.Gender {
	case "male":
		return "he"
	case "female":
		return "she"
	default:
		return "they"
	}
}

// UserPatch carries the fields of a partial user update. Nil fields are left untouched.
type UserPatch struct {
	DisplayName      *string
	Gender           *string
	TotalCallSeconds *int64
	SessionCount     *int
}

// Apply copies the set fields of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.DisplayName != nil {
		u.DisplayName = *p.DisplayName
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	if p.TotalCallSeconds != nil {
		u.TotalCallSeconds = *p.TotalCallSeconds
	}
	if p.SessionCount != nil {
		u.SessionCount = *p.SessionCount
	}
}

// Columns returns the patch as a column map for partial database updates.
func (p UserPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.DisplayName != nil {
		cols["display_name"] = *p.DisplayName
	}
	if p.Gender != nil {
		cols["gender"] = *p.Gender
	}
	if p.TotalCallSeconds != nil {
		cols["total_call_seconds"] = *p.TotalCallSeconds
	}
	if p.SessionCount != nil {
		cols["session_count"] = *p.SessionCount
	}
	return cols
}

type UserSession struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID           uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	RefreshTokenHash string    `json:"-" gorm:"not null"`
	ExpiresAt        time.Time `json:"expiresAt" gorm:"not null"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (s *UserSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
