package matchmaking

import (
	"errors"
	"fmt"
)

// State conflicts. These are benign races: callers log them and answer with a
// neutral not-found.
var (
	ErrInviteNotFound  = errors.New("invite not found")
	ErrRoomNotFound    = errors.New("room not found")
	ErrNotParticipant  = errors.New("user is not a participant of this room")
	ErrPresenceMissing = errors.New("presence missing")
	ErrAlreadyInRoom   = errors.New("user is already in a room")
)

// Reason is the small user-visible enum attached to declined invites.
type Reason string

const (
	ReasonSelf            Reason = "self"
	ReasonUserNotFound    Reason = "user_not_found"
	ReasonInvalidTarget   Reason = "invalid_target"
	ReasonInvalidDuration Reason = "invalid_duration"
	ReasonUnavailable     Reason = "unavailable"
	ReasonCooldown        Reason = "cooldown"
	ReasonCallerOffline   Reason = "caller_offline"
	ReasonCallerBusy      Reason = "caller_busy"
	ReasonTargetBusy      Reason = "target_busy"
	ReasonUserDeclined    Reason = "user_declined"
	ReasonPeerOffline     Reason = "peer_offline"
)

// DeclineError is returned when an invite fails a precondition.
type DeclineError struct {
	Reason Reason
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("invite declined: %s", e.Reason)
}

func decline(r Reason) error {
	return &DeclineError{Reason: r}
}

// DeclineReason extracts the reason from err, if it is a DeclineError.
func DeclineReason(err error) (Reason, bool) {
	var de *DeclineError
	if errors.As(err, &de) {
		return de.Reason, true
	}
	return "", false
}
