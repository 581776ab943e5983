package domain

import "errors"

// Account errors
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Call duration bounds in seconds.
const (
	MinCallSeconds = 60
	MaxCallSeconds = 1800
)

func ValidCallSeconds(s int) bool {
	return s >= MinCallSeconds && s <= MaxCallSeconds
}
