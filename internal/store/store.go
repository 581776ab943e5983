// Package store is the persistence boundary. Users and login sessions are
// cached in memory in front of their repositories; chat history is appended
// asynchronously. Presence, invites, rooms and cooldowns never reach it.
package store

// FailureRecorder counts durable writes that were given up on.
type FailureRecorder interface {
	PersistFailed(kind string)
}

// Failure kinds.
const (
	KindUser    = "user"
	KindHistory = "history"
)

type nopFailures struct{}

func (nopFailures) PersistFailed(string) {}
