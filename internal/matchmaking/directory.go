package matchmaking

import (
	"github.com/dom/speed-dating/internal/domain"
	"github.com/google/uuid"
)

// UserDirectory is the engine's view of account data. Implementations must
// answer from memory; the event loop never waits on storage.
type UserDirectory interface {
	Peek(id uuid.UUID) (*domain.User, bool)
	// AccrueCall adds one session and the given seconds to the user's
	// lifetime totals and returns the updated user.
	AccrueCall(id uuid.UUID, seconds int64) (*domain.User, bool)
}

// HistorySink accepts finished-session records for durable storage without blocking.
type HistorySink interface {
	Append(records ...*domain.ChatHistory)
}
