// Package collab holds the lookups answered by subsystems outside the
// matchmaking core: account bans, the paid-access gate, moderation reports
// and introductions.
package collab

import (
	"context"

	"github.com/google/uuid"
)

type BanChecker interface {
	IsBanned(ctx context.Context, userID uuid.UUID) (bool, error)
}

type AccessGate interface {
	HasAccess(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Moderation answers which users a requester has reported. Reads may lag
// behind a report that is still being recorded.
type Moderation interface {
	ReportedBy(ctx context.Context, reporterID uuid.UUID) (map[uuid.UUID]bool, error)
}

type Introductions interface {
	IntroducedTo(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
}

// Directory is every collaborator lookup the server needs.
type Directory interface {
	BanChecker
	AccessGate
	Moderation
	Introductions
}
