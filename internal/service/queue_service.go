package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/speed-dating/internal/collab"
	"github.com/dom/speed-dating/internal/matchmaking"
	"github.com/google/uuid"
)

var ErrAccessDenied = errors.New("queue access requires payment or an access code")

// QueueSource answers queue views from the matchmaking loop.
type QueueSource interface {
	QueueView(ctx context.Context, requesterID uuid.UUID, hidden, introduced map[uuid.UUID]bool) (matchmaking.QueueView, error)
}

type QueueService struct {
	gate   collab.AccessGate
	mod    collab.Moderation
	intros collab.Introductions
	source QueueSource
}

func NewQueueService(gate collab.AccessGate, mod collab.Moderation, intros collab.Introductions, source QueueSource) *QueueService {
	return &QueueService{
		gate:   gate,
		mod:    mod,
		intros: intros,
		source: source,
	}
}

// Snapshot returns the requester's queue. Collaborator lookups happen here,
// before the query reaches the matchmaking loop.
func (s *QueueService) Snapshot(ctx context.Context, requesterID uuid.UUID) (matchmaking.QueueView, error) {
	allowed, err := s.gate.HasAccess(ctx, requesterID)
	if err != nil {
		return matchmaking.QueueView{}, fmt.Errorf("check access: %w", err)
	}
	if !allowed {
		return matchmaking.QueueView{}, ErrAccessDenied
	}

	hidden, err := s.mod.ReportedBy(ctx, requesterID)
	if err != nil {
		return matchmaking.QueueView{}, fmt.Errorf("load reports: %w", err)
	}
	introduced, err := s.intros.IntroducedTo(ctx, requesterID)
	if err != nil {
		return matchmaking.QueueView{}, fmt.Errorf("load introductions: %w", err)
	}

	return s.source.QueueView(ctx, requesterID, hidden, introduced)
}
