package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dom/speed-dating/internal/domain"
	"github.com/dom/speed-dating/internal/repository"
	"github.com/google/uuid"
)

// Sessions caches login sessions in front of the session repository. Writes
// go to the repository first, so the cache never holds a session the
// database does not.
type Sessions struct {
	mu    sync.RWMutex
	cache map[uuid.UUID]*domain.UserSession
	repo  repository.SessionRepository
}

func NewSessions(repo repository.SessionRepository) *Sessions {
	return &Sessions{
		cache: make(map[uuid.UUID]*domain.UserSession),
		repo:  repo,
	}
}

func (s *Sessions) Get(ctx context.Context, id uuid.UUID) (*domain.UserSession, error) {
	s.mu.RLock()
	session, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		cp := *session
		return &cp, nil
	}

	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	s.mu.Lock()
	s.cache[id] = session
	s.mu.Unlock()

	cp := *session
	return &cp, nil
}

func (s *Sessions) Put(ctx context.Context, session *domain.UserSession) error {
	if err := s.repo.Create(ctx, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	cp := *session
	s.mu.Lock()
	s.cache[session.ID] = &cp
	s.mu.Unlock()
	return nil
}

func (s *Sessions) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteByUser removes every session of the user.
func (s *Sessions) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	for id, session := range s.cache {
		if session.UserID == userID {
			delete(s.cache, id)
		}
	}
	s.mu.Unlock()

	if err := s.repo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}
