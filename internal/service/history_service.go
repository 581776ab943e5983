package service

import (
	"context"

	"github.com/dom/speed-dating/internal/domain"
	"github.com/dom/speed-dating/internal/repository"
	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type HistoryService struct {
	repo repository.ChatHistoryRepository
}

func NewHistoryService(repo repository.ChatHistoryRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

// List returns the user's finished sessions, newest first.
func (s *HistoryService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.ChatHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUserID(ctx, userID, limit, offset)
}
