package repository

import (
	"context"

	"github.com/dom/speed-dating/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Patch(ctx context.Context, id uuid.UUID, patch domain.UserPatch) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.UserSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UserSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

type ChatHistoryRepository interface {
	CreateMany(ctx context.Context, records []*domain.ChatHistory) error
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.ChatHistory, error)
}

type Repositories struct {
	User        UserRepository
	Session     SessionRepository
	ChatHistory ChatHistoryRepository
}
