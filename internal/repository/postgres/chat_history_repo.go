package postgres

import (
	"context"

	"github.com/dom/speed-dating/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type chatHistoryRepository struct {
	db *gorm.DB
}

func NewChatHistoryRepository(db *gorm.DB) *chatHistoryRepository {
	return &chatHistoryRepository{db: db}
}

// CreateMany inserts the mirrored records of one session in a single transaction.
func (r *chatHistoryRepository) CreateMany(ctx context.Context, records []*domain.ChatHistory) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&records).Error
	})
}

func (r *chatHistoryRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.ChatHistory, error) {
	var records []*domain.ChatHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
